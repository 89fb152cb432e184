// Package codec serializes catalog snapshots before they are written to a cache
// backend. The memory and redis caches both store raw bytes, so every cached
// value passes through one of these codecs.
//
// Package codec 在目录快照写入缓存后端之前对其进行序列化。
// 内存缓存和Redis缓存都存储原始字节，因此每个缓存值都经过这些编解码器之一。
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	shoperrors "github.com/yourusername/shopfront/pkg/errors"
)

// Codec encodes and decodes cached values.
//
// Codec 编码和解码缓存值。
type Codec interface {
	// Marshal serializes a value into bytes.
	// Marshal 将值序列化为字节。
	Marshal(value any) ([]byte, error)

	// Unmarshal deserializes bytes into value, which must be a pointer.
	// Unmarshal 将字节反序列化到value中，value必须是指针。
	Unmarshal(data []byte, value any) error

	// Name identifies the codec in configuration and logs.
	Name() string
}

// JSONCodec implements Codec using JSON. It is the default because redis
// entries stay readable with redis-cli.
//
// JSONCodec 使用JSON实现Codec。
type JSONCodec struct {
	Pretty bool
}

// Marshal serializes a value into JSON bytes.
func (c *JSONCodec) Marshal(value any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.Pretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: json: %v", shoperrors.ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal deserializes JSON bytes into value.
func (c *JSONCodec) Unmarshal(data []byte, value any) error {
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("%w: json: %v", shoperrors.ErrDeserializationFailed, err)
	}
	return nil
}

// Name returns "json".
func (c *JSONCodec) Name() string {
	return "json"
}

// NewJSONCodec creates a new JSONCodec.
func NewJSONCodec(pretty bool) *JSONCodec {
	return &JSONCodec{Pretty: pretty}
}

// GobCodec implements Codec using Gob, a compact binary format for Go types.
//
// GobCodec 使用Gob实现Codec。
type GobCodec struct{}

// Marshal serializes a value with gob.
func (c *GobCodec) Marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("%w: gob: %v", shoperrors.ErrSerializationFailed, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes gob bytes into value.
func (c *GobCodec) Unmarshal(data []byte, value any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(value); err != nil {
		return fmt.Errorf("%w: gob: %v", shoperrors.ErrDeserializationFailed, err)
	}
	return nil
}

// Name returns "gob".
func (c *GobCodec) Name() string {
	return "gob"
}

// NewGobCodec creates a new GobCodec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// DefaultCodec returns the JSON codec.
func DefaultCodec() Codec {
	return NewJSONCodec(false)
}

// Get returns the codec registered under name. An empty name selects the default.
//
// Get 返回以name注册的编解码器。空名称选择默认值。
func Get(name string) (Codec, error) {
	switch name {
	case "", "json":
		return NewJSONCodec(false), nil
	case "gob":
		return NewGobCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
