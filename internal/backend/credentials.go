// Package backend is the client for the storefront REST backend. Every call
// takes the caller's credential explicitly; the client holds no session.
//
// Package backend 是店面REST后端的客户端。每次调用都显式传入调用方凭证，客户端不保存会话。
package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is a bearer token forwarded to the backend, plus its expiry
// when the token is a JWT that carries one.
//
// Credentials 是转发给后端的bearer令牌，以及JWT携带的过期时间（如有）。
type Credentials struct {
	Token     string
	ExpiresAt time.Time
}

// Anonymous is the credential of a caller without a token.
var Anonymous = Credentials{}

// CredentialsFromToken builds credentials from a raw token or an
// Authorization header value. The expiry is read from the JWT "exp" claim
// without verifying the signature; verification is the backend's job.
// Opaque tokens have no expiry.
//
// CredentialsFromToken 从原始令牌或Authorization头构建凭证。
// 过期时间从JWT的exp声明读取，不验证签名，验证由后端负责。
func CredentialsFromToken(token string) Credentials {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return Anonymous
	}

	cred := Credentials{Token: token}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return cred
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time
	}
	return cred
}

// IsAnonymous reports whether no token is present.
func (c Credentials) IsAnonymous() bool {
	return c.Token == ""
}

// Expired reports whether the token carries an expiry that is not after now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Fingerprint is a short stable digest of the token, used to scope cache keys
// without storing the token itself. Anonymous credentials return "anonymous".
func (c Credentials) Fingerprint() string {
	if c.IsAnonymous() {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(c.Token))
	return hex.EncodeToString(sum[:8])
}

// String never prints the token.
func (c Credentials) String() string {
	if c.IsAnonymous() {
		return "credentials(anonymous)"
	}
	return "credentials(" + c.Fingerprint() + ")"
}
