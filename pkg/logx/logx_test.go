package logx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{"": zerolog.InfoLevel, "debug": zerolog.DebugLevel, " WARN ": zerolog.WarnLevel}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopfront.log")
	closer, err := Init(Options{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Init(DefaultOptions)

	Debug().Msg("hidden")
	Info().Str("product", "42").Msg("priced")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("Expected exactly one JSON line, got %q: %v", data, err)
	}
	if line["product"] != "42" || line["message"] != "priced" {
		t.Errorf("Unexpected log line %v", line)
	}
}

func TestInitRejectsBadLevel(t *testing.T) {
	if _, err := Init(Options{Level: "chatty"}); err == nil {
		t.Error("Expected error for bad level")
	}
}
