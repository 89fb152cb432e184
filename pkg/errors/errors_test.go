package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", fmt.Errorf("fetch products: %w", ErrUnauthorized), http.StatusUnauthorized},
		{"not found", NewKeyError("p-1", ErrNotFound), http.StatusNotFound},
		{"invalid", fmt.Errorf("%w: bad quantity", ErrInvalidInput), http.StatusBadRequest},
		{"upstream", fmt.Errorf("%w: 503", ErrUpstream), http.StatusBadGateway},
		{"app error overrides", New(ErrUpstream, http.StatusServiceUnavailable, "busy"), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := fmt.Errorf("dial tcp 10.0.0.3:443: %w", ErrUpstream)
	if got := PublicMessage(err); got != "storefront backend unavailable" {
		t.Errorf("PublicMessage() = %q", got)
	}
	if got := PublicMessage(errors.New("secret detail")); got != "internal server error" {
		t.Errorf("PublicMessage() = %q", got)
	}
}

func TestKeyErrorUnwrap(t *testing.T) {
	err := NewKeyError("products", ErrCacheMiss)
	if !IsCacheMiss(err) {
		t.Fatal("expected KeyError to unwrap to ErrCacheMiss")
	}
	if err.Error() != "cache: miss: products" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAppErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(ErrUnauthorized, http.StatusUnauthorized, "token expired"))

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("expected errors.As to find AppError")
	}
	if !IsUnauthorized(wrapped) {
		t.Error("expected chain to contain ErrUnauthorized")
	}
	if PublicMessage(wrapped) != "token expired" {
		t.Errorf("PublicMessage() = %q", PublicMessage(wrapped))
	}
}
