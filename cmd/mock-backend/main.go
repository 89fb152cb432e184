// Package main runs a fake storefront backend for local development.
//
// Package main 运行用于本地开发的模拟店面后端。
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/shopfront/internal/mockbackend"
	"github.com/yourusername/shopfront/pkg/logx"
)

func main() {
	port := flag.Int("port", 5000, "HTTP server port")
	fixture := flag.String("fixture", "", "YAML or JSON fixture file; the built-in catalog is used when empty")
	token := flag.String("token", "", "Require this bearer token")
	envelope := flag.Bool("envelope", false, "Wrap responses in {\"data\": ...}")
	latency := flag.Duration("latency", 0, "Delay added to every response")
	flag.Parse()

	if _, err := logx.Init(logx.DefaultOptions); err != nil {
		panic(err)
	}
	gin.SetMode(gin.ReleaseMode)

	data := mockbackend.DefaultFixture()
	if *fixture != "" {
		var err error
		if data, err = mockbackend.LoadFixture(*fixture); err != nil {
			logx.Fatal().Err(err).Msg("failed to load fixture")
		}
	}

	handler := mockbackend.NewHandler(data, mockbackend.Options{
		Token:    *token,
		Envelope: *envelope,
		Latency:  *latency,
	})

	addr := fmt.Sprintf(":%d", *port)
	logx.Info().
		Str("addr", addr).
		Int("products", len(data.Products)).
		Int("campaigns", len(data.Campaigns)).
		Bool("envelope", *envelope).
		Bool("token_required", *token != "").
		Msg("mock backend listening")

	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		logx.Fatal().Err(err).Msg("mock backend stopped")
	}
}
