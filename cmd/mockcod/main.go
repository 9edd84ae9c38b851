// Package main implements a mock COD form backend and storefront for local
// development.
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/charmbracelet/log"
)

type options struct {
	Addr     string        `env:"MOCKCOD_ADDR" envDefault:":18080"`
	WhatsApp string        `env:"MOCKCOD_WHATSAPP" envDefault:"18095550100"`
	Latency  time.Duration `env:"MOCKCOD_LATENCY" envDefault:"0s"`
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "mockcod",
		ReportTimestamp: true,
	})

	var opts options
	if err := env.Parse(&opts); err != nil {
		logger.Fatal("failed to parse options", "err", err)
	}

	srv, err := newServer(testdataFS, opts.WhatsApp, logger)
	if err != nil {
		logger.Fatal("failed to load fixtures", "err", err)
	}
	srv.latency = opts.Latency

	logger.Info("mock COD backend listening", "addr", opts.Addr, "shops", len(srv.shops), "products", len(srv.catalog))
	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
