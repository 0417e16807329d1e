package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/divortio/stealthproxy/internal/cache"
	"github.com/divortio/stealthproxy/internal/config"
	"github.com/divortio/stealthproxy/internal/logging"
	"github.com/divortio/stealthproxy/internal/orchestrator"
	proxy "github.com/divortio/stealthproxy/internal/tlsfront"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// envOrDefault returns the environment variable value if set, otherwise the fallback.
func envOrDefault(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stealthproxy %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configuration is entirely environment-driven; a bad ROOT_DOMAIN or
	// malformed cookie glob must stop the process before it ever binds.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Init(logging.Config{
		Level:   logging.Level(envOrDefault("LOG_LEVEL", "info")),
		Format:  envOrDefault("LOG_FORMAT", "text"),
		Output:  "stdout",
		LogFile: os.Getenv("LOG_FILE"),
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	store, err := cache.NewRistrettoStore()
	if err != nil {
		logging.Error("Failed to create cache store", "source", "cache", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	orch := orchestrator.New(cfg, store)

	// When a TLS_DOMAIN/TLS_CERT front door is configured, the orchestrator
	// listens on a loopback address and the embedded Caddy instance takes
	// the public listener; otherwise the orchestrator binds directly.
	listenAddr := cfg.ListenAddr
	var front *proxy.Proxy
	if cfg.TLS.Domain != "" || cfg.TLS.Cert != "" {
		front = proxy.New(&proxy.Config{
			ListenAddr: cfg.ListenAddr,
			Domain:     cfg.TLS.Domain,
			Email:      cfg.TLS.Email,
			TLSCert:    cfg.TLS.Cert,
			TLSKey:     cfg.TLS.Key,
		})
		listenAddr = front.GetInternalAddr()
	}

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: orch,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logging.Info("Listening", "source", "server", "addr", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server error", "source", "server", "error", err)
			os.Exit(1)
		}
	}()

	if front != nil {
		if err := front.Start(); err != nil {
			logging.Error("Failed to start TLS front door", "source", "tlsfront", "error", err)
			os.Exit(1)
		}
		logging.Info("TLS front door started", "source", "tlsfront", "listen", cfg.ListenAddr)
	}

	<-quit
	logging.Info("Shutting down", "source", "server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error during shutdown", "source", "server", "error", err)
	}

	if front != nil {
		if err := front.Stop(); err != nil {
			logging.Error("Error stopping TLS front door", "source", "tlsfront", "error", err)
		}
	}

	logging.Info("Goodbye!", "source", "server")
}
