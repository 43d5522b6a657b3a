package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shp2imdf/workbench/internal/app"
	"shp2imdf/workbench/internal/config"
	"shp2imdf/workbench/internal/export"
	"shp2imdf/workbench/internal/session"
	"shp2imdf/workbench/internal/upstream"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var backend session.Backend
	switch {
	case strings.TrimSpace(cfg.RedisURL) != "":
		log.Printf("Using Redis for session snapshots")
		redisBackend, err := session.NewRedisBackend(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisBackend.Close()
		backend = redisBackend
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		log.Printf("Using PostgreSQL for session snapshots")
		pgBackend, err := session.NewPostgresBackend(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer pgBackend.Close()
		backend = pgBackend
	default:
		log.Printf("Using in-memory session snapshots")
		backend = session.NewMemoryBackend()
	}

	sessions := session.NewManager(backend, cfg.SessionTTL, cfg.MaxSessions)
	converter := upstream.New(cfg.ConverterURL)

	var archives *export.ArchiveStore
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		store, err := export.NewArchiveStore(ctx, cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			log.Fatalf("archive store setup failed: %v", err)
		}
		archives = store
	}

	service := app.New(cfg, sessions, converter, archives)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Workbench listening on %s (converter at %s)", cfg.Addr, cfg.ConverterURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
