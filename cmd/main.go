package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"imgedit/internal/auth"
	"imgedit/internal/editor"
	"imgedit/internal/models"
	"imgedit/internal/pipeline"
	"imgedit/internal/server"
	"imgedit/internal/storage"
	"imgedit/internal/uploader"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewStorage(ctx, cfg.DatabaseURL, cfg.TenantScoped, logger)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	up := uploader.New(cfg.Storage, cfg.TenantScoped, logger)
	invoker := editor.New(cfg.Edit, logger)
	generator := editor.NewGenerator(cfg.Edit, logger)
	pipe := pipeline.New(up, invoker, db, logger)

	srv := server.NewServer(cfg, pipe, db, generator, auth.NewVerifier(cfg.JWTSecret))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	srv.Stop()
}
