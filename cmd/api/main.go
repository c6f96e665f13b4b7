package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/server"
	"github.com/Wikid82/warden/internal/services"
	"github.com/Wikid82/warden/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Setup logging with rotation
	out := io.Writer(os.Stdout)
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Printf("WARNING: log directory unavailable, logging to stdout only: %v", err)
	} else {
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "warden.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer rotator.Close()
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)
	logger.Init(cfg.Debug, out)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Handle CLI commands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "ensure-admin":
			created, err := services.NewAuthService(db, cfg.Auth).EnsureAdmin(context.Background())
			if err != nil {
				log.Fatalf("ensure admin: %v", err)
			}
			if created {
				log.Printf("Administrator %s created", cfg.Auth.AdminEmail)
			} else {
				log.Printf("Administrator %s already exists", cfg.Auth.AdminEmail)
			}
			return
		default:
			log.Fatalf("Usage: %s [ensure-admin]", os.Args[0])
		}
	}

	logger.Log().WithField("version", version.Full()).
		WithField("database", cfg.DatabaseDriver).
		Infof("starting %s", version.Name)

	srv, err := server.New(db, cfg)
	if err != nil {
		log.Fatalf("create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Log().Info("server stopped")
}
