package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/rehabreps/internal/config"
	mqttingest "github.com/claude/rehabreps/internal/ingest/mqtt"
	"github.com/claude/rehabreps/internal/mcp"
	"github.com/claude/rehabreps/internal/profile"
	"github.com/claude/rehabreps/internal/server"
	"github.com/claude/rehabreps/internal/session"
	"github.com/claude/rehabreps/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RehabReps starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Exercise profiles: builtins plus optional YAML overrides
	profiles := profile.NewRegistry()
	if cfg.Profiles.Path != "" {
		if err := profiles.Load(cfg.Profiles.Path); err != nil {
			log.Error("failed to load exercise profiles", "path", cfg.Profiles.Path, "error", err)
			os.Exit(1)
		}
	}
	log.Info("exercise profiles loaded", "profiles", profiles.Names())

	// Session manager persists finalized sessions to the database
	manager := session.NewManager(profiles, db, log)

	// Create server
	srv := server.New(db, manager, profiles, cfg.Auth.APIKey, log)

	// Mount the MCP surface alongside the REST API
	mcpSrv := mcp.New(db, profiles, Version, log)
	srv.Handler().Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Optional MQTT frame ingest bridge
	if cfg.MQTT.Enabled {
		bridge := mqttingest.New(cfg.MQTT, manager, log)
		if err := bridge.Start(); err != nil {
			log.Error("mqtt bridge start failed", "error", err)
			os.Exit(1)
		}
		defer bridge.Stop()
	}

	// Start server on tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			AuthKey:  cfg.Tailscale.AuthKey,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
