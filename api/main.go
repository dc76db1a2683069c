package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cfumo/irc-stats/internal/config"
	"github.com/cfumo/irc-stats/internal/engine"
	"github.com/cfumo/irc-stats/internal/logger"
	"github.com/cfumo/irc-stats/internal/nicks"
	"github.com/cfumo/irc-stats/internal/store"
	"github.com/cfumo/irc-stats/internal/web"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadServer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	table, err := nicks.Load(cfg.NicksPath)
	if err != nil {
		log.Error("load nicks", slog.Any("err", err))
		os.Exit(1)
	}

	msgs, err := store.LoadArchive(cfg.LogPath)
	if err != nil {
		log.Error("load archive", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("archive loaded", slog.String("path", cfg.LogPath), slog.Int("lines", len(msgs)))

	eng, err := engine.Open(cfg.Engine, engine.Options{
		Messages:   msgs,
		Nicks:      table,
		SQLitePath: cfg.SQLitePath,
		BatchSize:  cfg.BatchSize,
		Logger:     log,
	})
	if err != nil {
		log.Error("open engine", slog.String("engine", cfg.Engine), slog.Any("err", err))
		os.Exit(1)
	}
	defer eng.Close()

	srv, err := web.NewServer(cfg, log, eng, table)
	if err != nil {
		log.Error("init server", slog.Any("err", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("engine", cfg.Engine),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
