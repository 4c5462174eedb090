// Command linkstash runs the local sync service: a durable item store, an
// offline operation queue, and a reconciliation engine replaying queued
// mutations against the remote item store when connectivity allows. The
// local UI talks to it over HTTP and a WebSocket event stream.
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

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/db"
	"github.com/linkstash/linkstash/internal/logging"
	"github.com/linkstash/linkstash/internal/netmon"
	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/store"
	syncpkg "github.com/linkstash/linkstash/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("linkstash: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.Storage.DataDir)
	if err != nil {
		log.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	if err := db.Setup(database); err != nil {
		log.Error("migrate database failed", "error", err)
		os.Exit(1)
	}

	st := store.New(database.DB)
	gateway := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)

	var engine *syncpkg.Engine
	monitor := netmon.New(&netmon.Config{
		ProbeURL:      cfg.Netmon.ProbeURL,
		ProbeInterval: cfg.Netmon.ProbeInterval,
		ProbeTimeout:  cfg.Netmon.ProbeTimeout,
	}, func() {
		if _, err := engine.Drain(context.Background()); err != nil {
			log.Warn("drain after reconnect failed", "error", err)
		}
	}, log)

	engine = syncpkg.New(st, gateway, monitor.IsOnline, log)
	engine.SetRemoteTimeout(cfg.Remote.Timeout)

	hub := NewWSHub(log)
	engine.SetEventHandler(hub)

	monitor.Start(ctx)
	defer monitor.Stop()

	// Resume any queue left over from a previous run.
	if _, err := engine.FullSync(ctx); err != nil {
		log.Warn("startup full sync failed, will retry on schedule", "error", err)
	}

	go fullSyncLoop(ctx, engine, cfg.Netmon.FullSyncEvery, log)

	srv := &server{engine: engine, store: st, monitor: monitor, log: log}
	mux := http.NewServeMux()
	srv.routes(mux, hub)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown failed", "error", err)
		}
	}()

	log.Info("linkstash started", "addr", cfg.Server.Addr, "data_dir", cfg.Storage.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
	log.Info("linkstash stopped")
}

// fullSyncLoop runs periodic full syncs while connectivity allows.
func fullSyncLoop(ctx context.Context, engine *syncpkg.Engine, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.FullSync(ctx); err != nil {
				log.Warn("periodic full sync failed", "error", err)
			}
		}
	}
}
