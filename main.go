package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/gateway"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/router"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
	"github.com/danielhkuo/livepoll/voting"
)

func main() {
	var err error

	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger, err := cliparse.NewLogger(cfg, os.Stderr)
	if err != nil {
		slog.Error("Error configuring logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.AdminPersonID == "" {
		slog.Warn("no admin configured; admin endpoints will refuse every request")
	}

	s := store.New(dbConn, cfg.DatabaseType)
	t := tally.New()
	l := ledger.New(t, s)

	// Rebuild the tallies from persisted votes
	votes, err := s.LoadVotes(context.Background())
	if err != nil {
		slog.Error("failed to load votes", "error", err)
		os.Exit(1)
	}
	if err := l.Load(votes); err != nil {
		slog.Error("failed to rebuild tallies", "error", err)
		os.Exit(1)
	}
	slog.Info("Tallies restored", "votes", len(votes))

	results := broadcast.NewResults(t)
	admin := broadcast.NewAdmin()
	events := broadcast.NewEvents()

	gw := gateway.New(gateway.Config{
		SendBuffer:     cfg.WSSendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	}, s, results, admin, events)

	// Create router
	mux := router.NewRouter(router.Deps{
		Config:    cfg,
		Store:     s,
		Ledger:    l,
		Results:   results,
		Announcer: broadcast.NewAnnouncer(admin, events),
		Voting:    voting.NewService(s, s, l, results),
		Gateway:   gw,
	})

	// Create server
	server := http.Server{
		Handler:           mux,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc

		// Hijacked websocket connections are not tracked by the server
		gw.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
