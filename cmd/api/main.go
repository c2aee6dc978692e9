package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/api"
	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/jobs"
	qtestnats "github.com/specforge/testgen/internal/nats"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Connect to database (optional; job endpoints respond 503 without one)
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to database, job endpoints will be unavailable")
		} else if err := db.Ping(); err != nil {
			log.Warn().Err(err).Msg("database ping failed, job endpoints will be unavailable")
			db.Close()
			db = nil
		} else {
			log.Info().Msg("connected to database")
			defer db.Close()
		}
	}

	var repo *jobs.Repository
	var jobPipeline *jobs.Pipeline
	if db != nil {
		repo = jobs.NewRepository(db)

		var natsClient *qtestnats.Client
		if cfg.NATSURL != "" {
			natsClient, err = qtestnats.NewClient(cfg.NATSURL)
			if err != nil {
				log.Warn().Err(err).Msg("failed to connect to NATS, jobs will be persisted for DB-polling workers only")
			} else {
				log.Info().Str("url", cfg.NATSURL).Msg("connected to NATS")
				defer natsClient.Close()
			}
		}
		jobPipeline = jobs.NewPipeline(repo, natsClient)
	}

	// Create server
	srv, err := api.NewServer(cfg, repo, jobPipeline)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}
