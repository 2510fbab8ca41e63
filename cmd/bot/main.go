package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/database"
	"paper-trade-bot-go/internal/logger"
	"paper-trade-bot-go/internal/quotes"
	"paper-trade-bot-go/internal/server"
	"paper-trade-bot-go/internal/stream"
	"paper-trade-bot-go/internal/trader"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Open the trade-log database (in-memory by default)
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open trade log database", zap.Error(err))
	}

	// Quote source client
	quoteClient := quotes.NewClient(&cfg.Quotes, log)

	// Trading core, session registry and price feed
	service := trader.NewService(&cfg, quoteClient, db, log)
	hub := stream.NewHub(log)
	interval := time.Duration(cfg.Trading.TickInterval) * time.Second
	feed := trader.NewFeed(service, hub, interval, log)

	// HTTP surface
	apiServer := server.NewServer(cfg.Server.Port, service, feed, hub, log)
	apiServer.Start()

	// Wait for a shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	feed.Kill()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
