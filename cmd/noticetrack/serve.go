package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oslri/noticetrack/internal/db"
	"github.com/oslri/noticetrack/internal/export"
	"github.com/oslri/noticetrack/internal/ingestion"
	"github.com/oslri/noticetrack/internal/metrics"
	"github.com/oslri/noticetrack/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP read surface",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := db.RunMigrations(ctx, a.conn.Pool, a.cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	metrics.Register()

	importer := ingestion.NewHTTPHandler(a.importer)
	exporter := export.NewHTTPHandler(export.NewService(a.detector, a.aggregator))
	srv := server.New(a.notices, a.engine, a.detector, a.aggregator, a.enricher, importer, exporter, a.cfg.HTTP.AllowedOrigins)

	httpServer := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting noticetrack server on %s", a.cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
