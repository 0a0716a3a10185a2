package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncpad/gateway"
	"syncpad/repositories"
	"syncpad/runtime"
	"syncpad/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Registry, store, lifecycle
	clk := clock.New()
	store := repositories.NewRoomRepository(db, log)
	flush := make(chan runtime.FlushRequest, config.FlushBufferSize)
	registry := runtime.NewRegistry(log, clk, flush,
		config.MaxRoomSize, config.MaxTextLength, config.GracePeriod, config.FlushBufferSize)
	lifecycle := runtime.NewLifecycle(log, registry, store)

	// Reconcile before the command loop runs: no connection survived the
	// restart, so persisted membership is cleared rather than trusted.
	if err := lifecycle.Reconcile(); err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}

	// 4. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(registry, workers.NewStoreWorker(log, store, flush))
	// Workers outlive the signal context: the shutdown flush below still
	// needs a live registry loop after the signal arrives.
	go sup.Run(context.Background())

	// 5. Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. HTTP / WebSocket server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	ws := gateway.NewServer(log, registry, clk, config.ThrottleWindow, config.ConnectionBufferSize)
	httpServer := &http.Server{Addr: address, Handler: ws.Handler()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Flush rooms, then stop accepting connections, bounded force-exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown flush incomplete", "error", err)
	}
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
