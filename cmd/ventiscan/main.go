// Command ventiscan runs the dashboard backend: the scanner service client,
// the polling engine and the results store behind an HTTP + WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KJWesthoff/ventiscan/internal/agent"
	"github.com/KJWesthoff/ventiscan/internal/app"
	"github.com/KJWesthoff/ventiscan/internal/config"
	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/logging"
	"github.com/KJWesthoff/ventiscan/internal/poller"
	"github.com/KJWesthoff/ventiscan/internal/results"
	"github.com/KJWesthoff/ventiscan/internal/scanner"
	"github.com/KJWesthoff/ventiscan/internal/server"
	"github.com/KJWesthoff/ventiscan/internal/webclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ventiscan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Backend)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	storagePath, err := expandPath(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("expanding storage path: %w", err)
	}

	db, err := results.OpenDatabase(storagePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := results.NewStore(db, logger)
	if err != nil {
		return err
	}

	wc := webclient.NewNetHTTPClient(logger, nil)
	defer wc.Close()

	auth := scanner.NewAuthSession(wc, cfg.Scanner.BaseURL,
		cfg.Scanner.Username, cfg.Scanner.Password,
		cfg.Scanner.TokenLifetime(), nil, logger)
	client := scanner.NewClient(cfg.Scanner.BaseURL, wc, auth, logger)

	manager := app.NewManager(client, store, poller.Config{
		Interval:        cfg.Poll.Interval(),
		FindingsRetries: cfg.Poll.FindingsRetries,
	}, logger)
	defer manager.Shutdown()

	bridge := agent.NewBridge(wc, cfg.Agent.ContextURL, logger)
	store.Subscribe(bridge.Subscriber())

	// Subscribers are registered; surface whatever survived the last run.
	if err := store.Hydrate(context.Background()); err != nil {
		logger.Warn("hydrating persisted results", interfaces.Field{Key: "error", Value: err.Error()})
	}

	srv := server.NewServer(server.Config{ListenAddr: cfg.Server.Addr()}, manager, logger)
	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", interfaces.Field{Key: "addr", Value: cfg.Server.Addr()})
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", interfaces.Field{Key: "signal", Value: sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(backend string) (interfaces.Logger, error) {
	if backend == "zap" {
		return logging.NewZapLogger("ventiscan")
	}
	return logging.NewStdoutLogger("ventiscan"), nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
