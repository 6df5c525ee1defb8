package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/httpapi"
	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/orchestrator"
	"github.com/codenerd-labs/auditor/internal/progress"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP/WebSocket compliance auditor service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bc := progress.New()
	orch := orchestrator.New(st, bc, cfg.MaxConcurrentScans, cfg.ExcludedDirs, cfg.Kafka)
	server := httpapi.NewServer(st, orch, bc)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.HTTP().Infow("serving", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-sigCh:
		logging.HTTP().Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
