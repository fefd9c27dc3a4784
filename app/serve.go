// Package app runs the sheetview HTTP service
package app

import (
	"context"
	"fmt"
	"log"
	"net"

	"golang.org/x/sync/errgroup"

	"sheetview/internal/config"
	"sheetview/internal/container"
	"sheetview/ui"
)

// Serve builds the container, restores the saved collection and serves HTTP until ctx is done.
// Shutdown waits up to the configured timeout for in-flight requests.
func Serve(ctx context.Context, cfg *config.Config) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Close()

	if c.Session.Restore(ctx) {
		log.Printf("Restored saved data: %d records", c.Session.State().Total)
	}

	server := ui.NewServer(c.Session, ui.Config{
		GinMode:        cfg.Server.GinMode,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
	})
	addr := net.JoinHostPort("", cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(addr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Printf("Shutting down server...")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
