// Package app wires configuration, storage, sensors and transports into the
// agent and collector processes.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// listen starts srv in the background. The returned channel yields the
// ListenAndServe result, with http.ErrServerClosed mapped to nil.
func listen(srv *http.Server, logger *slog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	return errCh
}

func shutdown(srv *http.Server, errCh <-chan error, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down", "addr", srv.Addr)
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}
