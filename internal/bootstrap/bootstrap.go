// Package bootstrap releases the resources a command opened, in reverse order of acquisition.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"
)

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// App manages the lifecycle of one command invocation.
type App struct {
	mu    sync.Mutex
	hooks []hook

	// interruptGrace bounds how long an interrupted run may keep using resources
	interruptGrace time.Duration
}

// New creates a new App.
func New() *App {
	return &App{interruptGrace: 5 * time.Second}
}

// AddShutdownHook registers a function to call when the app shuts down.
// Hooks run in reverse order (LIFO). Thread-safe.
func (a *App) AddShutdownHook(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook{name: name, fn: fn})
}

// AddCloser registers closer as a shutdown hook.
func (a *App) AddCloser(name string, closer io.Closer) {
	a.AddShutdownHook(name, func(context.Context) error {
		return closer.Close()
	})
}

// Run executes run and then the shutdown hooks.
// On OS interrupt run gets a short grace period to return before the hooks run.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		select {
		case <-errCh:
		case <-time.After(a.interruptGrace):
			slog.Default().Warn("Shutting down before the command finished", "grace", a.interruptGrace)
		}
		return a.Shutdown(context.Background())
	case err := <-errCh:
		return errors.Join(err, a.Shutdown(context.Background()))
	}
}

// Shutdown calls the registered hooks once, most recent first.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		slog.Default().Debug("Running shutdown hook", "name", hooks[i].name)
		if err := hooks[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}
