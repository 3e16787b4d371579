package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/chrono/pkg/logging"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

// Func releases one resource within the deadline carried by ctx
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Manager runs registered shutdown functions in reverse order
type Manager struct {
	entries []entry
	mu      sync.Mutex
	timeout time.Duration
	logger  *logging.Logger
	once    sync.Once
	done    chan struct{}
}

// New creates a manager that gives shutdown functions timeout in total
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Manager{
		timeout: timeout,
		logger:  logger.WithField("component", "shutdown"),
		done:    make(chan struct{}),
	}
}

// Register adds a shutdown function. Functions run LIFO.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, fn: fn})
}

// Done is closed once shutdown starts
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown runs every registered function and returns the first error.
// Only the first call does anything.
func (m *Manager) Shutdown() error {
	var firstErr error
	m.once.Do(func() {
		close(m.done)

		m.mu.Lock()
		defer m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		total := stopwatch.StartNew(nil)
		for i := len(m.entries) - 1; i >= 0; i-- {
			e := m.entries[i]
			sw := stopwatch.StartNew(nil)
			err := e.fn(ctx)
			sw.Stop()

			fields := map[string]interface{}{
				"resource":   e.name,
				"elapsed_ms": sw.ElapsedMilliseconds(),
			}
			if err != nil {
				fields["error"] = err.Error()
				m.logger.Error("Shutdown step failed", fields)
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", e.name, err)
				}
				continue
			}
			m.logger.Info("Shutdown step complete", fields)
		}
		total.Stop()
		m.logger.Info("Graceful shutdown complete", map[string]interface{}{
			"elapsed_ms": total.ElapsedMilliseconds(),
		})
	})
	return firstErr
}

// WaitWithContext blocks until SIGINT/SIGTERM or ctx is done, then shuts down
func (m *Manager) WaitWithContext(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received signal, shutting down", map[string]interface{}{"signal": sig.String()})
	case <-ctx.Done():
		m.logger.Info("Context done, shutting down")
	}
	return m.Shutdown()
}

// StopHTTPServer wraps an http.Server style Shutdown
func StopHTTPServer(server interface{ Shutdown(context.Context) error }) Func {
	return func(ctx context.Context) error {
		return server.Shutdown(ctx)
	}
}

// CloseResource wraps an io.Closer
func CloseResource(closer interface{ Close() error }) Func {
	return func(ctx context.Context) error {
		return closer.Close()
	}
}
