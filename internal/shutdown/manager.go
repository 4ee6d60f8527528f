// Package shutdown coordinates graceful teardown of the server's components.
// Hooks run in priority order, highest first; hooks sharing a priority run
// concurrently.
package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// HookFunc tears down one component.
type HookFunc func(ctx context.Context) error

// Hook is a named teardown step.
type Hook struct {
	Name     string
	Priority int
	Fn       HookFunc
}

// Manager runs registered hooks when shutdown is triggered.
type Manager struct {
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	hooks []Hook

	once sync.Once
	done chan struct{}
}

// NewManager creates a manager. timeout bounds the whole shutdown sequence.
func NewManager(timeout time.Duration, logger *slog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger.With("component", "shutdown"),
		done:    make(chan struct{}),
	}
}

// Register adds a hook. Higher priorities run first.
func (m *Manager) Register(name string, priority int, fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, Hook{Name: name, Priority: priority, Fn: fn})
}

// ListenForSignals triggers shutdown on SIGINT or SIGTERM. The returned
// channel closes when shutdown completes.
func (m *Manager) ListenForSignals() <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		signal.Stop(sigCh)
		m.logger.Info("received shutdown signal", "signal", sig.String())
		m.Shutdown()
	}()

	return m.done
}

// Shutdown runs all hooks. Safe to call more than once; only the first call
// does anything.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.mu.Lock()
		hooks := make([]Hook, len(m.hooks))
		copy(hooks, m.hooks)
		m.mu.Unlock()

		sort.SliceStable(hooks, func(i, j int) bool {
			return hooks[i].Priority > hooks[j].Priority
		})

		m.logger.Info("starting graceful shutdown", "hooks", len(hooks))
		for start := 0; start < len(hooks); {
			end := start
			for end < len(hooks) && hooks[end].Priority == hooks[start].Priority {
				end++
			}
			m.runGroup(ctx, hooks[start:end])
			start = end

			if ctx.Err() != nil {
				m.logger.Warn("shutdown timeout exceeded, skipping remaining hooks")
				break
			}
		}
		m.logger.Info("graceful shutdown complete")

		close(m.done)
	})
}

// Done returns a channel closed when shutdown completes.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) runGroup(ctx context.Context, hooks []Hook) {
	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()
			m.runHook(ctx, h)
		}(hook)
	}
	wg.Wait()
}

func (m *Manager) runHook(ctx context.Context, hook Hook) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return hook.Fn(ctx)
	}()

	if err != nil {
		m.logger.Error("shutdown hook failed",
			"name", hook.Name,
			"error", err.Error(),
			"duration", time.Since(start),
		)
		return
	}
	m.logger.Debug("shutdown hook completed", "name", hook.Name, "duration", time.Since(start))
}
