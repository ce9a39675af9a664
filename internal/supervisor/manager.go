package supervisor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the run boundary exposed to the surrounding application. Each
// run owns its own state with no cross-run sharing, so concurrent runs need
// no coordination beyond the per-handle lock guarding the committed
// snapshot.
type Manager struct {
	registry *Registry
	oracle   Oracle
	logger   *zap.Logger
}

// NewManager creates a run manager over a fixed registry and oracle.
func NewManager(registry *Registry, oracle Oracle, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{registry: registry, oracle: oracle, logger: logger}
}

// RunHandle identifies one in-flight or finished run.
type RunHandle struct {
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	committed View
	outcome   RunOutcome
}

// StartRun launches a run for the given user input in its own goroutine
// and returns immediately.
func (m *Manager) StartRun(ctx context.Context, userInput string, cfg Config) *RunHandle {
	runCtx, cancel := context.WithCancel(ctx)

	h := &RunHandle{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	logger := m.logger.With(zap.String("run_id", h.ID))

	controller := NewController(m.registry, m.oracle, cfg, logger, WithCommitHook(func(v View) {
		h.mu.Lock()
		h.committed = v
		h.mu.Unlock()
	}))

	state := NewState(userInput)

	go func() {
		defer close(h.done)
		defer cancel()

		outcome := controller.Run(runCtx, state)

		h.mu.Lock()
		h.outcome = outcome
		h.mu.Unlock()

		logger.Info("run finished", zap.String("outcome", outcome.String()))
	}()

	return h
}

// GetState returns the snapshot of the last committed cycle.
func (m *Manager) GetState(h *RunHandle) View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.committed
}

// Cancel requests cancellation of the run. The controller finishes the
// current suspension point, drains it and returns a Cancelled outcome.
func (m *Manager) Cancel(h *RunHandle) {
	h.cancel()
}

// Done is closed when the run reaches a terminal outcome.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run finishes and returns its outcome.
func (h *RunHandle) Wait() RunOutcome {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}
