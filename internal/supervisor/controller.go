// Package supervisor implements the routing engine that drives a single
// user request through specialized workers: a controller loop over shared
// state, a replaceable decision oracle, a tool invoker and a loop guard.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxWorkerFailures is the per-worker failure threshold after
	// which the run aborts with the last failure kind.
	DefaultMaxWorkerFailures = 2
	// DefaultOracleTimeout bounds a single oracle query.
	DefaultOracleTimeout = 30 * time.Second
	// DefaultWorkerTimeout bounds a single worker invocation.
	DefaultWorkerTimeout = 60 * time.Second
)

// Config holds the routing policy for one run.
type Config struct {
	MaxTurns                 int           `mapstructure:"max-turns"`
	MaxConsecutiveSameWorker int           `mapstructure:"max-consecutive-same-worker"`
	MaxWorkerFailures        int           `mapstructure:"max-worker-failures"`
	OracleTimeout            time.Duration `mapstructure:"oracle-timeout"`
	WorkerTimeout            time.Duration `mapstructure:"worker-timeout"`
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MaxConsecutiveSameWorker <= 0 {
		c.MaxConsecutiveSameWorker = DefaultMaxConsecutiveSameWorker
	}
	if c.MaxWorkerFailures <= 0 {
		c.MaxWorkerFailures = DefaultMaxWorkerFailures
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = DefaultOracleTimeout
	}
	if c.WorkerTimeout <= 0 {
		c.WorkerTimeout = DefaultWorkerTimeout
	}
	return c
}

// Controller drives the routing loop: oracle query, decision validation,
// worker dispatch and state merge, until a terminal outcome. All mutation
// of the shared state happens here and nowhere else.
type Controller struct {
	registry *Registry
	oracle   Oracle
	invoker  *Invoker
	cfg      Config
	logger   *zap.Logger

	// onCommit, when set, receives a snapshot after every committed cycle.
	// The run boundary uses it to expose the last committed state.
	onCommit func(View)
}

// ControllerOption tweaks controller construction.
type ControllerOption func(*Controller)

// WithCommitHook registers a callback invoked with a snapshot after each
// committed cycle and once more on exit.
func WithCommitHook(fn func(View)) ControllerOption {
	return func(c *Controller) { c.onCommit = fn }
}

// NewController assembles a controller for the given registry and oracle.
func NewController(registry *Registry, oracle Oracle, cfg Config, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	c := &Controller{
		registry: registry,
		oracle:   oracle,
		invoker:  NewInvoker(cfg.WorkerTimeout, logger),
		cfg:      cfg,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run drives the loop to completion and returns the terminal outcome. The
// final state is whatever the caller passed in; it is mutated only between
// the commit points, so on cancellation it matches the last committed
// cycle exactly.
func (c *Controller) Run(ctx context.Context, state *SharedState) RunOutcome {
	guard := NewGuard(c.cfg.MaxTurns, c.cfg.MaxConsecutiveSameWorker)
	failures := make(map[string]int)
	invalidStreak := 0

	c.commit(state)

	for {
		// Cancellation is honored between cycles only, never mid-mutation.
		if err := ctx.Err(); err != nil {
			c.logger.Info("run cancelled", zap.Int("turn", state.Turn()))
			return cancelledOutcome()
		}

		if err := guard.Allow(state.Turn()); err != nil {
			c.logger.Warn("loop guard tripped", zap.Error(err))
			return abortedOutcome(KindLoopLimitExceeded, err)
		}

		decision := c.decide(ctx, state)

		if err := ctx.Err(); err != nil {
			return cancelledOutcome()
		}

		if reason, ok := c.rejectDecision(decision); ok {
			invalidStreak++
			c.logger.Warn("invalid decision",
				zap.String("reason", reason),
				zap.Int("attempt", invalidStreak),
			)

			if invalidStreak > 1 {
				return abortedOutcome(KindDecisionInvalid, fmt.Errorf("oracle decision rejected twice: %s", reason))
			}

			// One corrective retry: tell the oracle what went wrong and
			// which choices actually exist.
			state.appendMessage(Message{
				Role: RoleSupervisor,
				Content: fmt.Sprintf("Invalid choice: %s. Select exactly one of: %s, or FINISH.",
					reason, strings.Join(c.registry.Names(), ", ")),
			})
			continue
		}
		invalidStreak = 0

		if decision.Terminate {
			c.logger.Info("run completed", zap.Int("turns", state.Turn()))
			state.appendMessage(Message{Role: RoleSupervisor, Content: "FINISH"})
			c.commit(state)
			return completedOutcome()
		}

		worker, _ := c.registry.Get(decision.Route)
		state.setNextWorker(worker.Name)

		if err := guard.NoteRoute(worker.Name); err != nil {
			c.logger.Warn("loop guard tripped", zap.Error(err))
			return abortedOutcome(KindLoopLimitExceeded, err)
		}

		c.logger.Info("routing",
			zap.Int("turn", state.Turn()),
			zap.String("worker", worker.Name),
		)

		result := c.invoker.Invoke(ctx, worker, deriveArgs(state))

		if err := ctx.Err(); err != nil {
			// The invocation was drained; discard its result rather than
			// committing a further mutation.
			return cancelledOutcome()
		}

		if result.Failure != nil {
			state.appendMessage(Message{
				Role:    RoleWorker,
				Worker:  worker.Name,
				Content: fmt.Sprintf("failed (%s): %s", result.Failure.Kind, result.Failure.Message),
			})

			failures[worker.Name]++
			if failures[worker.Name] > c.cfg.MaxWorkerFailures {
				err := fmt.Errorf("worker %s failed %d times: %s", worker.Name, failures[worker.Name], result.Failure.Message)
				c.logger.Warn("worker failure threshold reached", zap.Error(err))
				return abortedOutcome(result.Failure.Kind, err)
			}
		} else {
			if err := guard.NoteResult(worker.Name, result.Artifact.Hash()); err != nil {
				c.logger.Warn("loop guard tripped", zap.Error(err))
				return abortedOutcome(KindLoopLimitExceeded, err)
			}

			state.setArtifact(result.Artifact)
			state.appendMessage(Message{
				Role:    RoleWorker,
				Worker:  worker.Name,
				Content: result.Artifact.Content,
			})
		}

		state.clearNextWorker()
		state.advance()
		c.commit(state)
	}
}

// decide queries the oracle with its own timeout budget. A decision
// arriving after the deadline is downgraded to the invalid sentinel so the
// standard retry path applies.
func (c *Controller) decide(ctx context.Context, state *SharedState) Decision {
	oracleCtx, cancel := context.WithTimeout(ctx, c.cfg.OracleTimeout)
	defer cancel()

	decision := c.oracle.Decide(oracleCtx, state.Snapshot(), c.registry)

	if oracleCtx.Err() != nil && ctx.Err() == nil {
		return InvalidDecision("oracle query timed out")
	}

	return decision
}

// rejectDecision validates the oracle output against the registry. It fails
// closed: anything but a terminate or a route to a known worker is
// rejected.
func (c *Controller) rejectDecision(d Decision) (string, bool) {
	if d.Terminate {
		return "", false
	}
	if d.Invalid() {
		reason := d.Reason
		if reason == "" {
			reason = "empty decision"
		}
		return reason, true
	}
	if _, ok := c.registry.Get(d.Route); !ok {
		return fmt.Sprintf("unknown worker %q", d.Route), true
	}
	return "", false
}

func (c *Controller) commit(state *SharedState) {
	if c.onCommit != nil {
		c.onCommit(state.Snapshot())
	}
}

func deriveArgs(state *SharedState) Args {
	view := state.Snapshot()
	return Args{
		Query:     view.Input,
		Artifacts: view.Artifacts,
	}
}
