package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Failure describes a failed worker invocation.
type Failure struct {
	Kind    Kind
	Message string
}

// ToolResult is the outcome of exactly one worker invocation: a success
// payload or a failure descriptor, never both.
type ToolResult struct {
	Artifact Artifact
	Failure  *Failure
}

// Invoker executes a single worker action against the args derived from a
// state snapshot. Execution faults, panics included, are captured as a
// failure result and never propagate to the controller.
type Invoker struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewInvoker creates an invoker that applies the given per-call timeout.
// A non-positive timeout disables the per-call deadline.
func NewInvoker(timeout time.Duration, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{timeout: timeout, logger: logger}
}

// Invoke runs the worker action once and returns its result. The artifact
// producer is always stamped with the worker name.
func (i *Invoker) Invoke(ctx context.Context, w Worker, args Args) (result ToolResult) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("worker panicked",
				zap.String("worker", w.Name),
				zap.Any("panic", r),
			)
			result = ToolResult{Failure: &Failure{
				Kind:    KindWorkerFault,
				Message: fmt.Sprintf("worker %s panicked: %v", w.Name, r),
			}}
		}
	}()

	started := time.Now()
	artifact, err := w.Action.Execute(ctx, args)
	elapsed := time.Since(started)

	if err != nil {
		kind := KindWorkerFault
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}

		i.logger.Warn("worker invocation failed",
			zap.String("worker", w.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)

		return ToolResult{Failure: &Failure{
			Kind:    kind,
			Message: err.Error(),
		}}
	}

	artifact.Producer = w.Name
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	i.logger.Debug("worker invocation succeeded",
		zap.String("worker", w.Name),
		zap.String("artifact_kind", artifact.Kind),
		zap.Duration("elapsed", elapsed),
	)

	return ToolResult{Artifact: artifact}
}
