package supervisor

import "context"

// Decision is the oracle output for one cycle: either a route to a single
// worker or a terminate signal. A decision that carries neither is the
// invalid sentinel; Reason then explains what went wrong (timeout,
// unparseable output) so the controller can append a useful correction.
type Decision struct {
	Route     string
	Terminate bool
	Reason    string
}

// Invalid reports whether the decision is the invalid sentinel.
func (d Decision) Invalid() bool { return !d.Terminate && d.Route == "" }

// RouteTo builds a decision routing to the named worker.
func RouteTo(name string) Decision { return Decision{Route: name} }

// Finish builds the terminate decision.
func Finish() Decision { return Decision{Terminate: true} }

// InvalidDecision builds the invalid sentinel with the given reason.
func InvalidDecision(reason string) Decision { return Decision{Reason: reason} }

// Oracle is the replaceable decision-making capability. Given the current
// state and the candidate workers it picks the next action. Implementations
// must return within the deadline carried by ctx and must report timeouts
// and malformed outputs as the invalid sentinel instead of failing, so the
// controller's retry logic applies uniformly to every oracle.
type Oracle interface {
	Decide(ctx context.Context, view View, registry *Registry) Decision
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, view View, registry *Registry) Decision

func (f OracleFunc) Decide(ctx context.Context, view View, registry *Registry) Decision {
	return f(ctx, view, registry)
}
