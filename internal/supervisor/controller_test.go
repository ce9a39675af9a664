package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// scriptedOracle replays a fixed sequence of decisions.
type scriptedOracle struct {
	mu        sync.Mutex
	decisions []Decision
	calls     int
}

func (o *scriptedOracle) Decide(_ context.Context, _ View, _ *Registry) Decision {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if len(o.decisions) == 0 {
		return Finish()
	}
	d := o.decisions[0]
	o.decisions = o.decisions[1:]
	return d
}

// echoAction returns a turn-stamped artifact so the loop guard sees
// progress on every invocation.
type echoAction struct {
	kind  string
	calls int
}

func (a *echoAction) Execute(_ context.Context, args Args) (Artifact, error) {
	a.calls++
	return Artifact{
		Kind:    a.kind,
		Content: fmt.Sprintf("%s result %d for %q", a.kind, a.calls, args.Query),
	}, nil
}

type failingAction struct {
	err   error
	calls int
}

func (a *failingAction) Execute(context.Context, Args) (Artifact, error) {
	a.calls++
	return Artifact{}, a.err
}

func testRegistry(t *testing.T) (*Registry, map[string]*echoAction) {
	t.Helper()

	actions := map[string]*echoAction{
		"Analyzer":  {kind: "cv_summary"},
		"Searcher":  {kind: "job_listings"},
		"Generator": {kind: "cover_letter"},
	}

	registry, err := NewRegistry(
		Worker{Name: "Analyzer", Description: "analyzes CV content", Action: actions["Analyzer"]},
		Worker{Name: "Searcher", Description: "finds job postings", Action: actions["Searcher"]},
		Worker{Name: "Generator", Description: "writes cover letters", Action: actions["Generator"]},
	)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	return registry, actions
}

func TestRunCompletesAfterScriptedSequence(t *testing.T) {
	registry, actions := testRegistry(t)
	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Searcher"),
		RouteTo("Analyzer"),
		RouteTo("Generator"),
		Finish(),
	}}

	controller := NewController(registry, oracle, Config{}, zap.NewNop())
	state := NewState("find me a data science job and write a cover letter")

	outcome := controller.Run(context.Background(), state)

	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if state.Turn() != 4 {
		t.Fatalf("expected terminal turn 4, got %d", state.Turn())
	}

	view := state.Snapshot()
	for _, name := range []string{"Searcher", "Analyzer", "Generator"} {
		if _, ok := view.Artifact(name); !ok {
			t.Fatalf("expected artifact from %s", name)
		}
		if actions[name].calls != 1 {
			t.Fatalf("expected exactly one %s invocation, got %d", name, actions[name].calls)
		}
	}

	if kind := view.Artifacts["Searcher"].Kind; kind != "job_listings" {
		t.Fatalf("unexpected searcher artifact kind: %s", kind)
	}
}

func TestTurnStrictlyIncreasesPerCycle(t *testing.T) {
	registry, _ := testRegistry(t)
	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Analyzer"),
		RouteTo("Searcher"),
		Finish(),
	}}

	var turns []int
	controller := NewController(registry, oracle, Config{}, zap.NewNop(), WithCommitHook(func(v View) {
		turns = append(turns, v.Turn)
	}))

	outcome := controller.Run(context.Background(), NewState("query"))
	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}

	for i := 1; i < len(turns); i++ {
		if turns[i] < turns[i-1] {
			t.Fatalf("turn regressed: %v", turns)
		}
		if turns[i]-turns[i-1] > 1 {
			t.Fatalf("turn jumped by more than one: %v", turns)
		}
	}
}

func TestUnknownWorkerAbortsAfterOneRetry(t *testing.T) {
	registry, _ := testRegistry(t)
	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Translator"),
		RouteTo("Translator"),
	}}

	controller := NewController(registry, oracle, Config{}, zap.NewNop())
	state := NewState("query")

	outcome := controller.Run(context.Background(), state)

	if outcome.Status != StatusAborted || outcome.Reason != KindDecisionInvalid {
		t.Fatalf("expected aborted with decision_invalid, got %s", outcome)
	}
	if state.Turn() != 1 {
		t.Fatalf("expected abort at turn 1, got %d", state.Turn())
	}
	if oracle.calls != 2 {
		t.Fatalf("expected exactly 2 oracle calls, got %d", oracle.calls)
	}

	// The single retry must be preceded by an explicit correction.
	var corrected bool
	for _, m := range state.Snapshot().Messages {
		if m.Role == RoleSupervisor && m.Turn == 1 {
			corrected = true
		}
	}
	if !corrected {
		t.Fatal("expected a supervisor correction message before the retry")
	}
}

func TestInvalidThenValidDecisionRecovers(t *testing.T) {
	registry, _ := testRegistry(t)
	oracle := &scriptedOracle{decisions: []Decision{
		InvalidDecision("unparseable output"),
		RouteTo("Analyzer"),
		Finish(),
	}}

	controller := NewController(registry, oracle, Config{}, zap.NewNop())
	outcome := controller.Run(context.Background(), NewState("query"))

	if outcome.Status != StatusCompleted {
		t.Fatalf("expected recovery to completed, got %s", outcome)
	}
}

func TestConsecutiveSameWorkerTripsGuard(t *testing.T) {
	registry, _ := testRegistry(t)
	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Analyzer"),
		RouteTo("Analyzer"),
		RouteTo("Analyzer"),
		RouteTo("Analyzer"),
	}}

	controller := NewController(registry, oracle, Config{MaxConsecutiveSameWorker: 3}, zap.NewNop())
	state := NewState("query")

	outcome := controller.Run(context.Background(), state)

	if outcome.Status != StatusAborted || outcome.Reason != KindLoopLimitExceeded {
		t.Fatalf("expected aborted with loop_limit_exceeded, got %s", outcome)
	}
	if state.Turn() != 4 {
		t.Fatalf("expected abort at turn 4, got %d", state.Turn())
	}
}

func TestMaxTurnsTripsGuard(t *testing.T) {
	registry, _ := testRegistry(t)

	// Alternate forever so the consecutive-worker check never fires first.
	alternating := OracleFunc(func(_ context.Context, v View, _ *Registry) Decision {
		if v.Turn%2 == 0 {
			return RouteTo("Searcher")
		}
		return RouteTo("Analyzer")
	})

	controller := NewController(registry, alternating, Config{MaxTurns: 5}, zap.NewNop())
	state := NewState("query")

	outcome := controller.Run(context.Background(), state)

	if outcome.Status != StatusAborted || outcome.Reason != KindLoopLimitExceeded {
		t.Fatalf("expected aborted with loop_limit_exceeded, got %s", outcome)
	}
	if state.Turn() != 6 {
		t.Fatalf("expected abort once turn exceeded 5, got turn %d", state.Turn())
	}
}

func TestIdenticalResultRepeatTripsGuard(t *testing.T) {
	constant := &constantAction{content: "same output"}
	registry, err := NewRegistry(Worker{Name: "Analyzer", Description: "static", Action: constant})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	oracle := OracleFunc(func(context.Context, View, *Registry) Decision {
		return RouteTo("Analyzer")
	})

	// Allow plenty of consecutive routes; the repeat detector must fire
	// before the streak limit.
	controller := NewController(registry, oracle, Config{MaxConsecutiveSameWorker: 10}, zap.NewNop())
	outcome := controller.Run(context.Background(), NewState("query"))

	if outcome.Status != StatusAborted || outcome.Reason != KindLoopLimitExceeded {
		t.Fatalf("expected aborted with loop_limit_exceeded, got %s", outcome)
	}
}

type constantAction struct {
	content string
}

func (a *constantAction) Execute(context.Context, Args) (Artifact, error) {
	return Artifact{Kind: "static", Content: a.content}, nil
}

func TestWorkerFailureIsRecordedNotFatal(t *testing.T) {
	failing := &failingAction{err: errors.New("backend unreachable")}
	echo := &echoAction{kind: "cv_summary"}

	registry, err := NewRegistry(
		Worker{Name: "Searcher", Description: "search", Action: failing},
		Worker{Name: "Analyzer", Description: "analyze", Action: echo},
	)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Searcher"),
		RouteTo("Analyzer"),
		Finish(),
	}}

	controller := NewController(registry, oracle, Config{}, zap.NewNop())
	state := NewState("query")

	outcome := controller.Run(context.Background(), state)

	if outcome.Status != StatusCompleted {
		t.Fatalf("expected single failure to be recovered, got %s", outcome)
	}

	var failureRecorded bool
	for _, m := range state.Snapshot().Messages {
		if m.Role == RoleWorker && m.Worker == "Searcher" {
			failureRecorded = true
		}
	}
	if !failureRecorded {
		t.Fatal("expected the failure to be recorded in the history")
	}
}

func TestRepeatedWorkerFailuresAbortRun(t *testing.T) {
	failing := &failingAction{err: errors.New("backend unreachable")}
	registry, err := NewRegistry(Worker{Name: "Searcher", Description: "search", Action: failing})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	oracle := OracleFunc(func(context.Context, View, *Registry) Decision {
		return RouteTo("Searcher")
	})

	controller := NewController(registry, oracle, Config{MaxWorkerFailures: 2, MaxConsecutiveSameWorker: 10}, zap.NewNop())
	outcome := controller.Run(context.Background(), NewState("query"))

	if outcome.Status != StatusAborted || outcome.Reason != KindWorkerFault {
		t.Fatalf("expected aborted with worker_fault, got %s", outcome)
	}
	if failing.calls != 3 {
		t.Fatalf("expected threshold+1 invocations, got %d", failing.calls)
	}
}

func TestWorkerPanicIsContained(t *testing.T) {
	registry, err := NewRegistry(Worker{Name: "Analyzer", Description: "panics", Action: panicAction{}})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	oracle := &scriptedOracle{decisions: []Decision{
		RouteTo("Analyzer"),
		Finish(),
	}}

	controller := NewController(registry, oracle, Config{}, zap.NewNop())
	outcome := controller.Run(context.Background(), NewState("query"))

	if outcome.Status != StatusCompleted {
		t.Fatalf("expected panic to be contained and run to complete, got %s", outcome)
	}
}

type panicAction struct{}

func (panicAction) Execute(context.Context, Args) (Artifact, error) {
	panic("worker exploded")
}

func TestCancellationBetweenCyclesKeepsCommittedState(t *testing.T) {
	registry, _ := testRegistry(t)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel while the second oracle query is in flight; the decision must
	// be drained without committing another mutation.
	oracle := OracleFunc(func(_ context.Context, v View, _ *Registry) Decision {
		if v.Turn >= 2 {
			cancel()
			return RouteTo("Searcher")
		}
		return RouteTo("Analyzer")
	})

	var lastCommitted View
	controller := NewController(registry, oracle, Config{}, zap.NewNop(), WithCommitHook(func(v View) {
		lastCommitted = v
	}))

	state := NewState("query")
	outcome := controller.Run(ctx, state)

	if outcome.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", outcome)
	}

	final := state.Snapshot()
	if final.Turn != lastCommitted.Turn {
		t.Fatalf("state advanced past last commit: %d != %d", final.Turn, lastCommitted.Turn)
	}
	if len(final.Messages) != len(lastCommitted.Messages) {
		t.Fatalf("history mutated after last commit: %d != %d messages", len(final.Messages), len(lastCommitted.Messages))
	}
}

func TestOracleTimeoutBecomesInvalidDecision(t *testing.T) {
	registry, _ := testRegistry(t)

	slow := OracleFunc(func(ctx context.Context, _ View, _ *Registry) Decision {
		<-ctx.Done()
		return RouteTo("Analyzer")
	})

	controller := NewController(registry, slow, Config{OracleTimeout: 10 * time.Millisecond}, zap.NewNop())
	outcome := controller.Run(context.Background(), NewState("query"))

	// Both attempts time out, so the run aborts via the invalid-decision
	// path after the single retry.
	if outcome.Status != StatusAborted || outcome.Reason != KindDecisionInvalid {
		t.Fatalf("expected aborted with decision_invalid, got %s", outcome)
	}
}
