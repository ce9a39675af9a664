package supervisor

import "fmt"

const (
	// DefaultMaxTurns bounds the total number of controller cycles.
	DefaultMaxTurns = 25
	// DefaultMaxConsecutiveSameWorker bounds immediate routing oscillation.
	DefaultMaxConsecutiveSameWorker = 3
)

// Guard bounds run length and detects non-progressing routing cycles. The
// thresholds are policy, not inferred behavior; callers tune them via
// Config.
type Guard struct {
	maxTurns       int
	maxConsecutive int

	lastWorker string
	streak     int
	seen       map[string]struct{}
}

// NewGuard creates a guard with the given limits. Non-positive limits fall
// back to the defaults.
func NewGuard(maxTurns, maxConsecutive int) *Guard {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxConsecutive <= 0 {
		maxConsecutive = DefaultMaxConsecutiveSameWorker
	}
	return &Guard{
		maxTurns:       maxTurns,
		maxConsecutive: maxConsecutive,
		seen:           make(map[string]struct{}),
	}
}

// Allow reports whether another cycle may start at the given turn.
func (g *Guard) Allow(turn int) error {
	if turn > g.maxTurns {
		return fmt.Errorf("turn limit reached: %d of %d", turn, g.maxTurns)
	}
	return nil
}

// NoteRoute records a routing choice and fails once the same worker has
// been chosen more than the consecutive limit in a row.
func (g *Guard) NoteRoute(worker string) error {
	if worker == g.lastWorker {
		g.streak++
	} else {
		g.lastWorker = worker
		g.streak = 1
	}

	if g.streak > g.maxConsecutive {
		return fmt.Errorf("worker %s chosen %d consecutive times (limit %d)", worker, g.streak, g.maxConsecutive)
	}
	return nil
}

// NoteResult records a (worker, artifact hash) pair and fails on an exact
// global repeat, which indicates the run is no longer making progress.
func (g *Guard) NoteResult(worker, artifactHash string) error {
	key := worker + "\x00" + artifactHash
	if _, ok := g.seen[key]; ok {
		return fmt.Errorf("worker %s produced an identical result twice", worker)
	}
	g.seen[key] = struct{}{}
	return nil
}
