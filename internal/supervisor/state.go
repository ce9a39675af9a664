package supervisor

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Role marks the author of a message in the run history.
type Role string

const (
	RoleUser       Role = "user"
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
)

// Message is a single entry of the run history. The history is append-only
// within a run.
type Message struct {
	Role    Role      `json:"role"`
	Worker  string    `json:"worker,omitempty"`
	Content string    `json:"content"`
	Turn    int       `json:"turn"`
	Time    time.Time `json:"time"`
}

// Artifact is a named piece of output produced by a worker, keyed by its
// producer in the shared state.
type Artifact struct {
	Producer  string    `json:"producer"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Hash returns a stable digest of the artifact payload. The loop guard uses
// it to detect non-progressing (worker, result) repeats.
func (a Artifact) Hash() string {
	sum := sha256.Sum256([]byte(a.Kind + "\x00" + a.Content))
	return fmt.Sprintf("%x", sum[:])
}

// SharedState is the evolving record of one run: the ordered message
// history, the artifacts produced so far and the routing metadata. It is
// owned exclusively by the controller; workers and oracles only ever see a
// View of it.
type SharedState struct {
	input      string
	turn       int
	nextWorker string
	messages   []Message
	artifacts  map[string]Artifact
}

// NewState creates the state for a fresh run from the initial user input.
// The first cycle runs at turn 1.
func NewState(input string) *SharedState {
	s := &SharedState{
		input:     input,
		turn:      1,
		artifacts: make(map[string]Artifact),
	}
	s.appendMessage(Message{
		Role:    RoleUser,
		Content: input,
		Time:    time.Now().UTC(),
	})
	return s
}

// Input returns the original user request.
func (s *SharedState) Input() string { return s.input }

// Turn returns the current controller cycle number, starting at 1.
func (s *SharedState) Turn() int { return s.turn }

func (s *SharedState) appendMessage(m Message) {
	m.Turn = s.turn
	if m.Time.IsZero() {
		m.Time = time.Now().UTC()
	}
	s.messages = append(s.messages, m)
}

func (s *SharedState) setArtifact(a Artifact) {
	if s.artifacts == nil {
		s.artifacts = make(map[string]Artifact)
	}
	s.artifacts[a.Producer] = a
}

func (s *SharedState) setNextWorker(name string) { s.nextWorker = name }

// clearNextWorker resets the routing field after the invocation is done, so
// the next oracle query never sees a stale choice.
func (s *SharedState) clearNextWorker() { s.nextWorker = "" }

func (s *SharedState) advance() { s.turn++ }

// View is a read-only copy of the shared state handed to oracles and
// workers. Mutating a View never affects the run.
type View struct {
	Input     string
	Turn      int
	Messages  []Message
	Artifacts map[string]Artifact
}

// Snapshot returns a deep copy of the current state.
func (s *SharedState) Snapshot() View {
	v := View{
		Input:     s.input,
		Turn:      s.turn,
		Messages:  make([]Message, len(s.messages)),
		Artifacts: make(map[string]Artifact, len(s.artifacts)),
	}
	copy(v.Messages, s.messages)
	for k, a := range s.artifacts {
		v.Artifacts[k] = a
	}
	return v
}

// Artifact returns the artifact produced by the named worker, if any.
func (v View) Artifact(producer string) (Artifact, bool) {
	a, ok := v.Artifacts[producer]
	return a, ok
}

// stateRecord is the self-describing persisted layout of a state snapshot.
// It carries everything needed to resume a run from the last committed
// cycle.
type stateRecord struct {
	Input      string              `json:"input"`
	Turn       int                 `json:"turn"`
	NextWorker string              `json:"next_worker,omitempty"`
	Messages   []Message           `json:"messages"`
	Artifacts  map[string]Artifact `json:"artifacts"`
}

// MarshalJSON serializes the full state, ordered messages included.
func (s *SharedState) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateRecord{
		Input:      s.input,
		Turn:       s.turn,
		NextWorker: s.nextWorker,
		Messages:   s.messages,
		Artifacts:  s.artifacts,
	})
}

// UnmarshalJSON restores a state previously produced by MarshalJSON.
func (s *SharedState) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode state record: %w", err)
	}

	s.input = rec.Input
	s.turn = rec.Turn
	s.nextWorker = rec.NextWorker
	s.messages = rec.Messages
	s.artifacts = rec.Artifacts
	if s.artifacts == nil {
		s.artifacts = make(map[string]Artifact)
	}
	if s.turn < 1 {
		s.turn = 1
	}

	return nil
}
