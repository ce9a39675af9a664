package supervisor

import (
	"context"
	"fmt"
	"strings"
)

// Args is the structured input the controller derives from the shared state
// for one worker invocation: the original request plus copies of every
// artifact produced so far.
type Args struct {
	Query     string
	Artifacts map[string]Artifact
}

// Artifact returns the artifact produced by the named worker, if present.
func (a Args) Artifact(producer string) (Artifact, bool) {
	art, ok := a.Artifacts[producer]
	return art, ok
}

// Action is the seam to the actual task implementations (document analysis,
// search backend, text generation). Implementations must honor the context
// and report faults as errors, never by panicking past this interface.
type Action interface {
	Execute(ctx context.Context, args Args) (Artifact, error)
}

// Worker is an immutable descriptor of one specialized task handler. The
// description is what the decision oracle sees when choosing a route.
type Worker struct {
	Name        string
	Description string
	Action      Action
}

// Registry is the static mapping from worker name to descriptor. It is
// built once at startup and fixed for the lifetime of a run.
type Registry struct {
	order   []string
	workers map[string]Worker
}

// NewRegistry builds a registry from the given workers, preserving their
// order. Duplicate or empty names and nil actions are rejected.
func NewRegistry(workers ...Worker) (*Registry, error) {
	r := &Registry{workers: make(map[string]Worker, len(workers))}

	for _, w := range workers {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return nil, fmt.Errorf("worker name must not be empty")
		}
		if w.Action == nil {
			return nil, fmt.Errorf("worker %s has no action", name)
		}
		if _, exists := r.workers[name]; exists {
			return nil, fmt.Errorf("duplicate worker name: %s", name)
		}

		w.Name = name
		r.workers[name] = w
		r.order = append(r.order, name)
	}

	if len(r.order) == 0 {
		return nil, fmt.Errorf("registry requires at least one worker")
	}

	return r, nil
}

// Get resolves a worker by name. Unknown names fail closed with ok=false.
func (r *Registry) Get(name string) (Worker, bool) {
	w, ok := r.workers[name]
	return w, ok
}

// Names returns the worker names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered workers.
func (r *Registry) Len() int { return len(r.order) }

// Describe renders one "name: description" line per worker for oracle
// prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		w := r.workers[name]
		b.WriteString(fmt.Sprintf("- %s: %s\n", w.Name, w.Description))
	}
	return b.String()
}
