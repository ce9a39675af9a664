package ai

import "context"

// ContentGenerator produces text from a prompt. It is the seam between the
// supervisor oracle / workers and a concrete model provider.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
