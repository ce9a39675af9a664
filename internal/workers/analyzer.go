package workers

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vkuzmin/jobpilot/internal/ai"
	"github.com/vkuzmin/jobpilot/internal/documents"
	"github.com/vkuzmin/jobpilot/internal/supervisor"
)

//go:embed analyzer_prompt.md
var analyzerPromptTemplate string

// Analyzer summarizes the user's CV with the content generator. The CV is
// read on every invocation so a run always sees the current file.
type Analyzer struct {
	gen    ai.ContentGenerator
	cvPath string
	logger *zap.Logger
}

// NewAnalyzer creates the CV analysis worker.
func NewAnalyzer(gen ai.ContentGenerator, cvPath string, logger *zap.Logger) (*Analyzer, error) {
	if gen == nil {
		return nil, fmt.Errorf("content generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{gen: gen, cvPath: cvPath, logger: logger}, nil
}

// Execute produces the cv_summary artifact.
func (a *Analyzer) Execute(ctx context.Context, args supervisor.Args) (supervisor.Artifact, error) {
	cv, err := documents.LoadCV(a.cvPath)
	if err != nil {
		return supervisor.Artifact{}, err
	}

	prompt := strings.NewReplacer(
		"{{QUERY}}", args.Query,
		"{{CV}}", cv,
	).Replace(analyzerPromptTemplate)

	summary, err := a.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return supervisor.Artifact{}, fmt.Errorf("summarize cv: %w", err)
	}

	a.logger.Info("cv summarized",
		zap.Int("cv_chars", len(cv)),
		zap.Int("summary_chars", len(summary)),
	)

	return supervisor.Artifact{Kind: KindCVSummary, Content: summary}, nil
}
