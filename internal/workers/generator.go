package workers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vkuzmin/jobpilot/internal/ai"
	"github.com/vkuzmin/jobpilot/internal/documents"
	"github.com/vkuzmin/jobpilot/internal/headhunter"
	"github.com/vkuzmin/jobpilot/internal/supervisor"
)

//go:embed generator_prompt.md
var generatorPromptTemplate string

// Generator writes a cover letter from the CV summary and the vacancy
// shortlist produced by the other workers. The letter is also written to a
// file under outputDir when the directory is configured.
type Generator struct {
	gen       ai.ContentGenerator
	outputDir string
	logger    *zap.Logger
}

// NewGenerator creates the cover letter worker. An empty outputDir disables
// writing letters to disk.
func NewGenerator(gen ai.ContentGenerator, outputDir string, logger *zap.Logger) (*Generator, error) {
	if gen == nil {
		return nil, fmt.Errorf("content generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{gen: gen, outputDir: outputDir, logger: logger}, nil
}

// Execute produces the cover_letter artifact. A missing CV summary is an
// error: the failure surfaces in the history so the next routing decision
// can send the Analyzer first.
func (g *Generator) Execute(ctx context.Context, args supervisor.Args) (supervisor.Artifact, error) {
	summary, ok := args.Artifact(NameAnalyzer)
	if !ok {
		return supervisor.Artifact{}, fmt.Errorf("cover letter needs a cv summary, analyze the cv first")
	}

	vacancy, label := g.pickVacancy(args)

	prompt := strings.NewReplacer(
		"{{QUERY}}", args.Query,
		"{{PROFILE}}", summary.Content,
		"{{VACANCY}}", vacancy,
	).Replace(generatorPromptTemplate)

	letter, err := g.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return supervisor.Artifact{}, fmt.Errorf("generate cover letter: %w", err)
	}

	if g.outputDir != "" {
		path, err := documents.SaveLetter(g.outputDir, label, letter)
		if err != nil {
			return supervisor.Artifact{}, err
		}
		g.logger.Info("cover letter saved", zap.String("path", path))
	}

	return supervisor.Artifact{Kind: KindCoverLetter, Content: letter}, nil
}

// pickVacancy selects the top entry of the vacancies artifact. Without a
// shortlist the letter is written against the user's request alone.
func (g *Generator) pickVacancy(args supervisor.Args) (rendered, label string) {
	art, ok := args.Artifact(NameSearcher)
	if !ok {
		return "No specific vacancy was selected. Address the letter to the role described in the user request.", "general"
	}

	var listings []headhunter.Listing
	if err := json.Unmarshal([]byte(art.Content), &listings); err != nil || len(listings) == 0 {
		g.logger.Warn("vacancies artifact is not a usable shortlist, falling back to the raw content")
		return art.Content, "general"
	}

	top := listings[0]
	rendered = fmt.Sprintf("%s at %s (%s), salary %s.\nRequirements: %s",
		top.Title, top.Employer, top.Location, top.Salary, top.Requirement)
	return rendered, fmt.Sprintf("%s-%s", top.Employer, top.Title)
}
