// Package workers contains the specialized task handlers the supervisor
// routes between: CV analysis, vacancy search and cover letter generation.
package workers

import (
	"fmt"

	"github.com/vkuzmin/jobpilot/internal/supervisor"
)

// Worker names as the decision oracle sees them.
const (
	NameAnalyzer  = "Analyzer"
	NameSearcher  = "Searcher"
	NameGenerator = "Generator"
)

// Artifact kinds produced by the workers.
const (
	KindCVSummary   = "cv_summary"
	KindVacancies   = "vacancies"
	KindCoverLetter = "cover_letter"
)

// NewRegistry assembles the standard worker set into a supervisor registry.
func NewRegistry(analyzer *Analyzer, searcher *Searcher, generator *Generator) (*supervisor.Registry, error) {
	if analyzer == nil || searcher == nil || generator == nil {
		return nil, fmt.Errorf("all workers must be provided")
	}

	return supervisor.NewRegistry(
		supervisor.Worker{
			Name:        NameAnalyzer,
			Description: "analyzes the user's CV and produces a concise summary of skills, experience and education",
			Action:      analyzer,
		},
		supervisor.Worker{
			Name:        NameSearcher,
			Description: "searches job vacancies matching the request and returns a shortlist of relevant openings",
			Action:      searcher,
		},
		supervisor.Worker{
			Name:        NameGenerator,
			Description: "writes a tailored cover letter for a found vacancy using the CV summary",
			Action:      generator,
		},
	)
}
