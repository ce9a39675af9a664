package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vkuzmin/jobpilot/internal/filtering"
	"github.com/vkuzmin/jobpilot/internal/headhunter"
	"github.com/vkuzmin/jobpilot/internal/supervisor"
)

const defaultListingLimit = 10

// SearchBackend is the vacancy source behind the Searcher worker.
type SearchBackend interface {
	Search(params *headhunter.SearchParams) (*headhunter.Vacancies, error)
}

// Searcher queries the vacancy backend, filters unusable results and stores
// a compact shortlist as the vacancies artifact.
type Searcher struct {
	backend SearchBackend
	params  headhunter.SearchParams
	filters []filtering.Filter
	limit   int
	logger  *zap.Logger
}

// NewSearcher creates the vacancy search worker. The params are a template:
// an empty Text falls back to the user's request at invocation time.
func NewSearcher(backend SearchBackend, params headhunter.SearchParams, filters []filtering.Filter, limit int, logger *zap.Logger) (*Searcher, error) {
	if backend == nil {
		return nil, fmt.Errorf("search backend is required")
	}
	if limit <= 0 {
		limit = defaultListingLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Searcher{
		backend: backend,
		params:  params,
		filters: filters,
		limit:   limit,
		logger:  logger,
	}, nil
}

// Execute produces the vacancies artifact. When the first pass yields
// nothing, the query is widened once before reporting an empty shortlist.
func (s *Searcher) Execute(ctx context.Context, args supervisor.Args) (supervisor.Artifact, error) {
	params := s.params
	if strings.TrimSpace(params.Text) == "" {
		params.Text = args.Query
	}

	found, err := s.searchFiltered(ctx, &params)
	if err != nil {
		return supervisor.Artifact{}, err
	}

	if found.Len() == 0 && s.widen(&params, args.Query) {
		s.logger.Info("no vacancies found, widening the query once",
			zap.String("text", params.Text),
		)
		if found, err = s.searchFiltered(ctx, &params); err != nil {
			return supervisor.Artifact{}, err
		}
	}

	listings := found.Listings(s.limit)
	content, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return supervisor.Artifact{}, fmt.Errorf("encode shortlist: %w", err)
	}

	s.logger.Info("vacancy search finished",
		zap.Int("found", found.Len()),
		zap.Int("shortlisted", len(listings)),
	)

	return supervisor.Artifact{Kind: KindVacancies, Content: string(content)}, nil
}

func (s *Searcher) searchFiltered(ctx context.Context, params *headhunter.SearchParams) (*headhunter.Vacancies, error) {
	found, err := s.backend.Search(params)
	if err != nil {
		return nil, fmt.Errorf("search vacancies: %w", err)
	}

	return filtering.Run(ctx, s.logger, s.filters, found)
}

// widen relaxes the parameters for a single retry. It reports whether the
// retry differs from the first attempt at all.
func (s *Searcher) widen(params *headhunter.SearchParams, query string) bool {
	changed := false
	if params.SearchField != "" {
		params.SearchField = ""
		changed = true
	}
	if params.Experience != "" {
		params.Experience = ""
		changed = true
	}
	if query = strings.TrimSpace(query); query != "" && params.Text != query {
		params.Text = query
		changed = true
	}
	return changed
}
