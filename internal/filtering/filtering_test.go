package filtering

import (
	"context"
	"errors"
	"testing"

	"github.com/vkuzmin/jobpilot/internal/headhunter"
	"go.uber.org/zap"
)

func testVacancies() *headhunter.Vacancies {
	return &headhunter.Vacancies{
		Items: []*headhunter.Vacancy{
			{ID: "1", Name: "Go Developer", Employer: headhunter.Employer{Name: "Acme"}},
			{ID: "2", Name: "Tested Role", HasTest: true, Employer: headhunter.Employer{Name: "Globex"}},
			{ID: "3", Name: "Old Role", Archived: true, Employer: headhunter.Employer{Name: "Initech"}},
			{ID: "4", Name: "Banned Role", Employer: headhunter.Employer{Name: "Evil Corp"}},
		},
	}
}

func TestRunAppliesAllSteps(t *testing.T) {
	t.Parallel()

	steps := []Filter{
		NewWithTest(),
		NewArchived(),
		NewEmployers([]string{"evil corp"}),
	}

	result, err := Run(context.Background(), zap.NewNop(), steps, testVacancies())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Len() != 1 {
		t.Fatalf("expected 1 vacancy left, got %d", result.Len())
	}
	if result.Items[0].ID != "1" {
		t.Fatalf("wrong vacancy survived: %s", result.Items[0].ID)
	}
}

func TestRunStopsOnStepError(t *testing.T) {
	t.Parallel()

	steps := []Filter{failingFilter{}, NewWithTest()}

	if _, err := Run(context.Background(), zap.NewNop(), steps, testVacancies()); err == nil {
		t.Fatal("expected error from failing step")
	}
}

func TestEmployersFilterWithoutConfigIsNoop(t *testing.T) {
	t.Parallel()

	v := testVacancies()
	result, step, err := NewEmployers(nil).Apply(context.Background(), v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 0 || result.Len() != 4 {
		t.Fatalf("expected noop, dropped %d", step.Dropped)
	}
}

type failingFilter struct{}

func (failingFilter) Name() string { return "failing" }

func (failingFilter) Apply(context.Context, *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	return nil, Step{}, errors.New("boom")
}
