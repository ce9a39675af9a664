package filtering

import (
	"context"

	"github.com/vkuzmin/jobpilot/internal/headhunter"
)

type withTestFilter struct{}

// NewWithTest creates a filter that removes vacancies requiring an employer
// test. It is impossible to act on them automatically.
func NewWithTest() Filter {
	return &withTestFilter{}
}

func (f *withTestFilter) Name() string { return "with_test" }

func (f *withTestFilter) Apply(_ context.Context, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	excluded := v.DropWithTest()
	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

type archivedFilter struct{}

// NewArchived creates a filter that removes archived vacancies.
func NewArchived() Filter {
	return &archivedFilter{}
}

func (f *archivedFilter) Name() string { return "archived" }

func (f *archivedFilter) Apply(_ context.Context, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	excluded := v.DropArchived()
	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

type employersFilter struct {
	employers []string
}

// NewEmployers creates a filter that removes vacancies from the configured
// employers.
func NewEmployers(employers []string) Filter {
	return &employersFilter{employers: employers}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Apply(_ context.Context, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if len(f.employers) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Exclude(headhunter.VacancyEmployerName, f.employers)
	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}
