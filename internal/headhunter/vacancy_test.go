package headhunter

import "testing"

func sampleVacancies() *Vacancies {
	return &Vacancies{
		Items: []*Vacancy{
			{
				ID:       "1",
				Name:     "Go Developer",
				Employer: Employer{ID: "emp1", Name: "Acme"},
				Area:     Area{Name: "Berlin"},
				Salary:   Salary{From: 60000, To: 80000, Currency: "EUR"},
				Snippet:  Snippet{Requirement: "Strong Go skills"},
			},
			{
				ID:       "2",
				Name:     "Python Developer",
				Employer: Employer{ID: "emp2", Name: "Globex"},
				HasTest:  true,
			},
			{
				ID:       "3",
				Name:     "Data Scientist",
				Employer: Employer{ID: "emp1", Name: "Acme"},
				Archived: true,
			},
		},
	}
}

func TestExcludeByEmployerName(t *testing.T) {
	t.Parallel()

	v := sampleVacancies()
	excluded := v.Exclude(VacancyEmployerName, []string{"acme"})

	if len(excluded) != 2 {
		t.Fatalf("expected 2 excluded, got %d", len(excluded))
	}
	if v.Len() != 1 {
		t.Fatalf("expected 1 left, got %d", v.Len())
	}
	if v.Items[0].ID != "2" {
		t.Fatalf("wrong vacancy left: %s", v.Items[0].ID)
	}
}

func TestDropWithTestAndArchived(t *testing.T) {
	t.Parallel()

	v := sampleVacancies()

	withTest := v.DropWithTest()
	if len(withTest) != 1 || withTest[0] != "2" {
		t.Fatalf("unexpected with-test drops: %v", withTest)
	}

	archived := v.DropArchived()
	if len(archived) != 1 || archived[0] != "3" {
		t.Fatalf("unexpected archived drops: %v", archived)
	}

	if v.Len() != 1 || v.Items[0].ID != "1" {
		t.Fatalf("expected only vacancy 1 to survive")
	}
}

func TestListingsRespectsLimit(t *testing.T) {
	t.Parallel()

	v := sampleVacancies()

	listings := v.Listings(2)
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].Title != "Go Developer" || listings[0].Employer != "Acme" {
		t.Fatalf("unexpected first listing: %+v", listings[0])
	}
	if listings[0].Salary != "60000-80000 EUR" {
		t.Fatalf("unexpected salary rendering: %s", listings[0].Salary)
	}

	all := v.Listings(0)
	if len(all) != v.Len() {
		t.Fatalf("expected all listings, got %d", len(all))
	}
}

func TestSalaryStringNotDisclosed(t *testing.T) {
	t.Parallel()

	if got := (Salary{}).String(); got != "not disclosed" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestFindByID(t *testing.T) {
	t.Parallel()

	v := sampleVacancies()
	if found := v.FindByID("2"); found == nil || found.Name != "Python Developer" {
		t.Fatalf("unexpected result: %+v", found)
	}
	if v.FindByID("missing") != nil {
		t.Fatal("expected nil for unknown id")
	}
}
