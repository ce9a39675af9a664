package headhunter

import (
	"fmt"
	"strings"
)

const (
	VacancyIDField         = "ID"
	VacancyEmployerIDField = "EmployerID"
	VacancyEmployerName    = "EmployerName"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Area    Area   `json:"area,omitempty"`
	HasTest bool   `json:"has_test,omitempty"`
	Salary  Salary `json:"salary,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer     Employer `json:"employer,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	AlternateURL string   `json:"alternate_url,omitempty"`
	Employment   struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employment,omitempty"`
	Description string `json:"description,omitempty"`
	KeySkills   []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Archived bool    `json:"archived,omitempty"`
	Snippet  Snippet `json:"snippet,omitempty"`
	ProfessionalRoles []struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"professional_roles,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type Area struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

func (s Salary) String() string {
	if s.From == 0 && s.To == 0 {
		return "not disclosed"
	}
	return fmt.Sprintf("%d-%d %s", s.From, s.To, s.Currency)
}

type Employer struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	URL          string `json:"url,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Trusted      bool   `json:"trusted,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

// Listing is the compact vacancy representation handed to the language
// model and shown to the user: enough to judge a match, small enough to fit
// many into a prompt.
type Listing struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Employer       string `json:"employer"`
	EmployerURL    string `json:"employer_url,omitempty"`
	Location       string `json:"location,omitempty"`
	Salary         string `json:"salary,omitempty"`
	URL            string `json:"url,omitempty"`
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

func (va *Vacancy) GetStringField(name string) string {
	switch name {
	case VacancyIDField:
		return va.ID
	case VacancyEmployerIDField:
		return va.Employer.ID
	case VacancyEmployerName:
		return va.Employer.Name
	default:
		return ""
	}
}

// Exclude removes vacancies whose named field matches any of the targets
// and returns the removed IDs. Matching is case-insensitive.
func (v *Vacancies) Exclude(name string, targets []string) []string {
	var excluded []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		value := vacancy.GetStringField(name)
		if matchesAny(value, targets) {
			excluded = append(excluded, vacancy.ID)
			continue
		}
		kept = append(kept, vacancy)
	}
	v.Items = kept
	return excluded
}

// DropWithTest removes vacancies that require an employer test and returns
// the removed IDs.
func (v *Vacancies) DropWithTest() []string {
	return v.drop(func(vc *Vacancy) bool { return vc.HasTest })
}

// DropArchived removes archived vacancies and returns the removed IDs.
func (v *Vacancies) DropArchived() []string {
	return v.drop(func(vc *Vacancy) bool { return vc.Archived })
}

func (v *Vacancies) drop(match func(*Vacancy) bool) []string {
	var excluded []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		if match(vacancy) {
			excluded = append(excluded, vacancy.ID)
			continue
		}
		kept = append(kept, vacancy)
	}
	v.Items = kept
	return excluded
}

// Listings renders at most limit vacancies as compact listings. A
// non-positive limit renders everything.
func (v *Vacancies) Listings(limit int) []Listing {
	if limit <= 0 || limit > len(v.Items) {
		limit = len(v.Items)
	}

	listings := make([]Listing, 0, limit)
	for _, vacancy := range v.Items[:limit] {
		listings = append(listings, Listing{
			ID:             vacancy.ID,
			Title:          vacancy.Name,
			Employer:       vacancy.Employer.Name,
			EmployerURL:    vacancy.Employer.AlternateURL,
			Location:       vacancy.Area.Name,
			Salary:         vacancy.Salary.String(),
			URL:            vacancy.AlternateURL,
			Requirement:    vacancy.Snippet.Requirement,
			Responsibility: vacancy.Snippet.Responsibility,
		})
	}
	return listings
}

func matchesAny(value string, targets []string) bool {
	for _, target := range targets {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
