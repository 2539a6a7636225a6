package domain

import (
	"encoding/json"
	"fmt"
)

// Page identifies the view currently shown to the patient
type Page int

const (
	PageLogin Page = iota
	PageDashboard
	PageSettings
	PageActivity
	PageDietPlan
	PageTestUpload
	PageMedication
)

var pageNames = [...]string{
	PageLogin:      "login",
	PageDashboard:  "dashboard",
	PageSettings:   "settings",
	PageActivity:   "activity",
	PageDietPlan:   "diet-plan",
	PageTestUpload: "test-upload",
	PageMedication: "medication",
}

// Pages returns every page in declaration order
func Pages() []Page {
	pages := make([]Page, len(pageNames))
	for i := range pageNames {
		pages[i] = Page(i)
	}
	return pages
}

// Valid reports whether p is a known page
func (p Page) Valid() bool {
	return p >= PageLogin && int(p) < len(pageNames)
}

func (p Page) String() string {
	if !p.Valid() {
		return fmt.Sprintf("page(%d)", int(p))
	}
	return pageNames[p]
}

// ParsePage resolves a page identifier such as "diet-plan"
func ParsePage(s string) (Page, error) {
	for i, name := range pageNames {
		if name == s {
			return Page(i), nil
		}
	}
	return 0, fmt.Errorf("unknown page %q", s)
}

// MarshalJSON encodes the page as its identifier
func (p Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a page identifier
func (p *Page) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePage(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// VisiblePage is the page to render for the given authentication state
func VisiblePage(authenticated bool, stored Page) Page {
	if !authenticated {
		return PageLogin
	}
	if !stored.Valid() {
		return PageDashboard
	}
	return stored
}
