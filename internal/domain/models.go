package domain

import (
	"fmt"
	"strings"
	"time"
)

// Condition is the chronic condition a patient is tracked for
type Condition string

const (
	ConditionDiabetes     Condition = "diabetes"
	ConditionHypertension Condition = "hypertension"
	ConditionBoth         Condition = "both"
)

// Conditions lists every supported condition in display order
func Conditions() []Condition {
	return []Condition{ConditionDiabetes, ConditionHypertension, ConditionBoth}
}

// ParseCondition accepts a condition name in any case
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the supported conditions
func (c Condition) Valid() bool {
	switch c {
	case ConditionDiabetes, ConditionHypertension, ConditionBoth:
		return true
	}
	return false
}

// Regions is the fixed list of countries a profile can be set to
var Regions = []string{
	"India",
	"Sri Lanka",
	"Bangladesh",
	"Pakistan",
	"Nepal",
	"United States",
	"United Kingdom",
	"Canada",
	"Australia",
	"Germany",
}

// IsKnownRegion reports whether region is in Regions (exact match)
func IsKnownRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

// UserProfile is the patient's profile within one session
type UserProfile struct {
	Username        string    `json:"username"`
	Age             int       `json:"age"`
	Condition       Condition `json:"condition"`
	Region          string    `json:"region"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// LabResult is the latest submitted blood sugar test (mg/dL).
// A zero Date means nothing was submitted yet.
type LabResult struct {
	FastingSugar  float64   `json:"fastingSugar"`
	PostMealSugar float64   `json:"postMealSugar"`
	Date          time.Time `json:"date"`
}

// Submitted reports whether a result was ever entered
func (r LabResult) Submitted() bool {
	return !r.Date.IsZero()
}

// DateString formats Date as an ISO calendar date
func (r LabResult) DateString() string {
	if !r.Submitted() {
		return ""
	}
	return r.Date.Format(time.DateOnly)
}

// MedicationPlan is the number of tablets per slot
type MedicationPlan struct {
	Day       int `json:"day"`
	Afternoon int `json:"afternoon"`
	Night     int `json:"night"`
}

// Total returns the tablets per day
func (p MedicationPlan) Total() int {
	return p.Day + p.Afternoon + p.Night
}

// Snapshot is the complete application record of one session.
// All fields are values, so copying a Snapshot copies everything.
type Snapshot struct {
	Profile     UserProfile    `json:"profile"`
	LabResult   LabResult      `json:"labResult"`
	SelectedDay int            `json:"selectedDay"`
	DietPlan    WeeklyDietPlan `json:"dietPlan"`
	Activity    ActivityLog    `json:"todayActivity"`
	Medication  MedicationPlan `json:"medicationPlan"`
	Page        Page           `json:"page"`
}

// VisiblePage applies the display rule: login while unauthenticated,
// dashboard for an unrecognised page, the stored page otherwise.
func (s Snapshot) VisiblePage() Page {
	return VisiblePage(s.Profile.IsAuthenticated, s.Page)
}

// SelectedDiet returns the diet entry for SelectedDay
func (s Snapshot) SelectedDiet() (time.Weekday, DietEntry, bool) {
	entry, ok := s.DietPlan.Entry(s.SelectedDay)
	return time.Weekday(s.SelectedDay), entry, ok
}

// DefaultSnapshot is the state every new session starts from
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Profile: UserProfile{
			Age:       45,
			Condition: ConditionDiabetes,
			Region:    "India",
		},
		DietPlan:   DefaultDietPlan(),
		Medication: MedicationPlan{Day: 1, Afternoon: 0, Night: 1},
		Page:       PageLogin,
	}
}
