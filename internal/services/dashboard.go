package services

import (
	"time"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

// Dashboard is the summary shown after login
type Dashboard struct {
	Username      string                `json:"username"`
	Age           int                   `json:"age"`
	Condition     domain.Condition      `json:"condition"`
	Region        string                `json:"region"`
	LabResult     domain.LabResult      `json:"labResult"`
	Safety        SafetyResult          `json:"safety"`
	ActivityDone  int                   `json:"activityDone"`
	ActivityTotal int                   `json:"activityTotal"`
	TabletsPerDay int                   `json:"tabletsPerDay"`
	Medication    domain.MedicationPlan `json:"medication"`
	DietDay       string                `json:"dietDay"`
	Diet          domain.DietEntry      `json:"diet"`
}

// BuildDashboard derives the dashboard from a snapshot
func BuildDashboard(snap domain.Snapshot) Dashboard {
	done, total := snap.Activity.Progress()
	day, diet, _ := snap.SelectedDiet()

	return Dashboard{
		Username:      snap.Profile.Username,
		Age:           snap.Profile.Age,
		Condition:     snap.Profile.Condition,
		Region:        snap.Profile.Region,
		LabResult:     snap.LabResult,
		Safety:        CheckGlucoseSafety(snap.LabResult),
		ActivityDone:  done,
		ActivityTotal: total,
		TabletsPerDay: snap.Medication.Total(),
		Medication:    snap.Medication,
		DietDay:       day.String(),
		Diet:          diet,
	}
}

// TodayIndex is the diet plan index for t
func TodayIndex(t time.Time) int {
	return int(t.Weekday())
}
