package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

func TestBuildDashboard(t *testing.T) {
	snap := domain.DefaultSnapshot()
	snap.Profile.Username = "alice"
	snap.Profile.IsAuthenticated = true
	snap.SelectedDay = int(time.Wednesday)
	snap.LabResult = domain.LabResult{FastingSugar: 260, PostMealSugar: 190, Date: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}
	snap.Activity = snap.Activity.
		With(domain.SlotDay, domain.FlagFood, true).
		With(domain.SlotNight, domain.FlagMedicine, true)

	d := BuildDashboard(snap)

	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, 45, d.Age)
	assert.Equal(t, domain.ConditionDiabetes, d.Condition)
	assert.Equal(t, "India", d.Region)
	assert.Equal(t, SafetyUrgent, d.Safety.Level)
	assert.Equal(t, 2, d.ActivityDone)
	assert.Equal(t, 7, d.ActivityTotal)
	assert.Equal(t, 2, d.TabletsPerDay)
	assert.Equal(t, "Wednesday", d.DietDay)
	assert.Equal(t, snap.DietPlan[time.Wednesday], d.Diet)
}

func TestBuildDashboardFreshSession(t *testing.T) {
	d := BuildDashboard(domain.DefaultSnapshot())
	assert.Equal(t, SafetyUnknown, d.Safety.Level)
	assert.Equal(t, 0, d.ActivityDone)
	assert.Equal(t, "Sunday", d.DietDay)
}

func TestTodayIndex(t *testing.T) {
	assert.Equal(t, 3, TodayIndex(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, TodayIndex(time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)))
}
