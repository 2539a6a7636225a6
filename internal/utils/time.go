package utils

import (
	"time"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

// Slot boundaries as HH:MM, local time
const (
	AfternoonStart = "12:00"
	NightStart     = "18:00"
)

// TimeToMinutes converts time string to minutes since midnight
func TimeToMinutes(timeStr string) int {
	t, _ := time.Parse("15:04", timeStr)
	return t.Hour()*60 + t.Minute()
}

// SlotAt returns the activity slot t falls into
func SlotAt(t time.Time) domain.Slot {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes >= TimeToMinutes(NightStart):
		return domain.SlotNight
	case minutes >= TimeToMinutes(AfternoonStart):
		return domain.SlotAfternoon
	default:
		return domain.SlotDay
	}
}
