package domain

import (
	"fmt"
	"strings"
)

// Slot is one of the three daily time periods
type Slot string

const (
	SlotDay       Slot = "day"
	SlotAfternoon Slot = "afternoon"
	SlotNight     Slot = "night"
)

// Slots returns the slots in chronological order
func Slots() []Slot {
	return []Slot{SlotDay, SlotAfternoon, SlotNight}
}

// ParseSlot accepts a slot name in any case
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("unknown slot %q", s)
	}
	return slot, nil
}

// Valid reports whether s is a known slot
func (s Slot) Valid() bool {
	switch s {
	case SlotDay, SlotAfternoon, SlotNight:
		return true
	}
	return false
}

// ActivityFlag names one checkbox within a slot
type ActivityFlag string

const (
	FlagFood     ActivityFlag = "food"
	FlagMedicine ActivityFlag = "medicine"
	FlagExercise ActivityFlag = "exercise"
)

// ParseActivityFlag accepts a flag name in any case
func ParseActivityFlag(s string) (ActivityFlag, error) {
	f := ActivityFlag(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FlagFood, FlagMedicine, FlagExercise:
		return f, nil
	}
	return "", fmt.Errorf("unknown activity flag %q", s)
}

// Flags returns the flags tracked for slot; exercise only exists in the day slot
func (s Slot) Flags() []ActivityFlag {
	if s == SlotDay {
		return []ActivityFlag{FlagFood, FlagMedicine, FlagExercise}
	}
	return []ActivityFlag{FlagFood, FlagMedicine}
}

// Allows reports whether flag is tracked in slot
func (s Slot) Allows(flag ActivityFlag) bool {
	for _, f := range s.Flags() {
		if f == flag {
			return true
		}
	}
	return false
}

// SlotActivity holds the checkboxes of one slot
type SlotActivity struct {
	Food     bool `json:"food"`
	Medicine bool `json:"medicine"`
	Exercise bool `json:"exercise,omitempty"`
}

// Flag returns the value of flag
func (a SlotActivity) Flag(flag ActivityFlag) bool {
	switch flag {
	case FlagFood:
		return a.Food
	case FlagMedicine:
		return a.Medicine
	case FlagExercise:
		return a.Exercise
	}
	return false
}

// WithFlag returns a copy of a with flag set to value
func (a SlotActivity) WithFlag(flag ActivityFlag, value bool) SlotActivity {
	switch flag {
	case FlagFood:
		a.Food = value
	case FlagMedicine:
		a.Medicine = value
	case FlagExercise:
		a.Exercise = value
	}
	return a
}

// ActivityLog is today's checklist. There is no history.
type ActivityLog struct {
	Day       SlotActivity `json:"day"`
	Afternoon SlotActivity `json:"afternoon"`
	Night     SlotActivity `json:"night"`
}

// Slot returns the checkboxes of slot
func (l ActivityLog) Slot(slot Slot) SlotActivity {
	switch slot {
	case SlotAfternoon:
		return l.Afternoon
	case SlotNight:
		return l.Night
	default:
		return l.Day
	}
}

// With returns a copy of l with one flag changed
func (l ActivityLog) With(slot Slot, flag ActivityFlag, value bool) ActivityLog {
	switch slot {
	case SlotDay:
		l.Day = l.Day.WithFlag(flag, value)
	case SlotAfternoon:
		l.Afternoon = l.Afternoon.WithFlag(flag, value)
	case SlotNight:
		l.Night = l.Night.WithFlag(flag, value)
	}
	return l
}

// Progress counts checked flags against all tracked flags
func (l ActivityLog) Progress() (done, total int) {
	for _, slot := range Slots() {
		a := l.Slot(slot)
		for _, f := range slot.Flags() {
			total++
			if a.Flag(f) {
				done++
			}
		}
	}
	return done, total
}

// Pending lists the unchecked flags of slot
func (l ActivityLog) Pending(slot Slot) []ActivityFlag {
	var pending []ActivityFlag
	a := l.Slot(slot)
	for _, f := range slot.Flags() {
		if !a.Flag(f) {
			pending = append(pending, f)
		}
	}
	return pending
}
