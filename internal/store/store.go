// Package store holds the application record of one session. Every mutation
// derives a new domain.Snapshot from the current one and swaps it in, so a
// snapshot handed out earlier never changes underneath its reader.
package store

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/navigation"
)

// Op names the store operation that produced a change
type Op string

const (
	OpLogin               Op = "login"
	OpLogout              Op = "logout"
	OpUpdateSettings      Op = "update_settings"
	OpUpdateTestResult    Op = "update_test_result"
	OpUpdateTodayActivity Op = "update_today_activity"
	OpUpdateMedication    Op = "update_medication_plan"
	OpSelectDay           Op = "select_day"
	OpNavigate            Op = "navigate"
)

// Listener is called after every successful mutation, including ones that
// leave the snapshot unchanged.
// Listeners must not mutate the store they are subscribed to.
type Listener func(op Op, prev, next domain.Snapshot)

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used to date lab results
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store owns one session's snapshot and its navigation controller
type Store struct {
	mu   sync.Mutex
	snap domain.Snapshot
	nav  *navigation.Controller

	writeMu   sync.Mutex
	listeners map[int]Listener
	nextID    int

	now    func() time.Time
	logger *slog.Logger
}

// New creates a store holding domain.DefaultSnapshot
func New(nav *navigation.Controller, opts ...Option) *Store {
	s := &Store{
		nav:       nav,
		listeners: make(map[int]Listener),
		now:       time.Now,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.nav == nil {
		s.nav = navigation.NewController(s.logger)
	}

	s.snap = domain.DefaultSnapshot()
	s.snap.Page = s.nav.Current()
	return s
}

// Snapshot returns the current record
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers l and returns a function that removes it.
// Neither may be called from inside a listener.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		delete(s.listeners, id)
	}
}

// apply runs change against the current snapshot. On error nothing is
// replaced and no listener fires.
func (s *Store) apply(ctx context.Context, op Op, change func(domain.Snapshot) (domain.Snapshot, error)) (domain.Snapshot, error) {
	// writeMu serialises writers so listeners observe mutations in order,
	// while mu stays free for readers during notification.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.snap
	next, err := change(prev)
	if err != nil {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Mutation rejected", "op", op, "error", err)
		return prev, err
	}
	next.Page = s.nav.Current()
	s.snap = next
	s.mu.Unlock()

	for _, l := range s.listeners {
		l(op, prev, next)
	}
	return next, nil
}

// Login accepts any non-empty username/password pair. The password is not kept.
func (s *Store) Login(ctx context.Context, username, password string) (domain.Snapshot, error) {
	next, err := s.apply(ctx, OpLogin, func(snap domain.Snapshot) (domain.Snapshot, error) {
		var fields fieldErrors
		if username == "" {
			fields.add("username", "is required")
		}
		if password == "" {
			fields.add("password", "is required")
		}
		if err := fields.err(apperrors.ErrEmptyCredentials); err != nil {
			return snap, err
		}

		if err := s.nav.Navigate(ctx, domain.PageDashboard); err != nil {
			return snap, err
		}
		snap.Profile.Username = username
		snap.Profile.IsAuthenticated = true
		return snap, nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "User logged in", "username", username)
	}
	return next, err
}

// Logout clears authentication and returns to the login page. Calling it
// repeatedly has the same effect as calling it once.
func (s *Store) Logout(ctx context.Context) (domain.Snapshot, error) {
	return s.apply(ctx, OpLogout, func(snap domain.Snapshot) (domain.Snapshot, error) {
		if err := s.nav.Navigate(ctx, domain.PageLogin); err != nil {
			return snap, err
		}
		snap.Profile.IsAuthenticated = false
		return snap, nil
	})
}

// SettingsUpdate carries the profile fields to change; nil fields are left alone
type SettingsUpdate struct {
	Username  *string           `json:"username,omitempty"`
	Age       *int              `json:"age,omitempty"`
	Condition *domain.Condition `json:"condition,omitempty"`
	Region    *string           `json:"region,omitempty"`
}

// MaxAge bounds the accepted profile age
const MaxAge = 130

// Validate checks every present field and reports all failures at once
func (u SettingsUpdate) Validate() error {
	var fields fieldErrors
	if u.Username != nil && *u.Username == "" {
		fields.add("username", "must not be empty")
	}
	if u.Age != nil && (*u.Age <= 0 || *u.Age > MaxAge) {
		fields.add("age", "must be between 1 and 130")
	}
	if u.Condition != nil && !u.Condition.Valid() {
		fields.add("condition", "must be diabetes, hypertension or both")
	}
	if u.Region != nil && !domain.IsKnownRegion(*u.Region) {
		fields.add("region", "is not a supported country")
	}
	return fields.err(apperrors.ErrInvalidInput)
}

// UpdateSettings merges the present fields into the profile
func (s *Store) UpdateSettings(ctx context.Context, update SettingsUpdate) (domain.Snapshot, error) {
	return s.apply(ctx, OpUpdateSettings, func(snap domain.Snapshot) (domain.Snapshot, error) {
		if err := update.Validate(); err != nil {
			return snap, err
		}
		if update.Username != nil {
			snap.Profile.Username = *update.Username
		}
		if update.Age != nil {
			snap.Profile.Age = *update.Age
		}
		if update.Condition != nil {
			snap.Profile.Condition = *update.Condition
		}
		if update.Region != nil {
			snap.Profile.Region = *update.Region
		}
		return snap, nil
	})
}

// UpdateTestResult replaces the lab result, dated with the store clock
func (s *Store) UpdateTestResult(ctx context.Context, fastingSugar, postMealSugar float64) (domain.Snapshot, error) {
	return s.apply(ctx, OpUpdateTestResult, func(snap domain.Snapshot) (domain.Snapshot, error) {
		var fields fieldErrors
		checkReading(&fields, "fastingSugar", fastingSugar)
		checkReading(&fields, "postMealSugar", postMealSugar)
		if err := fields.err(apperrors.ErrInvalidInput); err != nil {
			return snap, err
		}

		snap.LabResult = domain.LabResult{
			FastingSugar:  fastingSugar,
			PostMealSugar: postMealSugar,
			Date:          s.now(),
		}
		return snap, nil
	})
}

func checkReading(fields *fieldErrors, name string, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		fields.add(name, "must be a number")
	case v < 0:
		fields.add(name, "must not be negative")
	}
}

// UpdateTodayActivity sets a single flag of one slot
func (s *Store) UpdateTodayActivity(ctx context.Context, slot domain.Slot, flag domain.ActivityFlag, value bool) (domain.Snapshot, error) {
	return s.apply(ctx, OpUpdateTodayActivity, func(snap domain.Snapshot) (domain.Snapshot, error) {
		if !slot.Valid() {
			return snap, apperrors.FromSentinel(apperrors.ErrUnknownSlot).WithField("slot", string(slot))
		}
		if !slot.Allows(flag) {
			return snap, apperrors.FromSentinel(apperrors.ErrUnknownFlag).
				WithField("flag", string(flag)).
				WithContext("slot", string(slot))
		}
		snap.Activity = snap.Activity.With(slot, flag, value)
		return snap, nil
	})
}

// UpdateMedicationPlan replaces the tablet counts
func (s *Store) UpdateMedicationPlan(ctx context.Context, plan domain.MedicationPlan) (domain.Snapshot, error) {
	return s.apply(ctx, OpUpdateMedication, func(snap domain.Snapshot) (domain.Snapshot, error) {
		var fields fieldErrors
		if plan.Day < 0 {
			fields.add("day", "must not be negative")
		}
		if plan.Afternoon < 0 {
			fields.add("afternoon", "must not be negative")
		}
		if plan.Night < 0 {
			fields.add("night", "must not be negative")
		}
		if err := fields.err(apperrors.ErrInvalidInput); err != nil {
			return snap, err
		}
		snap.Medication = plan
		return snap, nil
	})
}

// SelectDay chooses which weekday of the diet plan is displayed
func (s *Store) SelectDay(ctx context.Context, day int) (domain.Snapshot, error) {
	return s.apply(ctx, OpSelectDay, func(snap domain.Snapshot) (domain.Snapshot, error) {
		if _, ok := snap.DietPlan.Entry(day); !ok {
			return snap, apperrors.FromSentinel(apperrors.ErrDayOutOfRange).
				WithField("day", "must be between 0 and 6").
				WithContext("day", day)
		}
		snap.SelectedDay = day
		return snap, nil
	})
}

// Navigate moves the session to page
func (s *Store) Navigate(ctx context.Context, page domain.Page) (domain.Snapshot, error) {
	return s.apply(ctx, OpNavigate, func(snap domain.Snapshot) (domain.Snapshot, error) {
		return snap, s.nav.Navigate(ctx, page)
	})
}

type fieldErrors []apperrors.FieldError

func (f *fieldErrors) add(field, reason string) {
	*f = append(*f, apperrors.FieldError{Field: field, Reason: reason})
}

// err returns nil when no field failed, otherwise a copy of sentinel with the fields
func (f fieldErrors) err(sentinel *apperrors.AppError) error {
	if len(f) == 0 {
		return nil
	}
	e := apperrors.FromSentinel(sentinel)
	e.Fields = f
	return e
}
