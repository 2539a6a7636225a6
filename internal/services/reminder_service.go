package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vladimiradmaev/chronic-care/internal/config"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/session"
)

const reminderSendTimeout = 30 * time.Second

// ReminderService pushes a checklist reminder per time slot to Telegram sessions
type ReminderService struct {
	registry *session.Registry
	notifier domain.Notifier
	cron     *cron.Cron
	now      func() time.Time
	logger   *slog.Logger
}

func NewReminderService(registry *session.Registry, notifier domain.Notifier, cfg config.ReminderConfig) (*ReminderService, error) {
	s := &ReminderService{
		registry: registry,
		notifier: notifier,
		cron:     cron.New(),
		now:      time.Now,
		logger:   logger.WithFields("service", "reminders"),
	}

	schedules := map[domain.Slot]string{
		domain.SlotDay:       cfg.Day,
		domain.SlotAfternoon: cfg.Afternoon,
		domain.SlotNight:     cfg.Night,
	}
	for _, slot := range domain.Slots() {
		spec := schedules[slot]
		if spec == "" || spec == "off" {
			continue
		}
		slot := slot
		if _, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), reminderSendTimeout)
			defer cancel()
			s.SendSlotReminders(ctx, slot)
		}); err != nil {
			return nil, fmt.Errorf("invalid %s reminder schedule %q: %w", slot, spec, err)
		}
	}

	return s, nil
}

// Jobs returns the number of scheduled reminders
func (s *ReminderService) Jobs() int {
	return len(s.cron.Entries())
}

func (s *ReminderService) Start() {
	s.cron.Start()
	s.logger.Info("Reminder scheduler started", "jobs", s.Jobs())
}

// Stop stops scheduling and waits for running reminders until ctx is done
func (s *ReminderService) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SendSlotReminders notifies every logged-in chat with unchecked items in slot
// and returns how many reminders were sent.
func (s *ReminderService) SendSlotReminders(ctx context.Context, slot domain.Slot) int {
	sent := 0
	s.registry.Range(func(sess *session.Session) bool {
		if sess.ChatID == 0 {
			return true
		}

		text, ok := ReminderText(sess.Store.Snapshot(), slot, s.now().Weekday())
		if !ok {
			return true
		}
		if err := s.notifier.Notify(ctx, sess.ChatID, text); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send reminder", "chat_id", sess.ChatID, "slot", slot, "error", err)
			return ctx.Err() == nil
		}
		sent++
		return true
	})

	s.logger.InfoContext(ctx, "Slot reminders sent", "slot", slot, "sent", sent)
	return sent
}

// ReminderText builds the reminder for slot on today, false when nothing is
// pending or the session is logged out.
func ReminderText(snap domain.Snapshot, slot domain.Slot, today time.Weekday) (string, bool) {
	if !snap.Profile.IsAuthenticated {
		return "", false
	}
	pending := snap.Activity.Pending(slot)
	if len(pending) == 0 {
		return "", false
	}

	items := make([]string, len(pending))
	for i, flag := range pending {
		items[i] = string(flag)
	}

	var b strings.Builder
	name := string(slot)
	fmt.Fprintf(&b, "⏰ %s reminder", strings.ToUpper(name[:1])+name[1:])
	if snap.Profile.Username != "" {
		fmt.Fprintf(&b, " for %s", snap.Profile.Username)
	}
	fmt.Fprintf(&b, "\n\nStill to do: %s", strings.Join(items, ", "))

	if entry, ok := snap.DietPlan.Entry(int(today)); ok && entry.Meal(slot) != "" {
		fmt.Fprintf(&b, "\n🍽 Planned meal: %s", entry.Meal(slot))
	}
	if n := tabletsFor(snap.Medication, slot); n > 0 {
		fmt.Fprintf(&b, "\n💊 Tablets: %d", n)
	}
	return b.String(), true
}

func tabletsFor(plan domain.MedicationPlan, slot domain.Slot) int {
	switch slot {
	case domain.SlotAfternoon:
		return plan.Afternoon
	case domain.SlotNight:
		return plan.Night
	default:
		return plan.Day
	}
}
