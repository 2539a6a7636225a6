package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/chronic-care/internal/config"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/session"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64]string
	fail map[int64]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: map[int64]string{}, fail: map[int64]bool{}}
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[chatID] {
		return errors.New("blocked by user")
	}
	n.sent[chatID] = text
	return nil
}

func TestReminderText(t *testing.T) {
	snap := domain.DefaultSnapshot()

	_, ok := ReminderText(snap, domain.SlotDay, time.Monday)
	assert.False(t, ok, "logged out sessions get no reminder")

	snap.Profile.IsAuthenticated = true
	snap.Profile.Username = "alice"
	snap.Activity = snap.Activity.With(domain.SlotDay, domain.FlagFood, true)

	text, ok := ReminderText(snap, domain.SlotDay, time.Monday)
	require.True(t, ok)
	assert.Contains(t, text, "Day reminder for alice")
	assert.Contains(t, text, "Still to do: medicine, exercise")
	assert.Contains(t, text, snap.DietPlan[time.Monday].Day)
	assert.Contains(t, text, "Tablets: 1")

	text, ok = ReminderText(snap, domain.SlotAfternoon, time.Monday)
	require.True(t, ok)
	assert.NotContains(t, text, "exercise")
	assert.NotContains(t, text, "Tablets")

	snap.Activity = snap.Activity.
		With(domain.SlotNight, domain.FlagFood, true).
		With(domain.SlotNight, domain.FlagMedicine, true)
	_, ok = ReminderText(snap, domain.SlotNight, time.Monday)
	assert.False(t, ok, "nothing pending")
}

func TestSendSlotReminders(t *testing.T) {
	ctx := context.Background()
	registry := session.NewRegistry(nil)
	notifier := newRecordingNotifier()

	svc, err := NewReminderService(registry, notifier, config.ReminderConfig{})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) }

	loggedIn := registry.ForChat(1)
	_, err = loggedIn.Store.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	registry.ForChat(2) // never logged in

	failing := registry.ForChat(3)
	_, err = failing.Store.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	notifier.fail[3] = true

	web := registry.Create()
	_, err = web.Store.Login(ctx, "carol", "pw")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.SendSlotReminders(ctx, domain.SlotNight))
	assert.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[1], "Night reminder for alice")
}

func TestNewReminderServiceSchedules(t *testing.T) {
	registry := session.NewRegistry(nil)

	svc, err := NewReminderService(registry, newRecordingNotifier(), config.ReminderConfig{
		Day:       "0 9 * * *",
		Afternoon: "off",
		Night:     "@daily",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Jobs())

	svc.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)

	_, err = NewReminderService(registry, newRecordingNotifier(), config.ReminderConfig{Day: "whenever"})
	assert.Error(t, err)
}
