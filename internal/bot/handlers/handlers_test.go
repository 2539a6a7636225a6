package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/chronic-care/internal/bot/keyboards"
	"github.com/vladimiradmaev/chronic-care/internal/bot/state"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const chatID int64 = 100

type fakeAPI struct {
	messages []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	if len(f.messages) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeAPI) texts() string {
	var all []string
	for _, m := range f.messages {
		all = append(all, m.Text)
	}
	return strings.Join(all, "\n---\n")
}

type stubAdvice struct{ text string }

func (s stubAdvice) Advise(context.Context, domain.Snapshot) (string, error) {
	if s.text == "" {
		return "", apperrors.FromSentinel(apperrors.ErrFeatureUnavailable)
	}
	return s.text, nil
}

type harness struct {
	t        *testing.T
	api      *fakeAPI
	sessions *session.Registry
	states   *state.Manager
	handler  *UpdateHandler
	nextID   int
}

func newHarness(t *testing.T) *harness {
	api := &fakeAPI{}
	sessions := session.NewRegistry(func() *store.Store {
		return store.New(nil, store.WithClock(func() time.Time {
			return time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
		}))
	})
	states := state.NewManager()
	deps := Dependencies{
		Sessions: sessions,
		Journal:  services.NopJournal{},
		Advice:   stubAdvice{text: "Walk after dinner"},
	}
	return &harness{
		t:        t,
		api:      api,
		sessions: sessions,
		states:   states,
		handler:  NewUpdateHandler(api, deps, states),
	}
}

func (h *harness) text(text string) {
	h.nextID++
	msg := &tgbotapi.Message{
		MessageID: h.nextID,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	require.NoError(h.t, h.handler.Handle(context.Background(), tgbotapi.Update{Message: msg}))
}

func (h *harness) tap(data string) {
	h.nextID++
	query := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: h.nextID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
	require.NoError(h.t, h.handler.Handle(context.Background(), tgbotapi.Update{CallbackQuery: query}))
}

func (h *harness) snapshot() domain.Snapshot {
	return h.sessions.ForChat(chatID).Store.Snapshot()
}

func (h *harness) login() {
	h.tap(keyboards.Login)
	h.text("alice")
	h.text("secret")
}

func TestStartShowsLogin(t *testing.T) {
	h := newHarness(t)
	h.text("/start")

	assert.Contains(t, h.api.last().Text, "Please log in")
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	h.tap(keyboards.Login)
	assert.Equal(t, state.WaitingForUsername, h.states.GetUserState(chatID))
	h.text("alice")
	assert.Equal(t, state.WaitingForPassword, h.states.GetUserState(chatID))
	h.text("secret")

	snap := h.snapshot()
	assert.True(t, snap.Profile.IsAuthenticated)
	assert.Equal(t, "alice", snap.Profile.Username)
	assert.Equal(t, domain.PageDashboard, snap.Page)
	assert.Contains(t, h.api.last().Text, "Welcome, alice")
	assert.Equal(t, state.None, h.states.GetUserState(chatID))
	assert.NotContains(t, h.api.texts(), "secret")

	var deleted bool
	for _, r := range h.api.requests {
		if _, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			deleted = true
		}
	}
	assert.True(t, deleted, "password message is deleted")
}

func TestButtonsRequireLogin(t *testing.T) {
	h := newHarness(t)
	h.tap(keyboards.NavData(domain.PageMedication))

	assert.Contains(t, h.api.last().Text, "Please log in")
	assert.Equal(t, domain.PageLogin, h.snapshot().Page)
}

func TestActivityToggle(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.tap(keyboards.NavData(domain.PageActivity))
	h.tap(keyboards.ActivityData(domain.SlotAfternoon, domain.FlagMedicine))

	snap := h.snapshot()
	assert.True(t, snap.Activity.Afternoon.Medicine)
	assert.False(t, snap.Activity.Afternoon.Food)
	assert.Contains(t, h.api.last().Text, "1/7")

	h.tap(keyboards.ActivityData(domain.SlotAfternoon, domain.FlagMedicine))
	assert.False(t, h.snapshot().Activity.Afternoon.Medicine)

	h.tap(keyboards.ActivityData(domain.SlotNight, domain.FlagExercise))
	assert.Contains(t, h.api.texts(), "Unknown activity flag")
}

func TestSettingsPrompts(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.tap(keyboards.NavData(domain.PageSettings))

	h.tap(keyboards.EditAge)
	h.text("old")
	assert.Contains(t, h.api.last().Text, "whole number")
	h.text("200")
	assert.Contains(t, h.api.last().Text, "age: must be between 1 and 130")
	assert.Equal(t, state.WaitingForAge, h.states.GetUserState(chatID))
	h.text("61")
	assert.Equal(t, 61, h.snapshot().Profile.Age)

	h.tap(keyboards.ConditionData(domain.ConditionBoth))
	assert.Equal(t, domain.ConditionBoth, h.snapshot().Profile.Condition)

	h.tap(keyboards.RegionData(3))
	assert.Equal(t, domain.Regions[3], h.snapshot().Profile.Region)

	h.tap("region:99")
	assert.Equal(t, domain.Regions[3], h.snapshot().Profile.Region)
	assert.Contains(t, h.api.texts(), "region: is not a supported country")

	h.tap(keyboards.EditUsername)
	h.text("Alice B")
	assert.Equal(t, "Alice B", h.snapshot().Profile.Username)
}

func TestTestResultFlow(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.tap(keyboards.NavData(domain.PageTestUpload))

	h.tap(keyboards.EnterLabResult)
	h.text("abc")
	assert.Equal(t, invalidNumber, h.api.last().Text)
	h.text("300")
	h.text("210,5")

	snap := h.snapshot()
	assert.Equal(t, 300.0, snap.LabResult.FastingSugar)
	assert.Equal(t, 210.5, snap.LabResult.PostMealSugar)
	assert.Equal(t, "2026-03-04", snap.LabResult.DateString())
	assert.Contains(t, h.api.texts(), "URGENT")
	assert.Contains(t, h.api.last().Text, "Test results (2026-03-04)")
}

func TestTestResultRejectsNaN(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.tap(keyboards.EnterLabResult)
	h.text("NaN")
	h.text("120")

	assert.False(t, h.snapshot().LabResult.Submitted())
	assert.Contains(t, h.api.texts(), "must be a number")
	assert.Equal(t, state.WaitingForFastingSugar, h.states.GetUserState(chatID))
}

func TestMedicationFlow(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.tap(keyboards.NavData(domain.PageMedication))

	h.tap(keyboards.EnterMedication)
	h.text("2")
	h.text("x")
	assert.Equal(t, invalidCount, h.api.last().Text)
	h.text("1")
	h.text("0")

	assert.Equal(t, domain.MedicationPlan{Day: 2, Afternoon: 1, Night: 0}, h.snapshot().Medication)
	assert.Contains(t, h.api.last().Text, "Total: 3 tablets per day")
}

func TestDietPlanDay(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.tap(keyboards.DayData(4))
	assert.Equal(t, 4, h.snapshot().SelectedDay)

	h.tap("day:9")
	assert.Equal(t, 4, h.snapshot().SelectedDay)
	assert.Contains(t, h.api.texts(), "Day index must be between 0 and 6")
}

func TestTrendAndAdvice(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.tap(keyboards.Trend)
	assert.Contains(t, h.api.last().Text, "not enabled")

	h.tap(keyboards.Advice)
	assert.Equal(t, "💡 Walk after dinner", h.api.last().Text)
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.text("/help")
	assert.Contains(t, h.api.last().Text, "/logout")

	h.tap(keyboards.EnterLabResult)
	h.text("/cancel")
	assert.Equal(t, state.None, h.states.GetUserState(chatID))

	h.tap(keyboards.NavData(domain.PageMedication))
	h.text("/dashboard")
	assert.Equal(t, domain.PageDashboard, h.snapshot().Page)

	h.text("/logout")
	assert.False(t, h.snapshot().Profile.IsAuthenticated)
	assert.Contains(t, h.api.last().Text, "Please log in")

	h.text("/unknown")
	assert.Contains(t, h.api.last().Text, "Unknown command")

	h.text("hello")
	assert.Contains(t, h.api.last().Text, "use the buttons")
}

func TestNowCommand(t *testing.T) {
	h := newHarness(t)
	h.handler.commandHandler.now = func() time.Time {
		return time.Date(2026, 3, 4, 19, 30, 0, 0, time.UTC)
	}

	h.text("/now")
	assert.Contains(t, h.api.last().Text, "Please log in")

	h.login()
	h.text("/now")
	assert.Contains(t, h.api.last().Text, "Night reminder for alice")
	assert.Contains(t, h.api.last().Text, "Tablets: 1")

	h.tap(keyboards.ActivityData(domain.SlotNight, domain.FlagFood))
	h.tap(keyboards.ActivityData(domain.SlotNight, domain.FlagMedicine))
	h.text("/now")
	assert.Contains(t, h.api.last().Text, "Nothing left to do")
}
