package menus

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/chronic-care/internal/bot/keyboards"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
)

func loggedIn(page domain.Page) domain.Snapshot {
	snap := domain.DefaultSnapshot()
	snap.Profile.IsAuthenticated = true
	snap.Profile.Username = "alice"
	snap.Page = page
	return snap
}

func buttons(kb tgbotapi.InlineKeyboardMarkup) []string {
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

func TestRenderEveryPage(t *testing.T) {
	for _, page := range domain.Pages() {
		t.Run(page.String(), func(t *testing.T) {
			text, kb := Render(loggedIn(page))
			assert.NotEmpty(t, text)
			assert.NotEmpty(t, kb.InlineKeyboard)
		})
	}
}

func TestRenderLoggedOutAlwaysLogin(t *testing.T) {
	snap := domain.DefaultSnapshot()
	snap.Page = domain.PageMedication

	text, kb := Render(snap)
	assert.Contains(t, text, "log in")
	assert.Equal(t, []string{keyboards.Login}, buttons(kb))
}

func TestRenderDashboard(t *testing.T) {
	snap := loggedIn(domain.PageDashboard)
	snap.LabResult = domain.LabResult{FastingSugar: 300, PostMealSugar: 200, Date: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}

	text, kb := Render(snap)
	assert.Contains(t, text, "Welcome, alice")
	assert.Contains(t, text, "fasting 300, post-meal 200 mg/dL (2026-03-04)")
	assert.Contains(t, text, "🚨")
	assert.Contains(t, text, "0/7")
	assert.Contains(t, buttons(kb), keyboards.Logout)
}

func TestRenderActivityMarks(t *testing.T) {
	snap := loggedIn(domain.PageActivity)
	snap.Activity = snap.Activity.With(domain.SlotNight, domain.FlagFood, true)

	text, kb := Render(snap)
	assert.Contains(t, text, "1/7")
	assert.Equal(t, "✅ night food", kb.InlineKeyboard[2][0].Text)
	assert.Equal(t, "⬜ night medicine", kb.InlineKeyboard[2][1].Text)
	assert.Len(t, kb.InlineKeyboard[0], 3)
	assert.Len(t, kb.InlineKeyboard[1], 2)
}

func TestRenderDietPlanSelectedDay(t *testing.T) {
	snap := loggedIn(domain.PageDietPlan)
	snap.SelectedDay = 5

	text, kb := Render(snap)
	assert.Contains(t, text, "Diet plan for Friday")
	assert.Contains(t, text, snap.DietPlan[5].Afternoon)
	assert.Equal(t, "• Fri", kb.InlineKeyboard[1][1].Text)
}

type captureSender struct {
	sent []tgbotapi.Chattable
}

func (c *captureSender) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.sent = append(c.sent, m)
	return tgbotapi.Message{}, nil
}

func TestSendPage(t *testing.T) {
	s := &captureSender{}
	require.NoError(t, SendPage(s, 7, loggedIn(domain.PageMedication)))
	require.Len(t, s.sent, 1)

	msg := s.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Contains(t, msg.Text, "Total: 2 tablets per day")
}
