package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/bot/keyboards"
	"github.com/vladimiradmaev/chronic-care/internal/bot/menus"
	"github.com/vladimiradmaev/chronic-care/internal/bot/state"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const (
	tempUsername  = "username"
	tempFasting   = "fasting"
	tempMedDay    = "medication_day"
	tempMedNoon   = "medication_afternoon"
	invalidNumber = "Please enter a number (for example: 110 or 7.5)"
	invalidCount  = "Please enter a whole number of tablets (for example: 0, 1 or 2)"
)

// TextHandler handles text messages
type TextHandler struct {
	api          API
	deps         Dependencies
	stateManager state.StateManager
}

// NewTextHandler creates a new text handler
func NewTextHandler(api API, deps Dependencies, stateManager state.StateManager) *TextHandler {
	return &TextHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	st := h.deps.Sessions.ForChat(chatID).Store

	switch h.stateManager.GetUserState(chatID) {
	case state.WaitingForUsername:
		return h.handleUsername(message)
	case state.WaitingForPassword:
		return h.handlePassword(ctx, st, message)
	case state.WaitingForProfileName:
		return h.handleProfileName(ctx, st, message)
	case state.WaitingForAge:
		return h.handleAge(ctx, st, message)
	case state.WaitingForFastingSugar:
		return h.handleFastingSugar(message)
	case state.WaitingForPostMealSugar:
		return h.handlePostMealSugar(ctx, st, message)
	case state.WaitingForMedicationDay:
		return h.handleMedicationCount(message, tempMedDay, state.WaitingForMedicationNoon, "How many tablets in the afternoon?")
	case state.WaitingForMedicationNoon:
		return h.handleMedicationCount(message, tempMedNoon, state.WaitingForMedicationNight, "How many tablets at night?")
	case state.WaitingForMedicationNight:
		return h.handleMedicationNight(ctx, st, message)
	default:
		return h.handleDefaultText(chatID)
	}
}

func (h *TextHandler) done(chatID int64) {
	h.stateManager.SetUserState(chatID, state.None)
	h.stateManager.ClearTempData(chatID)
}

// handleUsername stores the username exactly as typed and asks for the password
func (h *TextHandler) handleUsername(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	h.stateManager.SetTempData(chatID, tempUsername, message.Text)
	h.stateManager.SetUserState(chatID, state.WaitingForPassword)
	return sendWithKeyboard(h.api, chatID, "Enter your password:", keyboards.Cancel(domain.PageLogin))
}

func (h *TextHandler) handlePassword(ctx context.Context, st *store.Store, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	username, _ := h.stateManager.GetTempData(chatID, tempUsername)
	h.done(chatID)

	// The password is not kept anywhere, including the chat history
	if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		logger.WithContext(ctx).DebugContext(ctx, "Failed to delete password message", "error", err)
	}

	snap, err := st.Login(ctx, username, message.Text)
	return reportAndRender(ctx, h.api, chatID, snap, err)
}

func (h *TextHandler) handleProfileName(ctx context.Context, st *store.Store, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	name := strings.TrimSpace(message.Text)

	snap, err := st.UpdateSettings(ctx, store.SettingsUpdate{Username: &name})
	if err != nil {
		return send(h.api, chatID, userMessage(err))
	}
	h.done(chatID)
	return menus.SendPage(h.api, chatID, snap)
}

func (h *TextHandler) handleAge(ctx context.Context, st *store.Store, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	age, err := strconv.Atoi(strings.TrimSpace(message.Text))
	if err != nil {
		return send(h.api, chatID, "Please enter your age as a whole number (for example: 45)")
	}

	snap, err := st.UpdateSettings(ctx, store.SettingsUpdate{Age: &age})
	if err != nil {
		return send(h.api, chatID, userMessage(err))
	}
	h.done(chatID)
	return menus.SendPage(h.api, chatID, snap)
}

func (h *TextHandler) handleFastingSugar(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if _, ok := parseReading(message.Text); !ok {
		return send(h.api, chatID, invalidNumber)
	}

	h.stateManager.SetTempData(chatID, tempFasting, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, state.WaitingForPostMealSugar)
	return sendWithKeyboard(h.api, chatID, "Enter your post-meal sugar (mg/dL):", keyboards.Cancel(domain.PageTestUpload))
}

func (h *TextHandler) handlePostMealSugar(ctx context.Context, st *store.Store, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	postMeal, ok := parseReading(message.Text)
	if !ok {
		return send(h.api, chatID, invalidNumber)
	}
	raw, _ := h.stateManager.GetTempData(chatID, tempFasting)
	fasting, ok := parseReading(raw)
	if !ok {
		h.stateManager.SetUserState(chatID, state.WaitingForFastingSugar)
		return send(h.api, chatID, "Your fasting sugar was lost. Enter your fasting sugar (mg/dL):")
	}

	snap, err := st.UpdateTestResult(ctx, fasting, postMeal)
	if err != nil {
		h.stateManager.SetUserState(chatID, state.WaitingForFastingSugar)
		if sendErr := send(h.api, chatID, userMessage(err)); sendErr != nil {
			return sendErr
		}
		return send(h.api, chatID, "Enter your fasting sugar (mg/dL):")
	}
	h.done(chatID)

	if safety := services.CheckGlucoseSafety(snap.LabResult); safety.EscalationRequired {
		if err := send(h.api, chatID, "🚨 "+safety.Message+"\n\n"+services.Disclaimer); err != nil {
			return err
		}
	}
	return menus.SendPage(h.api, chatID, snap)
}

func (h *TextHandler) handleMedicationCount(message *tgbotapi.Message, key, next, question string) error {
	chatID := message.Chat.ID
	if _, ok := parseCount(message.Text); !ok {
		return send(h.api, chatID, invalidCount)
	}

	h.stateManager.SetTempData(chatID, key, strings.TrimSpace(message.Text))
	h.stateManager.SetUserState(chatID, next)
	return sendWithKeyboard(h.api, chatID, question, keyboards.Cancel(domain.PageMedication))
}

func (h *TextHandler) handleMedicationNight(ctx context.Context, st *store.Store, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	night, ok := parseCount(message.Text)
	if !ok {
		return send(h.api, chatID, invalidCount)
	}
	rawDay, _ := h.stateManager.GetTempData(chatID, tempMedDay)
	rawNoon, _ := h.stateManager.GetTempData(chatID, tempMedNoon)
	day, okDay := parseCount(rawDay)
	noon, okNoon := parseCount(rawNoon)
	h.done(chatID)
	if !okDay || !okNoon {
		return send(h.api, chatID, "Your answers were lost. Please tap \"Edit plan\" again.")
	}

	snap, err := st.UpdateMedicationPlan(ctx, domain.MedicationPlan{Day: day, Afternoon: noon, Night: night})
	return reportAndRender(ctx, h.api, chatID, snap, err)
}

// handleDefaultText handles text when no question is pending
func (h *TextHandler) handleDefaultText(chatID int64) error {
	return send(h.api, chatID, "Please use the buttons to choose an action, or /help.")
}

// parseReading accepts a decimal with a dot or comma separator
func parseReading(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
