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
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	api          API
	deps         Dependencies
	stateManager state.StateManager
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api API, deps Dependencies, stateManager state.StateManager) *CallbackHandler {
	return &CallbackHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
	}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Answer the callback query first
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.api.Request(callback); err != nil {
		logger.WithContext(ctx).WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	chatID := query.Message.Chat.ID
	sess := h.deps.Sessions.ForChat(chatID)
	st := sess.Store

	// Any button abandons a pending question
	h.stateManager.SetUserState(chatID, state.None)
	h.stateManager.ClearTempData(chatID)

	if query.Data == keyboards.Login {
		return h.handleLogin(chatID)
	}
	if !st.Snapshot().Profile.IsAuthenticated {
		return menus.SendPage(h.api, chatID, st.Snapshot())
	}

	kind, arg := keyboards.Split(query.Data)
	switch kind {
	case "nav":
		page, err := domain.ParsePage(arg)
		if err != nil {
			return reportAndRender(ctx, h.api, chatID, st.Snapshot(), apperrors.FromSentinel(apperrors.ErrUnknownPage))
		}
		snap, err := st.Navigate(ctx, page)
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case "cond":
		condition := domain.Condition(arg)
		snap, err := st.UpdateSettings(ctx, store.SettingsUpdate{Condition: &condition})
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case "region":
		return h.handleRegion(ctx, st, chatID, arg)
	case "act":
		return h.handleActivity(ctx, st, chatID, arg)
	case "day":
		day, err := strconv.Atoi(arg)
		if err != nil {
			day = -1
		}
		snap, err := st.SelectDay(ctx, day)
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case keyboards.Logout:
		snap, err := st.Logout(ctx)
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case keyboards.EditUsername:
		h.stateManager.SetUserState(chatID, state.WaitingForProfileName)
		return sendWithKeyboard(h.api, chatID, "Enter your name:", keyboards.Cancel(domain.PageSettings))
	case keyboards.EditAge:
		h.stateManager.SetUserState(chatID, state.WaitingForAge)
		return sendWithKeyboard(h.api, chatID, "Enter your age in years:", keyboards.Cancel(domain.PageSettings))
	case keyboards.ChooseRegion:
		return menus.SendRegionMenu(h.api, chatID, st.Snapshot().Profile.Region)
	case keyboards.EnterLabResult:
		h.stateManager.SetUserState(chatID, state.WaitingForFastingSugar)
		return sendWithKeyboard(h.api, chatID, "Enter your fasting sugar (mg/dL):", keyboards.Cancel(domain.PageTestUpload))
	case keyboards.EnterMedication:
		h.stateManager.SetUserState(chatID, state.WaitingForMedicationDay)
		return sendWithKeyboard(h.api, chatID, "How many tablets in the day?", keyboards.Cancel(domain.PageMedication))
	case keyboards.Trend:
		return h.handleTrend(ctx, sess, chatID)
	case keyboards.Advice:
		return h.handleAdvice(ctx, st, chatID)
	default:
		return h.handleUnknownCallback(chatID)
	}
}

func (h *CallbackHandler) handleLogin(chatID int64) error {
	h.stateManager.SetUserState(chatID, state.WaitingForUsername)
	return sendWithKeyboard(h.api, chatID, "Enter your username:", keyboards.Cancel(domain.PageLogin))
}

func (h *CallbackHandler) handleRegion(ctx context.Context, st *store.Store, chatID int64, arg string) error {
	i, err := strconv.Atoi(arg)
	region := ""
	if err == nil && i >= 0 && i < len(domain.Regions) {
		region = domain.Regions[i]
	}
	snap, err := st.UpdateSettings(ctx, store.SettingsUpdate{Region: &region})
	return reportAndRender(ctx, h.api, chatID, snap, err)
}

func (h *CallbackHandler) handleActivity(ctx context.Context, st *store.Store, chatID int64, arg string) error {
	slotName, flagName, _ := strings.Cut(arg, ":")
	slot := domain.Slot(slotName)
	flag := domain.ActivityFlag(flagName)

	current := st.Snapshot().Activity.Slot(slot).Flag(flag)
	snap, err := st.UpdateTodayActivity(ctx, slot, flag, !current)
	return reportAndRender(ctx, h.api, chatID, snap, err)
}

func (h *CallbackHandler) handleTrend(ctx context.Context, sess *session.Session, chatID int64) error {
	report, err := h.deps.Journal.Trend(ctx, sess.ID)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return send(h.api, chatID, "📈 Trends need the journal, which is not enabled.")
		}
		logger.WithContext(ctx).ErrorContext(ctx, "Failed to compute trend", "error", err)
		return send(h.api, chatID, "Could not load your history. Please try again later.")
	}
	if report.Readings == 0 {
		return send(h.api, chatID, "📈 "+report.Status+". Submit a test result first.")
	}
	return send(h.api, chatID, "📈 "+report.Status+"\nAverage fasting sugar: "+
		strconv.FormatFloat(report.AverageFasting, 'f', 0, 64)+" mg/dL over "+
		strconv.Itoa(report.Readings)+" readings")
}

func (h *CallbackHandler) handleAdvice(ctx context.Context, st *store.Store, chatID int64) error {
	if _, err := h.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.WithContext(ctx).DebugContext(ctx, "Failed to send typing action", "error", err)
	}

	text, err := h.deps.Advice.Advise(ctx, st.Snapshot())
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound {
			return send(h.api, chatID, "💡 Care tips are not configured.")
		}
		logger.WithContext(ctx).ErrorContext(ctx, "Failed to get advice", "error", err)
		return send(h.api, chatID, "💡 Care tips are unavailable right now. Please try again later.")
	}
	return send(h.api, chatID, "💡 "+text)
}

// handleUnknownCallback handles unknown callbacks
func (h *CallbackHandler) handleUnknownCallback(chatID int64) error {
	return send(h.api, chatID, "Unknown action")
}
