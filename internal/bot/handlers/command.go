package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/bot/menus"
	"github.com/vladimiradmaev/chronic-care/internal/bot/state"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/utils"
)

const helpText = `Available commands:
/start - Show the current page
/dashboard - Back to the dashboard
/cancel - Abandon the current question
/now - What is still to do right now
/logout - Log out
/help - Show this message

Use the buttons under each page to navigate, tick off today's activity, pick a diet plan day or enter new values.

⚠️ This bot does not give medical advice. Always consult your healthcare provider.`

// CommandHandler handles bot commands
type CommandHandler struct {
	api          API
	deps         Dependencies
	stateManager state.StateManager
	now          func() time.Time
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api API, deps Dependencies, stateManager state.StateManager) *CommandHandler {
	return &CommandHandler{
		api:          api,
		deps:         deps,
		stateManager: stateManager,
		now:          time.Now,
	}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	logger.WithContext(ctx).InfoContext(ctx, "Handling command", "command", message.Command())

	sess := h.deps.Sessions.ForChat(chatID)

	switch message.Command() {
	case "start":
		h.resetPrompt(chatID)
		return menus.SendPage(h.api, chatID, sess.Store.Snapshot())
	case "dashboard":
		h.resetPrompt(chatID)
		snap, err := sess.Store.Navigate(ctx, domain.PageDashboard)
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case "cancel":
		h.resetPrompt(chatID)
		if err := send(h.api, chatID, "Cancelled."); err != nil {
			return err
		}
		return menus.SendPage(h.api, chatID, sess.Store.Snapshot())
	case "logout":
		h.resetPrompt(chatID)
		snap, err := sess.Store.Logout(ctx)
		return reportAndRender(ctx, h.api, chatID, snap, err)
	case "now":
		return h.handleNow(ctx, chatID, sess.Store.Snapshot())
	case "help":
		return send(h.api, chatID, helpText)
	default:
		return send(h.api, chatID, "Unknown command. Use /help to see the available commands.")
	}
}

// handleNow shows the reminder for the current slot on demand
func (h *CommandHandler) handleNow(ctx context.Context, chatID int64, snap domain.Snapshot) error {
	if !snap.Profile.IsAuthenticated {
		return menus.SendPage(h.api, chatID, snap)
	}
	now := h.now()
	slot := utils.SlotAt(now)
	text, ok := services.ReminderText(snap, slot, now.Weekday())
	if !ok {
		text = "🎉 Nothing left to do for this part of the day."
	}
	logger.WithContext(ctx).DebugContext(ctx, "Showing current slot", "slot", slot)
	return send(h.api, chatID, text)
}

func (h *CommandHandler) resetPrompt(chatID int64) {
	h.stateManager.SetUserState(chatID, state.None)
	h.stateManager.ClearTempData(chatID)
}
