package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/bot/menus"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

func send(api menus.Sender, chatID int64, text string) error {
	_, err := api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func sendWithKeyboard(api menus.Sender, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := api.Send(msg)
	return err
}

// userMessage turns a store error into text for the chat
func userMessage(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Type != apperrors.ErrorTypeValidation {
		return "Something went wrong. Please try again."
	}
	if len(appErr.Fields) == 0 {
		return "⚠️ " + appErr.Message
	}

	reasons := make([]string, len(appErr.Fields))
	for i, f := range appErr.Fields {
		reasons[i] = "• " + f.Field + ": " + f.Reason
	}
	return "⚠️ " + appErr.Message + "\n" + strings.Join(reasons, "\n")
}

// reportAndRender tells the chat about err (when set) and shows the current page
func reportAndRender(ctx context.Context, api menus.Sender, chatID int64, snap domain.Snapshot, err error) error {
	if err != nil {
		logger.WithContext(ctx).InfoContext(ctx, "Rejected chat input", "error", err)
		if sendErr := send(api, chatID, userMessage(err)); sendErr != nil {
			return sendErr
		}
	}
	return menus.SendPage(api, chatID, snap)
}
