package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/chronic-care/internal/bot/menus"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/session"
)

// API is the part of *tgbotapi.BotAPI the handlers use
type API interface {
	menus.Sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	Sessions *session.Registry
	Journal  domain.JournalService
	Advice   domain.AdviceService
}
