// Package navigation is the page state machine shared by every presentation layer.
// All pages are reachable from all pages; the only gate is authentication, which is
// applied when deciding what to render, not when transitioning.
package navigation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/looplab/fsm"
	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

// Controller tracks the stored page of one session
type Controller struct {
	machine *fsm.FSM
	logger  *slog.Logger
}

// NewController starts at the login page
func NewController(log *slog.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	c := &Controller{logger: log}

	pages := domain.Pages()
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.String()
	}

	events := make(fsm.Events, 0, len(pages))
	for _, name := range names {
		events = append(events, fsm.EventDesc{Name: name, Src: names, Dst: name})
	}

	c.machine = fsm.NewFSM(domain.PageLogin.String(), events, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			c.logger.Debug("Page transition", "from", e.Src, "to", e.Dst)
		},
	})
	return c
}

// Navigate moves to page. Unknown pages are rejected; navigating to the
// current page is a no-op.
func (c *Controller) Navigate(ctx context.Context, page domain.Page) error {
	if !page.Valid() {
		return apperrors.FromSentinel(apperrors.ErrUnknownPage).WithField("page", page.String())
	}

	err := c.machine.Event(ctx, page.String())
	var noTransition fsm.NoTransitionError
	if err == nil || errors.As(err, &noTransition) {
		return nil
	}
	return apperrors.NewInternalError(err).WithContext("page", page.String())
}

// Current returns the stored page
func (c *Controller) Current() domain.Page {
	p, err := domain.ParsePage(c.machine.Current())
	if err != nil {
		return domain.PageDashboard
	}
	return p
}

// Visible returns the page to render for the given authentication state
func (c *Controller) Visible(authenticated bool) domain.Page {
	return domain.VisiblePage(authenticated, c.Current())
}

// Reset puts the machine back on page without firing callbacks
func (c *Controller) Reset(page domain.Page) {
	if page.Valid() {
		c.machine.SetState(page.String())
	}
}
