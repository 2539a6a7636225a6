package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Dependencies are the services behind the HTTP handlers
type Dependencies struct {
	Sessions *session.Registry
	Tokens   *TokenIssuer
	Journal  domain.JournalService
	Advice   domain.AdviceService
}

// Handler serves the JSON API
type Handler struct {
	deps Dependencies
}

func NewHandler(deps Dependencies) *Handler {
	if deps.Journal == nil {
		deps.Journal = services.NopJournal{}
	}
	return &Handler{deps: deps}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the resulting state
type LoginResponse struct {
	Token string          `json:"token"`
	State domain.Snapshot `json:"state"`
}

// Login authenticates into the caller's session, or a new one when the
// request carries no valid token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	ctx := c.Request.Context()

	sess, err := resolveSession(c, h.deps.Tokens, h.deps.Sessions)
	created := false
	if err != nil {
		sess = h.deps.Sessions.Create()
		created = true
	} else {
		h.deps.Sessions.Touch(sess)
	}

	snap, err := sess.Store.Login(ctx, req.Username, req.Password)
	if err != nil {
		if created {
			h.deps.Sessions.Delete(sess.ID)
		}
		abortWithError(c, err)
		return
	}

	token, err := h.deps.Tokens.Issue(sess.ID)
	if err != nil {
		abortWithError(c, apperrors.NewInternalError(err))
		return
	}
	logger.WithContext(ctx).Info("Session logged in", "session_id", sess.ID, "new_session", created)
	c.JSON(http.StatusOK, LoginResponse{Token: token, State: snap})
}

func (h *Handler) Logout(c *gin.Context) {
	h.respond(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.Logout(c.Request.Context())
	})
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c))
}

func (h *Handler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, services.BuildDashboard(h.snapshot(c)))
}

func (h *Handler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c).Profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var update store.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "body", err)
		return
	}
	h.respondWith(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.UpdateSettings(c.Request.Context(), update)
	}, func(s domain.Snapshot) any { return s.Profile })
}

// LabResultResponse is the latest result with its safety assessment
type LabResultResponse struct {
	domain.LabResult
	Submitted bool                  `json:"submitted"`
	Safety    services.SafetyResult `json:"safety"`
}

func labResultResponse(r domain.LabResult) LabResultResponse {
	return LabResultResponse{LabResult: r, Submitted: r.Submitted(), Safety: services.CheckGlucoseSafety(r)}
}

func (h *Handler) LabResult(c *gin.Context) {
	c.JSON(http.StatusOK, labResultResponse(h.snapshot(c).LabResult))
}

type labResultRequest struct {
	FastingSugar  *float64 `json:"fastingSugar"`
	PostMealSugar *float64 `json:"postMealSugar"`
}

func (h *Handler) UpdateLabResult(c *gin.Context) {
	var req labResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	missing := apperrors.FromSentinel(apperrors.ErrInvalidInput)
	if req.FastingSugar == nil {
		missing.WithField("fastingSugar", "is required")
	}
	if req.PostMealSugar == nil {
		missing.WithField("postMealSugar", "is required")
	}
	if len(missing.Fields) > 0 {
		abortWithError(c, missing)
		return
	}

	h.respondWith(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.UpdateTestResult(c.Request.Context(), *req.FastingSugar, *req.PostMealSugar)
	}, func(s domain.Snapshot) any { return labResultResponse(s.LabResult) })
}

func (h *Handler) LabHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			abortWithError(c, apperrors.NewFieldError("limit", "must be between 1 and 100"))
			return
		}
		limit = n
	}

	history, err := h.deps.Journal.LabHistory(c.Request.Context(), currentSession(c).ID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": history})
}

// DietPlanResponse is the weekly plan and the selected day
type DietPlanResponse struct {
	SelectedDay int                   `json:"selectedDay"`
	Plan        domain.WeeklyDietPlan `json:"plan"`
}

func (h *Handler) DietPlan(c *gin.Context) {
	snap := h.snapshot(c)
	c.JSON(http.StatusOK, DietPlanResponse{SelectedDay: snap.SelectedDay, Plan: snap.DietPlan})
}

func (h *Handler) DietPlanDay(c *gin.Context) {
	day, err := domain.ParseWeekday(c.Param("day"))
	if err != nil {
		badRequest(c, "day", err)
		return
	}
	entry, ok := h.snapshot(c).DietPlan.Entry(day)
	if !ok {
		abortWithError(c, apperrors.FromSentinel(apperrors.ErrDayOutOfRange).WithField("day", "must be between 0 and 6"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "entry": entry})
}

type selectDayRequest struct {
	Day *int `json:"day"`
}

func (h *Handler) SelectDay(c *gin.Context) {
	var req selectDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	if req.Day == nil {
		abortWithError(c, apperrors.NewFieldError("day", "is required"))
		return
	}
	h.respondWith(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.SelectDay(c.Request.Context(), *req.Day)
	}, func(s domain.Snapshot) any {
		return DietPlanResponse{SelectedDay: s.SelectedDay, Plan: s.DietPlan}
	})
}

func (h *Handler) Activity(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(c).Activity)
}

type activityRequest struct {
	Value *bool `json:"value"`
}

func (h *Handler) UpdateActivity(c *gin.Context) {
	slot, err := domain.ParseSlot(c.Param("slot"))
	if err != nil {
		abortWithError(c, apperrors.FromSentinel(apperrors.ErrUnknownSlot).WithField("slot", err.Error()))
		return
	}
	flag, err := domain.ParseActivityFlag(c.Param("flag"))
	if err != nil {
		abortWithError(c, apperrors.FromSentinel(apperrors.ErrUnknownFlag).WithField("flag", err.Error()))
		return
	}

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	if req.Value == nil {
		abortWithError(c, apperrors.NewFieldError("value", "is required"))
		return
	}

	h.respondWith(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.UpdateTodayActivity(c.Request.Context(), slot, flag, *req.Value)
	}, func(s domain.Snapshot) any { return s.Activity })
}

// Medication returns the current plan and, when the journal has one, the last
// plan it recorded
func (h *Handler) Medication(c *gin.Context) {
	plan := h.snapshot(c).Medication
	resp := gin.H{"plan": plan, "total": plan.Total()}

	journaled, err := h.deps.Journal.LatestMedicationPlan(c.Request.Context(), currentSession(c).ID)
	switch {
	case err == nil && journaled != nil:
		resp["journaled"] = journaled
	case err != nil && !errors.Is(err, apperrors.ErrFeatureUnavailable):
		logger.WithContext(c.Request.Context()).Warn("Failed to read journaled medication plan", "error", err)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateMedication(c *gin.Context) {
	var plan domain.MedicationPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		badRequest(c, "body", err)
		return
	}
	h.respondWith(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.UpdateMedicationPlan(c.Request.Context(), plan)
	}, func(s domain.Snapshot) any {
		return gin.H{"plan": s.Medication, "total": s.Medication.Total()}
	})
}

type navigateRequest struct {
	Page string `json:"page"`
}

func (h *Handler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	page, err := domain.ParsePage(req.Page)
	if err != nil {
		abortWithError(c, apperrors.FromSentinel(apperrors.ErrUnknownPage).WithField("page", err.Error()))
		return
	}
	h.respond(c, func(st *store.Store) (domain.Snapshot, error) {
		return st.Navigate(c.Request.Context(), page)
	})
}

func (h *Handler) Trend(c *gin.Context) {
	report, err := h.deps.Journal.Trend(c.Request.Context(), currentSession(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Advice(c *gin.Context) {
	if h.deps.Advice == nil {
		abortWithError(c, apperrors.FromSentinel(apperrors.ErrFeatureUnavailable))
		return
	}
	text, err := h.deps.Advice.Advise(c.Request.Context(), h.snapshot(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": text})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) snapshot(c *gin.Context) domain.Snapshot {
	return store.MustFromContext(c.Request.Context()).Snapshot()
}

// respond runs a mutation and writes the whole snapshot
func (h *Handler) respond(c *gin.Context, mutate func(*store.Store) (domain.Snapshot, error)) {
	h.respondWith(c, mutate, func(s domain.Snapshot) any { return s })
}

// respondWith runs a mutation and writes view(snapshot)
func (h *Handler) respondWith(c *gin.Context, mutate func(*store.Store) (domain.Snapshot, error), view func(domain.Snapshot) any) {
	snap, err := mutate(store.MustFromContext(c.Request.Context()))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(snap))
}
