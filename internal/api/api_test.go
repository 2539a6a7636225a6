package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
	"github.com/vladimiradmaev/chronic-care/internal/services"
	"github.com/vladimiradmaev/chronic-care/internal/session"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

const testSecret = "test-secret-0123456789"

type stubAdvice struct{}

func (stubAdvice) Advise(context.Context, domain.Snapshot) (string, error) {
	return "Walk after dinner", nil
}

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	sessions *session.Registry
	tokens   *TokenIssuer
}

type journaledPlan struct {
	services.NopJournal
	plan domain.MedicationPlan
}

func (j journaledPlan) LatestMedicationPlan(context.Context, string) (*domain.MedicationPlan, error) {
	return &j.plan, nil
}

func newTestAPI(t *testing.T) *testAPI {
	return newTestAPIWithJournal(t, services.NopJournal{})
}

func newTestAPIWithJournal(t *testing.T, journal domain.JournalService) *testAPI {
	gin.SetMode(gin.TestMode)
	sessions := session.NewRegistry(func() *store.Store {
		return store.New(nil, store.WithClock(func() time.Time {
			return time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
		}))
	})
	tokens := NewTokenIssuer(testSecret, time.Hour)
	return &testAPI{
		t:        t,
		sessions: sessions,
		tokens:   tokens,
		router: NewRouter(Dependencies{
			Sessions: sessions,
			Tokens:   tokens,
			Journal:  journal,
			Advice:   stubAdvice{},
		}),
	}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login() string {
	w := a.do(http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "pw"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LoginResponse](t, w)
	assert.True(t, resp.State.Profile.IsAuthenticated)
	assert.Equal(t, "alice", resp.State.Profile.Username)
	assert.Equal(t, domain.PageDashboard, resp.State.Page)
	assert.Equal(t, 1, a.sessions.Len())
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/login", "", gin.H{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "EMPTY_CREDENTIALS", resp.Code)
	assert.Len(t, resp.Fields, 2)
	assert.Zero(t, a.sessions.Len(), "failed login leaves no session behind")
}

func TestLogoutKeepsSessionData(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodPatch, "/api/profile", token, gin.H{"age": 60})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[domain.Snapshot](t, w)
	assert.False(t, snap.Profile.IsAuthenticated)
	assert.Equal(t, domain.PageLogin, snap.Page)

	w = a.do(http.MethodGet, "/api/dashboard", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/login", token, gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LoginResponse](t, w)
	assert.Equal(t, 60, resp.State.Profile.Age)
	assert.Equal(t, 1, a.sessions.Len())
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NOT_AUTHENTICATED", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/state", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", decode[ErrorResponse](t, w).Code)

	other := NewTokenIssuer("another-secret-0123456789", time.Hour)
	forged, err := other.Issue("whatever")
	require.NoError(t, err)
	w = a.do(http.MethodGet, "/api/state", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := a.login()
	id, err := a.tokens.Parse(token)
	require.NoError(t, err)
	a.sessions.Delete(id)
	w = a.do(http.MethodGet, "/api/state", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodPatch, "/api/profile", token, gin.H{"region": "Nepal", "condition": "both"})
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[domain.UserProfile](t, w)
	assert.Equal(t, "Nepal", profile.Region)
	assert.Equal(t, domain.ConditionBoth, profile.Condition)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 45, profile.Age)

	w = a.do(http.MethodPatch, "/api/profile", token, gin.H{"age": 0, "region": "Atlantis"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Len(t, resp.Fields, 2)

	w = a.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, "Nepal", decode[domain.UserProfile](t, w).Region, "rejected update changes nothing")
}

func TestLabResult(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodGet, "/api/lab-result", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[LabResultResponse](t, w).Submitted)

	w = a.do(http.MethodPut, "/api/lab-result", token, gin.H{"fastingSugar": 300, "postMealSugar": 180})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LabResultResponse](t, w)
	assert.True(t, resp.Submitted)
	assert.Equal(t, 300.0, resp.FastingSugar)
	assert.Equal(t, services.SafetyUrgent, resp.Safety.Level)

	w = a.do(http.MethodPut, "/api/lab-result", token, gin.H{"fastingSugar": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "postMealSugar", decode[ErrorResponse](t, w).Fields[0].Field)

	w = a.do(http.MethodPut, "/api/lab-result", token, gin.H{"fastingSugar": -1, "postMealSugar": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/lab-result/history", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "journal is disabled")

	w = a.do(http.MethodGet, "/api/lab-result/history?limit=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivity(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodPut, "/api/activity/night/food", token, gin.H{"value": true})
	require.Equal(t, http.StatusOK, w.Code)
	log := decode[domain.ActivityLog](t, w)
	assert.True(t, log.Night.Food)
	assert.False(t, log.Night.Medicine)
	assert.False(t, log.Day.Food)

	w = a.do(http.MethodPut, "/api/activity/night/exercise", token, gin.H{"value": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_FLAG", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodPut, "/api/activity/evening/food", token, gin.H{"value": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_SLOT", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodPut, "/api/activity/day/food", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDietPlan(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodGet, "/api/diet-plan/Tuesday", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"day":2`)

	w = a.do(http.MethodGet, "/api/diet-plan/9", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPut, "/api/diet-plan/selected", token, gin.H{"day": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[DietPlanResponse](t, w).SelectedDay)

	w = a.do(http.MethodPut, "/api/diet-plan/selected", token, gin.H{"day": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DAY_OUT_OF_RANGE", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/diet-plan", token, nil)
	assert.Equal(t, 5, decode[DietPlanResponse](t, w).SelectedDay)
}

func TestMedication(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodPut, "/api/medication", token, gin.H{"day": 2, "afternoon": 1, "night": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":3`)

	w = a.do(http.MethodPut, "/api/medication", token, gin.H{"day": -2, "afternoon": 1, "night": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/medication", token, nil)
	assert.Contains(t, w.Body.String(), `"total":3`)
	assert.NotContains(t, w.Body.String(), "journaled")
}

func TestMedicationIncludesJournaledPlan(t *testing.T) {
	a := newTestAPIWithJournal(t, journaledPlan{plan: domain.MedicationPlan{Day: 4, Night: 2}})
	token := a.login()

	w := a.do(http.MethodGet, "/api/medication", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Plan      domain.MedicationPlan  `json:"plan"`
		Journaled *domain.MedicationPlan `json:"journaled"`
	}](t, w)
	require.NotNil(t, resp.Journaled)
	assert.Equal(t, domain.MedicationPlan{Day: 4, Night: 2}, *resp.Journaled)
	assert.Equal(t, domain.DefaultSnapshot().Medication, resp.Plan)
}

func TestReloginKeepsSessionFromExpiring(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	time.Sleep(100 * time.Millisecond)
	w := a.do(http.MethodPost, "/api/login", token, gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[LoginResponse](t, w).Token
	require.Equal(t, 1, a.sessions.Len())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, a.sessions.Expire(150*time.Millisecond))

	w = a.do(http.MethodGet, "/api/state", fresh, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, a.sessions.Expire(time.Millisecond))
	w = a.do(http.MethodGet, "/api/state", fresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNavigateAndDashboard(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodPost, "/api/navigate", token, gin.H{"page": "diet-plan"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PageDietPlan, decode[domain.Snapshot](t, w).Page)

	w = a.do(http.MethodPost, "/api/navigate", token, gin.H{"page": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_PAGE", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[services.Dashboard](t, w)
	assert.Equal(t, "alice", dash.Username)
	assert.Equal(t, 2, dash.TabletsPerDay)
	assert.Equal(t, 7, dash.ActivityTotal)
}

func TestTrendAndAdvice(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	w := a.do(http.MethodGet, "/api/trend", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNAVAILABLE", decode[ErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/advice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Walk after dinner")
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokenIssuer(testSecret, time.Minute)
	issued := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Issue("abc")
	require.NoError(t, err)
	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(token)
	assert.Error(t, err)
}

func TestStreamPushesSnapshots(t *testing.T) {
	a := newTestAPI(t)
	token := a.login()

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.True(t, msg.Data.Profile.IsAuthenticated)

	w := a.do(http.MethodPut, "/api/medication", token, gin.H{"day": 3, "afternoon": 0, "night": 0})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, 3, msg.Data.Medication.Day)
}
