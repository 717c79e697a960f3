package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasis-app/oasis-service/internal/middleware"
	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
	"github.com/oasis-app/oasis-service/internal/service"
)

const testUserID int64 = 7

// fakeService records the arguments it receives and returns err when set.
type fakeService struct {
	err       error
	household *models.HouseholdProfile
	since     time.Time
	days      int
	cardID    int64
	userID    int64
}

func (f *fakeService) Ping(context.Context) error { return f.err }

func (f *fakeService) Register(_ context.Context, username, email, _ string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: 1, Username: username, Email: email, PasswordHash: "hash"}, nil
}

func (f *fakeService) Login(context.Context, string, string) (string, error) {
	return "token-abc", f.err
}

func (f *fakeService) SaveHousehold(_ context.Context, userID int64, h models.HouseholdProfile) (*models.HouseholdProfile, error) {
	f.userID = userID
	h.UserID = userID
	return &h, f.err
}

func (f *fakeService) GetHousehold(_ context.Context, userID int64) (*models.HouseholdProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.HouseholdProfile{UserID: userID, HouseholdSize: 3}, nil
}

func (f *fakeService) CheckEligibility(_ context.Context, _ int64, h *models.HouseholdProfile) (models.EligibilityResult, error) {
	f.household = h
	return models.EligibilityResult{SNAP: models.ProgramEstimate{Eligible: true, Amount: 432}, TotalMonthly: 432}, f.err
}

func (f *fakeService) EligibilityHistory(context.Context, int64, int) ([]models.EligibilityRecord, error) {
	return []models.EligibilityRecord{}, f.err
}

func (f *fakeService) AddTransaction(_ context.Context, _ int64, t models.Transaction) (*models.Transaction, float64, error) {
	t.ID = 11
	return &t, 250, f.err
}

func (f *fakeService) ListTransactions(_ context.Context, _ int64, since time.Time) ([]models.Transaction, error) {
	f.since = since
	return []models.Transaction{}, f.err
}

func (f *fakeService) ForecastCashflow(_ context.Context, _ int64, days int) (models.CashflowForecast, error) {
	f.days = days
	return models.CashflowForecast{ForecastedDays: days}, f.err
}

func (f *fakeService) LinkEBTCard(_ context.Context, userID int64, _ string, snap, _ float64) (*models.EBTCard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.EBTCard{ID: 3, UserID: userID, CardNumber: "************7897", SNAPBalance: snap}, nil
}

func (f *fakeService) ListEBTCards(context.Context, int64) ([]models.EBTCard, error) {
	return []models.EBTCard{}, f.err
}

func (f *fakeService) UpdateEBTBalance(_ context.Context, _, cardID int64, _, _ float64) error {
	f.cardID = cardID
	return f.err
}

func (f *fakeService) Chat(_ context.Context, _ int64, conversationID, _ string) (*models.CoachReply, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CoachReply{ConversationID: conversationID, Intent: "general", Reply: "hi"}, nil
}

func (f *fakeService) ListResources(context.Context, string) ([]models.CommunityResource, error) {
	return []models.CommunityResource{{Name: "Pantry"}}, f.err
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), testUserID)))
	})
}

func newRouter(svc Service) *mux.Router {
	logger, _ := test.NewNullLogger()
	r := mux.NewRouter()
	NewHandler(svc, logger).Routes(r, fakeAuth)
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterHidesPasswordHash(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodPost, "/register", `{"username":"ana","email":"a@b.org","password":"12345678"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "hash")
	assert.Contains(t, rec.Body.String(), `"email":"a@b.org"`)
}

func TestLogin(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodPost, "/login", `{"email":"a@b.org","password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"token-abc"}`, rec.Body.String())

	rec = do(t, newRouter(&fakeService{}), http.MethodPost, "/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrNoHousehold, http.StatusNotFound},
		{fmt.Errorf("failed to load: %w", repository.ErrNotFound), http.StatusNotFound},
		{service.ErrResourcesUnavailable, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := do(t, newRouter(&fakeService{err: tc.err}), http.MethodGet, "/household", "")
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			} else {
				assert.Equal(t, tc.err.Error(), body["error"])
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, newRouter(&fakeService{err: errors.New("db down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy"}`, rec.Body.String())
}

func TestSaveHouseholdUsesAuthenticatedUser(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newRouter(svc), http.MethodPut, "/household", `{"household_size":4,"monthly_income":2000,"user_id":99}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, svc.userID)
	assert.Contains(t, rec.Body.String(), `"user_id":7`)
}

func TestCheckEligibilityBody(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newRouter(svc), http.MethodPost, "/eligibility/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.household, "empty body uses the stored profile")

	rec = do(t, newRouter(svc), http.MethodPost, "/eligibility/check", `{"household_size":2,"children":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.household)
	assert.Equal(t, 2, svc.household.HouseholdSize)
	assert.Contains(t, rec.Body.String(), `"total_monthly":432`)
}

func TestListTransactionsSince(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	rec := do(t, router, http.MethodGet, "/transactions?since=2024-04-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), svc.since)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/transactions?since=2024-04-01T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, svc.since.Hour())

	rec = do(t, router, http.MethodGet, "/transactions?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddTransaction(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodPost, "/transactions", `{"amount":25,"type":"expense","category":"food"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":250`)
	assert.Contains(t, rec.Body.String(), `"category":"food"`)
}

func TestForecastDays(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	rec := do(t, router, http.MethodGet, "/cashflow/forecast", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, svc.days)

	rec = do(t, router, http.MethodGet, "/cashflow/forecast?days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, svc.days)

	rec = do(t, router, http.MethodGet, "/cashflow/forecast?days=two", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCards(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	rec := do(t, router, http.MethodPost, "/ebt/cards", `{"card_number":"6008901234567897","snap_balance":120.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snap_balance":120.5`)
	assert.Contains(t, rec.Body.String(), "************7897")

	rec = do(t, router, http.MethodPut, "/ebt/cards/3/balance", `{"snap_balance":80,"cash_balance":0}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(3), svc.cardID)

	rec = do(t, router, http.MethodGet, "/ebt/cards", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatAndResources(t *testing.T) {
	router := newRouter(&fakeService{})

	rec := do(t, router, http.MethodPost, "/coach/chat", `{"conversation_id":"c1","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conversation_id":"c1"`)

	rec = do(t, router, http.MethodGet, "/resources?category=food", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pantry")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := mux.NewRouter()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	NewHandler(&fakeService{}, logger).Routes(r, deny)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/cashflow/forecast", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "").Code)
}
