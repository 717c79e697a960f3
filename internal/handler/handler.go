package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/middleware"
	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
	"github.com/oasis-app/oasis-service/internal/service"
)

// Service is the business logic behind the HTTP API.
type Service interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	SaveHousehold(ctx context.Context, userID int64, h models.HouseholdProfile) (*models.HouseholdProfile, error)
	GetHousehold(ctx context.Context, userID int64) (*models.HouseholdProfile, error)
	CheckEligibility(ctx context.Context, userID int64, h *models.HouseholdProfile) (models.EligibilityResult, error)
	EligibilityHistory(ctx context.Context, userID int64, limit int) ([]models.EligibilityRecord, error)
	AddTransaction(ctx context.Context, userID int64, t models.Transaction) (*models.Transaction, float64, error)
	ListTransactions(ctx context.Context, userID int64, since time.Time) ([]models.Transaction, error)
	ForecastCashflow(ctx context.Context, userID int64, days int) (models.CashflowForecast, error)
	LinkEBTCard(ctx context.Context, userID int64, number string, snapBalance, cashBalance float64) (*models.EBTCard, error)
	ListEBTCards(ctx context.Context, userID int64) ([]models.EBTCard, error)
	UpdateEBTBalance(ctx context.Context, userID, cardID int64, snapBalance, cashBalance float64) error
	Chat(ctx context.Context, userID int64, conversationID, message string) (*models.CoachReply, error)
	ListResources(ctx context.Context, category string) ([]models.CommunityResource, error)
}

var _ Service = (*service.Service)(nil)

type Handler struct {
	svc Service
	log *logrus.Logger
}

func NewHandler(svc Service, logger *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a service error to a status code. Unexpected errors are logged
// and hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNoHousehold), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrResourcesUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.WithField("path", r.URL.Path).Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched and
// reports false.
func decode(r *http.Request, v any) (bool, error) {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return err == nil, err
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.Warnf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "oasis"})
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	household, err := h.svc.GetHousehold(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

func (h *Handler) SaveHousehold(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req models.HouseholdProfile
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	household, err := h.svc.SaveHousehold(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// CheckEligibility estimates benefits for the posted household, or for the
// stored profile when the body is empty.
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req models.HouseholdProfile
	present, err := decode(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var profile *models.HouseholdProfile
	if present {
		profile = &req
	}
	result, err := h.svc.CheckEligibility(r.Context(), userID, profile)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) EligibilityHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	history, err := h.svc.EligibilityHistory(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req models.Transaction
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, balance, err := h.svc.AddTransaction(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx, "balance": balance})
}

// ListTransactions accepts an optional since parameter as a date or RFC 3339
// timestamp.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		var err error
		if since, err = time.Parse(time.DateOnly, raw); err != nil {
			if since, err = time.Parse(time.RFC3339, raw); err != nil {
				writeError(w, http.StatusBadRequest, "since must be YYYY-MM-DD or RFC 3339")
				return
			}
		}
	}
	txs, err := h.svc.ListTransactions(r.Context(), userID, since)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	forecast, err := h.svc.ForecastCashflow(r.Context(), userID, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

type cardBalances struct {
	SNAPBalance float64 `json:"snap_balance"`
	CashBalance float64 `json:"cash_balance"`
}

func (h *Handler) LinkCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		CardNumber string `json:"card_number"`
		cardBalances
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	card, err := h.svc.LinkEBTCard(r.Context(), userID, req.CardNumber, req.SNAPBalance, req.CashBalance)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	cards, err := h.svc.ListEBTCards(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *Handler) UpdateCardBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	cardID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}
	var req cardBalances
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.UpdateEBTBalance(r.Context(), userID, cardID, req.SNAPBalance, req.CashBalance); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := h.svc.Chat(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) Resources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.svc.ListResources(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}
