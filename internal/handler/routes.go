package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers the API on r. Everything except registration, login and
// the health check goes through auth.
func (h *Handler) Routes(r *mux.Router, auth mux.MiddlewareFunc) {
	// Public routes
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth)
	authRouter.HandleFunc("/household", h.GetHousehold).Methods(http.MethodGet)
	authRouter.HandleFunc("/household", h.SaveHousehold).Methods(http.MethodPut)
	authRouter.HandleFunc("/eligibility/check", h.CheckEligibility).Methods(http.MethodPost)
	authRouter.HandleFunc("/eligibility/history", h.EligibilityHistory).Methods(http.MethodGet)
	authRouter.HandleFunc("/transactions", h.AddTransaction).Methods(http.MethodPost)
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	authRouter.HandleFunc("/cashflow/forecast", h.Forecast).Methods(http.MethodGet)
	authRouter.HandleFunc("/ebt/cards", h.LinkCard).Methods(http.MethodPost)
	authRouter.HandleFunc("/ebt/cards", h.ListCards).Methods(http.MethodGet)
	authRouter.HandleFunc("/ebt/cards/{id:[0-9]+}/balance", h.UpdateCardBalance).Methods(http.MethodPut)
	authRouter.HandleFunc("/coach/chat", h.Chat).Methods(http.MethodPost)
	authRouter.HandleFunc("/resources", h.Resources).Methods(http.MethodGet)
}
