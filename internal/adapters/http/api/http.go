// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/beatpage/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the page registry.
type Dependencies interface {
	// Mount returns the page for userID, mounting it on first use.
	Mount(ctx context.Context, userID string) (*service.Page, error)
	// Remount discards the page for userID and loads it again.
	Remount(ctx context.Context, userID string) (*service.Page, error)
}

// Server wires HTTP routes for the profile API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	profileHandler *ProfileHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		profileHandler: NewProfileHandler(deps),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	p := s.profileHandler
	profiles := router.PathPrefix("/profiles/{userID}").Subrouter()
	profiles.HandleFunc("", MetricsMiddleware(p.HandleGet, "profile")).Methods(http.MethodGet)
	profiles.HandleFunc("", MetricsMiddleware(p.HandlePatch, "profile")).Methods(http.MethodPatch)
	profiles.HandleFunc("/reload", MetricsMiddleware(p.HandleReload, "reload")).Methods(http.MethodPost)
	profiles.HandleFunc("/editing", MetricsMiddleware(p.HandleToggleEditing, "editing")).Methods(http.MethodPost)
	profiles.HandleFunc("/payment", MetricsMiddleware(p.HandleSetPayment, "payment")).Methods(http.MethodPut)
	profiles.HandleFunc("/payment", MetricsMiddleware(p.HandleClosePayment, "payment")).Methods(http.MethodDelete)
	profiles.HandleFunc("/payment/submit", MetricsMiddleware(p.HandleSubmitPayment, "payment_submit")).Methods(http.MethodPost)
	profiles.HandleFunc("/tracks", MetricsMiddleware(p.HandleUpload, "tracks")).Methods(http.MethodPost)
	profiles.HandleFunc("/tracks/drop", MetricsMiddleware(p.HandleDrop, "tracks_drop")).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
