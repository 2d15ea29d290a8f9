package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"deliverydate/internal/calendar"
	"deliverydate/internal/estimate"
	"deliverydate/internal/format"
	"deliverydate/internal/settings"
)

// Display contexts for an estimate.
const (
	ContextProduct  = "product"
	ContextCart     = "cart"
	ContextCheckout = "checkout"
	ContextBlock    = "block"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	est   *estimate.Estimator
	store settings.Store
}

// New serves estimates only; the admin routes are not mounted.
func New(est *estimate.Estimator) http.Handler {
	return NewWithStore(est, nil)
}

// NewWithStore also mounts the admin routes writing through store.
func NewWithStore(est *estimate.Estimator, store settings.Store) http.Handler {
	s := &Server{est: est, store: store}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/estimate", s.handleGetEstimate)
	r.Post("/estimate", s.handlePostEstimate)
	r.Get("/lead-time", s.handleLeadTime)
	r.Get("/transit-time", s.handleTransitTime)
	if store != nil {
		r.Route("/admin", s.adminRoutes)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			slog.Error("settings store not ready", "error", err)
			writeErrorJSON(w, http.StatusServiceUnavailable, "store_unavailable", "settings store unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// EstimateRequest asks for the delivery window of a product and method.
// Both may be empty.
type EstimateRequest struct {
	ProductID      string `json:"product_id"`
	ShippingMethod string `json:"shipping_method"`
	Context        string `json:"context"`
}

type EstimateResponse struct {
	MinDate      string `json:"min_date"`
	MaxDate      string `json:"max_date"`
	Formatted    string `json:"formatted"`
	Label        string `json:"label"`
	Visible      bool   `json:"visible"`
	TotalMinDays int    `json:"total_min_days"`
	TotalMaxDays int    `json:"total_max_days"`
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.serveEstimate(w, r, EstimateRequest{
		ProductID:      q.Get("product_id"),
		ShippingMethod: q.Get("shipping_method"),
		Context:        q.Get("context"),
	})
}

func (s *Server) handlePostEstimate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEstimateRequest(r.Body)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	s.serveEstimate(w, r, req)
}

func (s *Server) serveEstimate(w http.ResponseWriter, r *http.Request, req EstimateRequest) {
	display := strings.ToLower(orDefault(strings.TrimSpace(req.Context), ContextProduct))
	switch display {
	case ContextProduct, ContextCart, ContextCheckout, ContextBlock:
	default:
		writeErrorJSON(w, http.StatusBadRequest, "invalid_context", "context must be product, cart, checkout or block")
		return
	}

	ctx := r.Context()
	snap, err := s.est.Settings(ctx)
	if err != nil {
		writeEstimateError(w, err)
		return
	}
	est, err := s.est.EstimateWith(ctx, snap, req.ProductID, req.ShippingMethod)
	if err != nil {
		writeEstimateError(w, err)
		return
	}

	g := snap.General
	res := EstimateResponse{
		MinDate:      est.EarliestDeliveryDate.Format(calendar.DateLayout),
		MaxDate:      est.LatestDeliveryDate.Format(calendar.DateLayout),
		Visible:      true,
		TotalMinDays: est.TotalMinDays,
		TotalMaxDays: est.TotalMaxDays,
	}
	switch display {
	case ContextCart, ContextCheckout:
		res.Formatted = format.CartLine(est, g.DateFormat)
		res.Visible = g.CartCheckoutDisplay
	case ContextBlock:
		res.Formatted = format.Format(est, g.DisplayFormat, g.DateFormat, "")
		res.Label = format.BlockLabel
	default:
		res.Formatted = format.FromSettings(est, g)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLeadTime(w http.ResponseWriter, r *http.Request) {
	lead, err := s.est.Resolver().ResolveLeadTime(r.Context(), r.URL.Query().Get("product_id"))
	if err != nil {
		writeEstimateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleTransitTime(w http.ResponseWriter, r *http.Request) {
	transit, err := s.est.Resolver().ResolveTransitTime(r.Context(), r.URL.Query().Get("shipping_method"))
	if err != nil {
		writeEstimateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transit)
}

// writeEstimateError maps engine errors to responses. The shopper-facing
// caller hides the date on any of them.
func writeEstimateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, estimate.ErrConfigurationUnavailable):
		slog.Error("settings unavailable", "error", err)
		writeErrorJSON(w, http.StatusServiceUnavailable, "configuration_unavailable", "delivery settings unavailable")
	case errors.Is(err, calendar.ErrNonTerminatingCalendar):
		slog.Error("store calendar has no working days", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "non_terminating_calendar", "no working day can be reached")
	default:
		slog.Error("estimate failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorJSON writes a standardized JSON error response:
// {"error": {"code": "...", "message": "..."}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// requestIDMiddleware ensures X-Request-ID is set on the response.
// If the incoming request has X-Request-ID, it is propagated; otherwise a UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

func orDefault(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}
