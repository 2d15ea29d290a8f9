package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"deliverydate/internal/settings"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Put("/shipping-methods/{key}", s.handlePutShippingMethod)
	r.Delete("/shipping-methods/{key}", s.handleDeleteShippingMethod)
	r.Put("/products/{id}/lead-time", s.handlePutProductLeadTime)
}

// SettingsDocument is the admin view of the store-wide settings, defaults
// applied.
type SettingsDocument struct {
	General         settings.General                   `json:"general"`
	ClosedDays      settings.ClosedDays                `json:"closed_days"`
	PostageDays     settings.PostageDays               `json:"postage_days"`
	ShippingMethods map[string]settings.ShippingMethod `json:"shipping_methods"`
}

// SettingsUpdate replaces the sections that are present.
type SettingsUpdate struct {
	General     *settings.General     `json:"general"`
	ClosedDays  *settings.ClosedDays  `json:"closed_days"`
	PostageDays *settings.PostageDays `json:"postage_days"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.est.Settings(r.Context())
	if err != nil {
		writeEstimateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsDocument{
		General:         snap.General,
		ClosedDays:      snap.ClosedDays,
		PostageDays:     snap.PostageDays,
		ShippingMethods: snap.ShippingMethods,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	// Validate every section before saving any of them.
	var (
		g   settings.General
		c   settings.ClosedDays
		p   settings.PostageDays
		err error
	)
	if req.General != nil {
		if g, err = req.General.Sanitize(); err != nil {
			writeInvalidSettings(w, err)
			return
		}
	}
	if req.ClosedDays != nil {
		if c, err = req.ClosedDays.Sanitize(); err != nil {
			writeInvalidSettings(w, err)
			return
		}
	}
	if req.PostageDays != nil {
		if p, err = req.PostageDays.Sanitize(); err != nil {
			writeInvalidSettings(w, err)
			return
		}
	}

	ctx := r.Context()
	if req.General != nil {
		err = s.store.SaveGeneral(ctx, g)
	}
	if err == nil && req.ClosedDays != nil {
		err = s.store.SaveClosedDays(ctx, c)
	}
	if err == nil && req.PostageDays != nil {
		err = s.store.SavePostageDays(ctx, p)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handlePutShippingMethod(w http.ResponseWriter, r *http.Request) {
	var m settings.ShippingMethod
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	m.Key = chi.URLParam(r, "key")
	m, err := m.Sanitize()
	if err != nil {
		writeInvalidSettings(w, err)
		return
	}
	if err := s.store.SaveShippingMethod(r.Context(), m); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("shipping method saved", "shipping_method", m.Key)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteShippingMethod(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "key required")
		return
	}
	if err := s.store.DeleteShippingMethod(r.Context(), key); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("shipping method deleted", "shipping_method", key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutProductLeadTime(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "product id required")
		return
	}
	var o settings.LeadTimeOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	o = o.Sanitize()
	if err := s.store.SaveProductLeadTime(r.Context(), id, o); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func writeInvalidSettings(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrInvalidSettings) {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_settings", err.Error())
		return
	}
	writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeStoreError(w http.ResponseWriter, err error) {
	slog.Error("settings write failed", "error", err)
	writeErrorJSON(w, http.StatusInternalServerError, "db_error", "failed to save settings")
}
