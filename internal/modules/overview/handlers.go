package overview

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
)

// Handler handles overview HTTP requests.
type Handler struct {
	service  *Service
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new overview handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log.With().Str("handler", "overview").Logger(),
	}
}

// RegisterRoutes mounts the overview endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/overview", h.HandleOverview)
	r.Get("/positions", h.HandlePositions)
}

// overviewRequest is the /overview payload.
type overviewRequest struct {
	Attribute string `json:"attribute" validate:"required,oneof=security broker account order"`
}

// HandleOverview runs the overview pipeline for the requested
// attribute and returns the result as column-oriented JSON.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	var req overviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ByAttribute(r.Context(), domain.Attribute(req.Attribute))
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedAttribute) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("attribute", req.Attribute).Msg("Overview pipeline failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, datasetJSON(result))
}

// HandlePositions returns the per-security position dataset with
// cumulative returns.
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Positions(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Positions pipeline failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, datasetJSON(result))
}

// datasetJSON converts a dataset to a column-oriented JSON shape.
// Sentinel non-finite numbers and missing values render as null
// (encoding/json rejects NaN), and dates render as RFC 3339 strings.
func datasetJSON(ds *dataset.Dataset) map[string]any {
	columns := make(map[string][]any, len(ds.Columns()))
	for _, name := range ds.Columns() {
		col, _ := ds.Column(name)
		values := make([]any, len(col.Values))
		for i, v := range col.Values {
			values[i] = jsonValue(v)
		}
		columns[name] = values
	}
	return map[string]any{
		"columns": ds.Columns(),
		"data":    columns,
		"rows":    ds.Len(),
	}
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return t
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
