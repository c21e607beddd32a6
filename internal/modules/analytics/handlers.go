package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Handler exposes the metrics engine for ad-hoc computation over HTTP.
type Handler struct {
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new metrics handler.
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		validate: validator.New(),
		log:      log.With().Str("handler", "metrics").Logger(),
	}
}

// RegisterRoutes mounts the metrics endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/metrics/sharpe", h.HandleSharpe)
	r.Post("/metrics/beta", h.HandleBeta)
	r.Post("/metrics/treynor", h.HandleTreynor)
	r.Post("/metrics/jensen-alpha", h.HandleJensenAlpha)
	r.Post("/metrics/rolling-variation", h.HandleRollingVariation)
	r.Post("/metrics/cumulative-return", h.HandleCumulativeReturn)
	r.Post("/metrics/required-return", h.HandleRequiredReturn)
}

type seriesPairRequest struct {
	Security  []float64 `json:"security" validate:"required,min=1"`
	Benchmark []float64 `json:"benchmark" validate:"required,min=1"`
}

// HandleSharpe returns the Sharpe ratio with all intermediate terms.
func (h *Handler) HandleSharpe(w http.ResponseWriter, r *http.Request) {
	var req seriesPairRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := SharpeRatio(req.Security, req.Benchmark)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"mean_security_return":  jsonNumber(result.MeanSecurityReturn),
		"mean_benchmark_return": jsonNumber(result.MeanBenchmarkReturn),
		"std_dev_security":      jsonNumber(result.StdDevSecurity),
		"excess_return":         jsonNumber(result.ExcessReturn),
		"sharpe_ratio":          jsonNumber(result.SharpeRatio),
	})
}

// HandleBeta returns the beta of a security against a benchmark.
func (h *Handler) HandleBeta(w http.ResponseWriter, r *http.Request) {
	var req seriesPairRequest
	if !h.decode(w, r, &req) {
		return
	}
	beta, err := Beta(req.Security, req.Benchmark)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"beta": jsonNumber(beta)})
}

// HandleTreynor returns the Treynor ratio.
func (h *Handler) HandleTreynor(w http.ResponseWriter, r *http.Request) {
	var req seriesPairRequest
	if !h.decode(w, r, &req) {
		return
	}
	ratio, err := TreynorRatio(req.Security, req.Benchmark)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"treynor_ratio": jsonNumber(ratio)})
}

type jensenRequest struct {
	Portfolio []float64 `json:"portfolio" validate:"required,min=3"`
	Benchmark []float64 `json:"benchmark" validate:"required,min=3"`
	RiskFree  []float64 `json:"riskFree" validate:"required,min=3"`
}

// HandleJensenAlpha returns Jensen's alpha for a portfolio.
func (h *Handler) HandleJensenAlpha(w http.ResponseWriter, r *http.Request) {
	var req jensenRequest
	if !h.decode(w, r, &req) {
		return
	}
	alpha, err := JensenAlpha(req.Portfolio, req.Benchmark, req.RiskFree)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"jensen_alpha": jsonNumber(alpha)})
}

type rollingVariationRequest struct {
	Series []float64 `json:"series" validate:"required,min=1"`
	Window int       `json:"window" validate:"required,min=1"`
}

// HandleRollingVariation returns windowed percentage variations.
func (h *Handler) HandleRollingVariation(w http.ResponseWriter, r *http.Request) {
	var req rollingVariationRequest
	if !h.decode(w, r, &req) {
		return
	}
	variations, err := RollingVariation(req.Series, req.Window)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	out := make([]any, len(variations))
	for i, v := range variations {
		out[i] = jsonNumber(v)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"variations": out})
}

type cumulativeReturnRequest struct {
	CurrentPrice  float64 `json:"currentPrice" validate:"required"`
	OriginalPrice float64 `json:"originalPrice"`
	DaysHeld      float64 `json:"daysHeld"`
}

// HandleCumulativeReturn returns the cumulative return and, when a
// holding period is supplied, its annualized equivalent.
func (h *Handler) HandleCumulativeReturn(w http.ResponseWriter, r *http.Request) {
	var req cumulativeReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	cumulative, err := CumulativeReturn(req.CurrentPrice, req.OriginalPrice)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	response := map[string]any{"cumulative_return": jsonNumber(cumulative)}
	if req.DaysHeld > 0 {
		annualized, err := AnnualizedReturn(req.DaysHeld, cumulative)
		if err != nil {
			h.writeMetricError(w, err)
			return
		}
		response["annualized_return"] = jsonNumber(annualized)
	}
	h.writeJSON(w, http.StatusOK, response)
}

type requiredReturnRequest struct {
	CurrentPrice  float64 `json:"currentPrice" validate:"required,gt=0"`
	RequiredPrice float64 `json:"requiredPrice" validate:"required,gt=0"`
	Years         float64 `json:"years" validate:"required,gt=0"`
}

// HandleRequiredReturn returns the annualized return needed to reach a
// target price within a number of years.
func (h *Handler) HandleRequiredReturn(w http.ResponseWriter, r *http.Request) {
	var req requiredReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	required, err := RequiredAnnualizedReturn(req.CurrentPrice, req.RequiredPrice, req.Years)
	if err != nil {
		h.writeMetricError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"required_annualized_return": jsonNumber(required)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeMetricError maps typed metric errors to 400s; anything else is
// a server-side failure.
func (h *Handler) writeMetricError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrDivisionByZero):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Metric computation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// jsonNumber renders non-finite floats as null; encoding/json rejects
// NaN and infinities, and callers must see that a denominator was zero
// rather than a masked number.
func jsonNumber(x float64) any {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
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
