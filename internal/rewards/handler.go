package rewards

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stakeledger/stakeledger/internal/platform/httpx"
)

// Handler exposes eligibility scans over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the eligibility handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the eligibility routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/eligibility", h.eligibility)
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter EligibilityFilter

	if raw := q.Get("min_investment"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid min_investment")
			return
		}
		filter.MinInvestment = v
	}
	if raw := q.Get("min_referrals"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid min_referrals")
			return
		}
		filter.MinReferrals = v
	}
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid since date")
			return
		}
		filter.Since = t
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	candidates, err := h.service.Eligible(r.Context(), filter)
	if err != nil {
		h.logger.Error("eligibility scan failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		List []Candidate `json:"list"`
	}{List: candidates})
}
