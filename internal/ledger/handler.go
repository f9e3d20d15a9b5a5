package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stakeledger/stakeledger/internal/observability"
	"github.com/stakeledger/stakeledger/internal/platform/httpx"
)

// Handler exposes the report engine over HTTP. GET serves the common
// dashboard query shape; POST takes the full JSON request body that the
// admin console and batch tooling send.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	cache    *Cache
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs the HTTP handler. cache and metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		cache:    cache,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers the ledger routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports", h.listReports)
	r.Post("/reports", h.createReport)
	r.Post("/reports/invalidate", h.invalidateReports)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportQuery(r.URL.Query())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondReport(r.Context(), w, req, true)
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var payload reportPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid field "+fieldErrs[0].Field())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request")
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondReport(r.Context(), w, req, false)
}

// invalidateReports bumps the report cache version, used after bulk ledger
// imports.
func (h *Handler) invalidateReports(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Bump(r.Context()); err != nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "invalidated"})
}

func (h *Handler) respondReport(ctx context.Context, w http.ResponseWriter, req ReportRequest, cacheable bool) {
	// Search results shift too quickly to be worth caching; everything else
	// is keyed by the canonical request.
	useCache := cacheable && h.cache != nil && req.Search == ""

	var key string
	if useCache {
		k, err := h.cache.RequestKey(ctx, req)
		if err != nil {
			h.logger.Warn("report cache key unavailable", slog.Any("error", err))
			useCache = false
		} else {
			key = k
			var cached reportResponse
			hit, err := h.cache.GetJSON(ctx, key, &cached)
			if err != nil {
				h.logger.Warn("report cache read failed", slog.Any("error", err))
			} else if hit {
				httpx.JSON(w, http.StatusOK, cached)
				return
			}
		}
	}

	rep, err := h.service.Report(ctx, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := toResponse(rep)
	if rep.Degraded {
		h.metrics.ReportDegraded()
	} else if useCache {
		// Degraded reports are transient and must never mask recovery.
		if err := h.cache.SetJSON(ctx, key, resp); err != nil {
			h.logger.Warn("report cache write failed", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", vErr.Error())
	case errors.Is(err, ErrCountUnavailable):
		h.logger.Error("report count unavailable", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Report Unavailable", "count reconciliation failed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.Problem(w, http.StatusServiceUnavailable, "Report Unavailable", "request cancelled")
	default:
		h.logger.Error("report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
