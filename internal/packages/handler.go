package packages

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stakeledger/stakeledger/internal/platform/httpx"
	"github.com/stakeledger/stakeledger/internal/shared"
)

// Handler exposes the catalogue over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalogue handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the catalogue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

type packagePayload struct {
	Code         string  `json:"code" validate:"required,max=32"`
	Name         string  `json:"name" validate:"required,max=128"`
	MinAmount    float64 `json:"min_amount" validate:"gte=0"`
	MaxAmount    float64 `json:"max_amount" validate:"gte=0"`
	DailyROIPct  float64 `json:"daily_roi_pct" validate:"gte=0,lte=100"`
	DurationDays int     `json:"duration_days" validate:"gte=0"`
	IsActive     bool    `json:"is_active"`
}

func (p packagePayload) toModel() Package {
	return Package{
		Code:         p.Code,
		Name:         p.Name,
		MinAmount:    p.MinAmount,
		MaxAmount:    p.MaxAmount,
		DailyROIPct:  p.DailyROIPct,
		DurationDays: p.DurationDays,
		IsActive:     p.IsActive,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Search:  q.Get("search"),
		SortBy:  q.Get("sort_by"),
		SortDir: q.Get("sort_dir"),
	}
	if raw := q.Get("is_active"); raw != "" {
		active := raw == "true" || raw == "1"
		filters.IsActive = &active
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))

	list, paging, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list packages failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		List []Package `json:"list"`
		shared.Pagination
	}{List: list, Pagination: paging})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid package id")
		return
	}
	pkg, err := h.service.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "package not found")
		return
	}
	if err != nil {
		h.logger.Error("get package failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, pkg)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	pkg, err := h.service.Create(r.Context(), payload.toModel())
	if errors.Is(err, httpx.ErrDuplicate) {
		httpx.Problem(w, http.StatusConflict, "Duplicate", "package code already exists")
		return
	}
	if err != nil {
		h.logger.Error("create package failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, pkg)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid package id")
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	err = h.service.Update(r.Context(), id, payload.toModel())
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "package not found")
		return
	}
	if err != nil {
		h.logger.Error("update package failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid package id")
		return
	}
	err = h.service.Deactivate(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "package not found")
		return
	}
	if err != nil {
		h.logger.Error("deactivate package failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (packagePayload, bool) {
	var payload packagePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return packagePayload{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid field "+fieldErrs[0].Field())
			return packagePayload{}, false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request")
		return packagePayload{}, false
	}
	return payload, true
}
