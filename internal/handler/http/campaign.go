package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository"
	"github.com/dipta-sdd/campaignbay-sub001/internal/service"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/validator"
)

// CampaignHandler handles HTTP requests for campaign endpoints.
type CampaignHandler struct {
	service *service.CampaignService
	logger  *slog.Logger
}

// NewCampaignHandler creates a new campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// Campaign create/update bodies stay schemaless maps: the service layer
// owns the rule-based validation and needs the raw payload to echo back
// on failure.

// SetStatusRequest is the JSON request body for the status endpoint.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ResolvePriceRequest is the JSON request body for pricing resolution.
type ResolvePriceRequest struct {
	Item      domain.CatalogItem `json:"item"`
	Viewer    domain.Viewer      `json:"viewer"`
	Quantity  int                `json:"quantity" validate:"gte=0"`
	BasePrice decimal.Decimal    `json:"base_price"`
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// validationResponse is the contract for validation failures: the first
// error as message, the full per-field detail map, and the original
// input so the client can re-render the form.
type validationResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details map[string]map[string]string `json:"details"`
	Data    any                          `json:"data,omitempty"`
}

type listResponse struct {
	Data       any `json:"data"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// --- Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	campaign, err := h.service.Create(r.Context(), input, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: campaign})
}

// ListCampaigns handles GET /api/v1/campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := repository.CampaignFilter{
		Page:    1,
		PerPage: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if perPage, err := strconv.Atoi(v); err == nil && perPage > 0 && perPage <= 100 {
			filter.PerPage = perPage
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("type"); v != "" {
		filter.Type = &v
	}

	campaigns, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	totalPages := total / filter.PerPage
	if total%filter.PerPage > 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:       campaigns,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	})
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// UpdateCampaign handles PUT /api/v1/campaigns/{id}, a full replace.
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// PatchCampaign handles PATCH /api/v1/campaigns/{id}, a partial update
// merged over the stored campaign.
func (h *CampaignHandler) PatchCampaign(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *CampaignHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	campaign, err := h.service.Update(r.Context(), id, input, partial, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// DeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		h.writeError(w, r, apperrors.NotFound("campaign", id))
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]bool{"deleted": true}})
}

// SetCampaignStatus handles POST /api/v1/campaigns/{id}/status
func (h *CampaignHandler) SetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SetStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "invalid_input", Message: err.Error()},
		})
		return
	}

	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": req.Status}})
}

// IncrementUsage handles POST /api/v1/campaigns/{id}/increment-usage
func (h *CampaignHandler) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	result, err := h.service.IncrementUsageCount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

// GetAuditTrail handles GET /api/v1/campaigns/{id}/audit
func (h *CampaignHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := h.service.AuditTrail(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: entries})
}

// ResolvePrice handles POST /api/v1/pricing/resolve
func (h *CampaignHandler) ResolvePrice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ResolvePriceRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "invalid_input", Message: err.Error()},
		})
		return
	}

	resolution, err := h.service.ResolvePrice(r.Context(), req.Item, req.Viewer, req.Quantity, req.BasePrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: resolution})
}

// --- Helpers ---

func (h *CampaignHandler) campaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "invalid_input", Message: "campaign id must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}

func (h *CampaignHandler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "invalid_input", Message: "invalid request body: " + err.Error()},
		})
		return nil, false
	}
	return input, true
}

// actorFrom identifies the caller for audit stamping. The gateway in
// front of this service sets X-Actor from the authenticated session.
func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}

func (h *CampaignHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		details := make(map[string]map[string]string, len(valErr.Details))
		for field, msg := range valErr.Details {
			details[field] = map[string]string{"message": msg}
		}
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Code:    "validation_error",
			Message: valErr.Message,
			Details: details,
			Data:    valErr.Data,
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "internal error",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	h.logger.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	writeJSON(w, http.StatusInternalServerError, response{
		Error: &errorResponse{Code: "internal_error", Message: "an internal error occurred"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
