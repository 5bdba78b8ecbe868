package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/utils"
)

// StoreHandler manages platform stores (tenants)
type StoreHandler struct {
	storeRepo repositories.StoreRepository
	logger    *zap.Logger
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(storeRepo repositories.StoreRepository, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{
		storeRepo: storeRepo,
		logger:    logger,
	}
}

// CreateStoreRequest is the request body for creating a store
type CreateStoreRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"required,max=100,slug"`
}

// UpdateStoreRequest is the request body for updating a store
type UpdateStoreRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// HandleList handles GET /api/v1/stores
func (h *StoreHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	stores, err := h.storeRepo.List(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stores)
}

// HandleCreate handles POST /api/v1/stores
func (h *StoreHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	store := models.NewStore(req.Name, req.Slug)
	if err := h.storeRepo.Create(r.Context(), store); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, store)
}

// HandleGet handles GET /api/v1/stores/{storeID}
func (h *StoreHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid store ID", nil)
		return
	}

	store, err := h.storeRepo.GetByID(r.Context(), storeID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, store)
}

// HandleUpdate handles PUT /api/v1/stores/{storeID}
func (h *StoreHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid store ID", nil)
		return
	}

	var req UpdateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	store, err := h.storeRepo.GetByID(r.Context(), storeID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	store.Name = req.Name
	if err := h.storeRepo.Update(r.Context(), store); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, store)
}

// HandleDelete handles DELETE /api/v1/stores/{storeID}
func (h *StoreHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid store ID", nil)
		return
	}

	if err := h.storeRepo.Delete(r.Context(), storeID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// paginationParams parses limit/offset query parameters with bounds
func paginationParams(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
