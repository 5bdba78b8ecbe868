package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/middleware"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
	"github.com/storeforge/access-plane/utils"
)

// AuditHandler exposes the decision audit trail for the caller's store
type AuditHandler struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditRepo repositories.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// HandleList handles GET /api/v1/audit-logs. Filters, applied one at a
// time in precedence order: request_id, user_id, action, from/to range.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeID := middleware.GetStoreIDFromContext(ctx)
	if storeID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	limit, offset := paginationParams(r, 100)
	query := r.URL.Query()

	if requestID := query.Get("request_id"); requestID != "" {
		logs, err := h.auditRepo.GetByRequestID(ctx, storeID, requestID)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, logs)
		return
	}

	if rawUserID := query.Get("user_id"); rawUserID != "" {
		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
			return
		}
		logs, err := h.auditRepo.GetByUserID(ctx, storeID, userID, limit, offset)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, logs)
		return
	}

	if action := query.Get("action"); action != "" {
		logs, err := h.auditRepo.GetByAction(ctx, storeID, models.AuditAction(action), limit, offset)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, logs)
		return
	}

	if from, to, ok, err := dateRangeParams(query.Get("from"), query.Get("to")); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid date range, expected RFC3339", nil)
		return
	} else if ok {
		logs, err := h.auditRepo.GetByDateRange(ctx, storeID, from, to, limit, offset)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, logs)
		return
	}

	logs, err := h.auditRepo.GetByStoreID(ctx, storeID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, logs)
}

// HandleGet handles GET /api/v1/audit-logs/{logID}
func (h *AuditHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logID, err := uuid.Parse(chi.URLParam(r, "logID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid audit log ID", nil)
		return
	}

	log, err := h.auditRepo.GetByID(ctx, logID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	// Cross-store reads are hidden, not forbidden
	if log.StoreID != middleware.GetStoreIDFromContext(ctx) {
		_ = utils.WriteNotFound(w, "audit log not found")
		return
	}

	_ = utils.WriteOK(w, log)
}

// dateRangeParams parses the from/to filter pair. Both must be present
// for the range filter to apply.
func dateRangeParams(rawFrom, rawTo string) (time.Time, time.Time, bool, error) {
	if rawFrom == "" && rawTo == "" {
		return time.Time{}, time.Time{}, false, nil
	}

	from, err := time.Parse(time.RFC3339, rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	to, err := time.Parse(time.RFC3339, rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}

	return from, to, true, nil
}
