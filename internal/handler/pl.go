package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/service"
)

type PLHandler struct {
	PL    *service.PLService
	Audit *auditRecorder
}

func (h *PLHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pl")
	group.GET("/snapshots", h.getSnapshot)
	group.GET("/:entity_type/:id", h.compute)
	group.POST("/snapshots", h.createSnapshot)
}

func (h *PLHandler) getSnapshot(c *gin.Context) {
	entityType, err := parsePLEntityType(c.Query("entity_type"))
	if err != nil {
		fail(c, err)
		return
	}
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		fail(c, apperr.Validation("entity_id must be a uuid"))
		return
	}
	periodStart, err := dateQuery(c, "period_start")
	if err != nil {
		fail(c, err)
		return
	}
	periodEnd, err := dateQuery(c, "period_end")
	if err != nil {
		fail(c, err)
		return
	}
	snap, err := h.PL.GetSnapshot(c.Request.Context(), entityType, entityID, periodStart, periodEnd)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, snap, nil)
}

func parsePLEntityType(raw string) (models.PLEntityType, error) {
	switch models.PLEntityType(raw) {
	case models.PLEntityTypeHedgeContract:
		return models.PLEntityTypeHedgeContract, nil
	case models.PLEntityTypeOrder:
		return models.PLEntityTypeOrder, nil
	default:
		return "", apperr.Validation("entity type must be hedge_contract or order, got %q", raw)
	}
}

func (h *PLHandler) compute(c *gin.Context) {
	entityType, err := parsePLEntityType(c.Param("entity_type"))
	if err != nil {
		fail(c, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	periodStart, err := dateQuery(c, "period_start")
	if err != nil {
		fail(c, err)
		return
	}
	periodEnd, err := dateQuery(c, "period_end")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.PL.Compute(c.Request.Context(), entityType, id, periodStart, periodEnd)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}

type createPLSnapshotRequest struct {
	EntityType  models.PLEntityType `json:"entity_type"`
	EntityID    uuid.UUID           `json:"entity_id"`
	PeriodStart string              `json:"period_start"`
	PeriodEnd   string              `json:"period_end"`
}

func (h *PLHandler) createSnapshot(c *gin.Context) {
	var req createPLSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	entityType, err := parsePLEntityType(string(req.EntityType))
	if err != nil {
		fail(c, err)
		return
	}
	periodStart, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		Error(c, http.StatusBadRequest, "period_start must be yyyy-mm-dd", nil)
		return
	}
	periodEnd, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		Error(c, http.StatusBadRequest, "period_end must be yyyy-mm-dd", nil)
		return
	}

	snap, err := h.PL.CreateSnapshot(c.Request.Context(), entityType, req.EntityID, periodStart.UTC(), periodEnd.UTC(), correlationID(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "PL_SNAPSHOT_CREATED", "pl_snapshot", snap.ID.String(), snap)
	Ok(c, snap, nil)
}
