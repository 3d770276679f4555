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

type MTMHandler struct {
	MTM   *service.MTMService
	Audit *auditRecorder
}

func (h *MTMHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/mtm")
	group.GET("/snapshots", h.getSnapshot)
	group.GET("/:object_type/:id", h.compute)
	group.POST("/snapshots", h.createSnapshot)
}

func (h *MTMHandler) getSnapshot(c *gin.Context) {
	objectType, err := parseMTMObjectType(c.Query("object_type"))
	if err != nil {
		fail(c, err)
		return
	}
	objectID, err := uuid.Parse(c.Query("object_id"))
	if err != nil {
		fail(c, apperr.Validation("object_id must be a uuid"))
		return
	}
	asOfDate, err := dateQuery(c, "as_of_date")
	if err != nil {
		fail(c, err)
		return
	}
	snap, err := h.MTM.GetSnapshot(c.Request.Context(), objectType, objectID, asOfDate)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, snap, nil)
}

func parseMTMObjectType(raw string) (models.MTMObjectType, error) {
	switch models.MTMObjectType(raw) {
	case models.MTMObjectTypeHedgeContract:
		return models.MTMObjectTypeHedgeContract, nil
	case models.MTMObjectTypeOrder:
		return models.MTMObjectTypeOrder, nil
	default:
		return "", apperr.Validation("object type must be hedge_contract or order, got %q", raw)
	}
}

func (h *MTMHandler) compute(c *gin.Context) {
	objectType, err := parseMTMObjectType(c.Param("object_type"))
	if err != nil {
		fail(c, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	asOfDate, err := dateQuery(c, "as_of_date")
	if err != nil {
		fail(c, err)
		return
	}

	var result *service.MTMResult
	if objectType == models.MTMObjectTypeHedgeContract {
		result, err = h.MTM.ComputeContract(c.Request.Context(), id, asOfDate)
	} else {
		result, err = h.MTM.ComputeOrder(c.Request.Context(), id, asOfDate)
	}
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}

type createMTMSnapshotRequest struct {
	ObjectType models.MTMObjectType `json:"object_type"`
	ObjectID   uuid.UUID            `json:"object_id"`
	AsOfDate   string               `json:"as_of_date"`
}

func (h *MTMHandler) createSnapshot(c *gin.Context) {
	var req createMTMSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	objectType, err := parseMTMObjectType(string(req.ObjectType))
	if err != nil {
		fail(c, err)
		return
	}
	asOfDate, err := time.Parse("2006-01-02", req.AsOfDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "as_of_date must be yyyy-mm-dd", nil)
		return
	}

	snap, err := h.MTM.CreateSnapshot(c.Request.Context(), objectType, req.ObjectID, asOfDate.UTC(), correlationID(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "MTM_SNAPSHOT_CREATED", "mtm_snapshot", snap.ID.String(), snap)
	Ok(c, snap, nil)
}
