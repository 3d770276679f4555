package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type AuditHandler struct {
	Audit            *service.AuditService
	PageLimitDefault int
}

func (h *AuditHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/audit-events")
	group.GET("", h.list)
	group.POST("", h.record)
}

func (h *AuditHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", h.PageLimitDefault)
	page, err := h.Audit.List(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	meta := map[string]any{"count": len(page.Events)}
	if page.NextCursor != "" {
		meta["next_cursor"] = page.NextCursor
	}
	Ok(c, page.Events, meta)
}

// record lets external systems append their own events to the trail with a
// caller-supplied id; a duplicate id is a conflict.
func (h *AuditHandler) record(c *gin.Context) {
	var params service.RecordAuditParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	if params.CorrelationID == "" {
		params.CorrelationID = correlationID(c)
	}
	event, err := h.Audit.Record(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, event, nil)
}
