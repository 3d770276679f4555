package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type LinkageHandler struct {
	Linkages *service.LinkageService
	Audit    *auditRecorder
}

func (h *LinkageHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/linkages")
	group.POST("", h.create)
	group.GET("", h.list)
}

func (h *LinkageHandler) create(c *gin.Context) {
	var params service.CreateLinkageParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	linkage, err := h.Linkages.Create(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "LINKAGE_CREATED", "hedge_order_linkage", linkage.ID.String(), linkage)
	Ok(c, linkage, nil)
}

func (h *LinkageHandler) list(c *gin.Context) {
	items, err := h.Linkages.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
