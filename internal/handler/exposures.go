package handler

import (
	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type ExposureHandler struct {
	Exposure *service.ExposureService
}

func (h *ExposureHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/exposures")
	group.GET("/commercial", h.commercial)
	group.GET("/global", h.global)
}

func (h *ExposureHandler) commercial(c *gin.Context) {
	result, err := h.Exposure.Commercial(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *ExposureHandler) global(c *gin.Context) {
	result, err := h.Exposure.Global(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}
