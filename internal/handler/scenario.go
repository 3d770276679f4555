package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type ScenarioHandler struct {
	Scenario *service.ScenarioService
}

func (h *ScenarioHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/scenarios/run", h.run)
}

// run evaluates a what-if overlay. Nothing is persisted and no audit event
// is recorded: scenarios are reads, not mutations.
func (h *ScenarioHandler) run(c *gin.Context) {
	var params service.RunScenarioParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	result, err := h.Scenario.Run(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, result, nil)
}
