package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type ContractHandler struct {
	Contracts *service.ContractService
	Audit     *auditRecorder
}

func (h *ContractHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/contracts")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

func (h *ContractHandler) create(c *gin.Context) {
	var params service.CreateContractParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	contract, err := h.Contracts.Create(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "HEDGE_CONTRACT_CREATED", "hedge_contract", contract.ID.String(), contract)
	Ok(c, contract, nil)
}

func (h *ContractHandler) list(c *gin.Context) {
	items, err := h.Contracts.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *ContractHandler) get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	contract, err := h.Contracts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, contract, nil)
}
