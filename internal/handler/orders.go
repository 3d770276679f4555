package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type OrderHandler struct {
	Orders *service.OrderService
	Audit  *auditRecorder
}

func (h *OrderHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/orders")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

func (h *OrderHandler) create(c *gin.Context) {
	var params service.CreateOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	order, err := h.Orders.Create(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "ORDER_CREATED", "order", order.ID.String(), order)
	Ok(c, order, nil)
}

func (h *OrderHandler) list(c *gin.Context) {
	items, err := h.Orders.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *OrderHandler) get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	order, err := h.Orders.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, order, nil)
}
