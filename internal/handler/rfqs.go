package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hedgeback/internal/service"
)

type RFQHandler struct {
	RFQs  *service.RFQService
	Audit *auditRecorder
}

func (h *RFQHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/rfqs")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/state-events", h.stateEvents)
	group.GET("/:id/invitations", h.invitations)
	group.GET("/:id/quotes", h.quotes)
	group.POST("/:id/quotes", h.submitQuote)
	group.GET("/:id/rankings/trade", h.tradeRanking)
	group.GET("/:id/rankings/spread", h.spreadRanking)
	group.POST("/:id/reject", h.reject)
	group.POST("/:id/refresh", h.refresh)
	group.POST("/:id/award", h.award)
}

func (h *RFQHandler) create(c *gin.Context) {
	var params service.CreateRFQParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	item, err := h.RFQs.Create(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "RFQ_CREATED", "rfq", item.ID.String(), item)
	Ok(c, item, nil)
}

func (h *RFQHandler) list(c *gin.Context) {
	items, err := h.RFQs.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *RFQHandler) get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	item, err := h.RFQs.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *RFQHandler) stateEvents(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	items, err := h.RFQs.ListStateEvents(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *RFQHandler) invitations(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	items, err := h.RFQs.ListInvitations(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *RFQHandler) quotes(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	items, err := h.RFQs.ListQuotes(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *RFQHandler) submitQuote(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var params service.SubmitQuoteParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	quote, err := h.RFQs.SubmitQuote(c.Request.Context(), id, params)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "RFQ_QUOTE_SUBMITTED", "rfq_quote", quote.ID.String(), quote)
	Ok(c, quote, nil)
}

func (h *RFQHandler) tradeRanking(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ranking, err := h.RFQs.TradeRanking(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, ranking, nil)
}

func (h *RFQHandler) spreadRanking(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ranking, err := h.RFQs.SpreadRanking(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, ranking, nil)
}

func (h *RFQHandler) reject(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	item, err := h.RFQs.Reject(c.Request.Context(), id, userIDHeader(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "RFQ_REJECTED", "rfq", item.ID.String(), item)
	Ok(c, item, nil)
}

func (h *RFQHandler) refresh(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	invitations, err := h.RFQs.Refresh(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "RFQ_REFRESHED", "rfq", id.String(), invitations)
	Ok(c, invitations, map[string]any{"count": len(invitations)})
}

func (h *RFQHandler) award(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.RFQs.Award(c.Request.Context(), id, userIDHeader(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "RFQ_AWARDED", "rfq", id.String(), result)
	Ok(c, result, nil)
}
