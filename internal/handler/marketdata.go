package handler

import (
	"github.com/gin-gonic/gin"

	"hedgeback/internal/repository"
	"hedgeback/internal/service"
)

type MarketDataHandler struct {
	Ingest *service.MarketDataIngestService
	Repo   repository.Repository
	Symbol string
	Audit  *auditRecorder
}

func (h *MarketDataHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/market-data")
	group.POST("/ingest", h.ingest)
	group.GET("/prices", h.prices)
}

func (h *MarketDataHandler) ingest(c *gin.Context) {
	result, err := h.Ingest.RunOnce(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "MARKET_DATA_INGESTED", "cash_settlement_price", h.Symbol, result)
	Ok(c, result, nil)
}

func (h *MarketDataHandler) prices(c *gin.Context) {
	date, err := dateQuery(c, "date")
	if err != nil {
		fail(c, err)
		return
	}
	symbol := c.DefaultQuery("symbol", h.Symbol)
	items, err := h.Repo.ListCashSettlementPricesBySymbolDate(c.Request.Context(), symbol, date)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
