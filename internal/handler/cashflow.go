package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/service"
)

type CashflowHandler struct {
	Cashflow *service.CashflowService
	Audit    *auditRecorder
}

func (h *CashflowHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/cashflow")
	group.GET("", h.analytic)
	group.GET("/snapshots", h.getSnapshot)
	group.POST("/snapshots", h.createSnapshot)
	r.POST("/api/v1/settlement-events", h.applySettlement)
	r.GET("/api/v1/settlement-events/:id/ledger", h.eventLedger)
	r.GET("/api/v1/contracts/:id/ledger", h.ledger)
}

func (h *CashflowHandler) getSnapshot(c *gin.Context) {
	asOfDate, err := dateQuery(c, "as_of_date")
	if err != nil {
		fail(c, err)
		return
	}
	snap, err := h.Cashflow.GetBaselineSnapshot(c.Request.Context(), asOfDate)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, snap, nil)
}

func (h *CashflowHandler) eventLedger(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	entries, err := h.Cashflow.ListLedgerEntriesByEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, entries, map[string]any{"count": len(entries)})
}

func (h *CashflowHandler) analytic(c *gin.Context) {
	asOfDate, err := dateQuery(c, "as_of_date")
	if err != nil {
		fail(c, err)
		return
	}
	analytic, err := h.Cashflow.Analytic(c.Request.Context(), asOfDate)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, analytic, nil)
}

type createCashflowSnapshotRequest struct {
	AsOfDate string `json:"as_of_date"`
}

func (h *CashflowHandler) createSnapshot(c *gin.Context) {
	var req createCashflowSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	asOfDate, err := time.Parse("2006-01-02", req.AsOfDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "as_of_date must be yyyy-mm-dd", nil)
		return
	}
	snap, err := h.Cashflow.CreateBaselineSnapshot(c.Request.Context(), asOfDate.UTC(), correlationID(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.record(c, "CASHFLOW_BASELINE_CREATED", "cashflow_baseline_snapshot", snap.ID.String(), snap)
	Ok(c, snap, nil)
}

type applySettlementRequest struct {
	SourceEventID  uuid.UUID               `json:"source_event_id"`
	ContractID     uuid.UUID               `json:"contract_id"`
	SettlementDate string                  `json:"settlement_date"`
	SettledPrice   decimal.Decimal         `json:"settled_price"`
	Legs           []service.SettlementLeg `json:"legs"`
}

func (h *CashflowHandler) applySettlement(c *gin.Context) {
	var req applySettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	settlementDate, err := time.Parse("2006-01-02", req.SettlementDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "settlement_date must be yyyy-mm-dd", nil)
		return
	}
	result, err := h.Cashflow.ApplySettlement(c.Request.Context(), service.ApplySettlementParams{
		SourceEventID:  req.SourceEventID,
		ContractID:     req.ContractID,
		SettlementDate: settlementDate.UTC(),
		SettledPrice:   req.SettledPrice,
		Legs:           req.Legs,
		CorrelationID:  correlationID(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	if !result.Replay {
		h.Audit.record(c, "HEDGE_CONTRACT_SETTLED", "hedge_contract", req.ContractID.String(), result)
	}
	Ok(c, result, nil)
}

func (h *CashflowHandler) ledger(c *gin.Context) {
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
	entries, err := h.Cashflow.ListLedgerEntries(c.Request.Context(), id, periodStart, periodEnd)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, entries, map[string]any{"count": len(entries)})
}
