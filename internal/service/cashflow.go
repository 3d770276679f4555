package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

const SourceEventTypeContractSettled = "HEDGE_CONTRACT_SETTLED"

// CashflowService aggregates expected cashflow across the book and ingests
// settlement events into the realized ledger.
type CashflowService struct {
	Repo   repository.Repository
	Prices PriceSource
	Symbol string
	Logger *zap.Logger
}

type CashflowItem struct {
	ObjectType models.MTMObjectType `json:"object_type"`
	ObjectID   uuid.UUID            `json:"object_id"`
	QuantityMT decimal.Decimal      `json:"quantity_mt"`
	EntryPrice decimal.Decimal      `json:"entry_price"`
	PriceD1    decimal.Decimal      `json:"price_d1"`
	MTMValue   decimal.Decimal      `json:"mtm_value"`
}

type CashflowAnalytic struct {
	AsOfDate         time.Time       `json:"as_of_date"`
	Items            []CashflowItem  `json:"items"`
	TotalNetCashflow decimal.Decimal `json:"total_net_cashflow"`
}

// sortItems canonicalizes item order by (object_type, object_id) so stored
// snapshots compare stably against re-derived payloads.
func sortItems(items []CashflowItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ObjectType != items[j].ObjectType {
			return items[i].ObjectType < items[j].ObjectType
		}
		return items[i].ObjectID.String() < items[j].ObjectID.String()
	})
}

// Analytic marks every active contract and MTM-eligible variable order to
// the D-1 price and sums the result. Missing or ambiguous prices fail hard.
func (s *CashflowService) Analytic(ctx context.Context, asOfDate time.Time) (*CashflowAnalytic, error) {
	d1, err := s.Prices.GetPrice(ctx, s.Symbol, priceDate(asOfDate))
	if err != nil {
		return nil, err
	}

	contracts, err := s.Repo.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.Repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return cashflowAnalyticOver(asOfDate, d1, contracts, orders)
}

// cashflowAnalyticOver is the pure aggregation; the scenario engine reuses
// it against overlaid entity copies.
func cashflowAnalyticOver(asOfDate time.Time, d1 decimal.Decimal, contracts []models.HedgeContract, orders []models.Order) (*CashflowAnalytic, error) {
	analytic := &CashflowAnalytic{AsOfDate: asOfDate, Items: []CashflowItem{}}
	for i := range contracts {
		c := contracts[i]
		if c.Status != models.HedgeContractStatusActive {
			continue
		}
		entry, err := contractEntryPrice(&c)
		if err != nil {
			return nil, err
		}
		value := mtmValue(c.QuantityMT, d1, entry)
		analytic.Items = append(analytic.Items, CashflowItem{
			ObjectType: models.MTMObjectTypeHedgeContract,
			ObjectID:   c.ID,
			QuantityMT: c.QuantityMT,
			EntryPrice: entry,
			PriceD1:    d1,
			MTMValue:   value,
		})
		analytic.TotalNetCashflow = analytic.TotalNetCashflow.Add(value)
	}
	for i := range orders {
		o := orders[i]
		if o.PriceType != models.PriceTypeVariable ||
			o.PricingConvention == nil || !o.PricingConvention.MTMEligible() ||
			o.AvgEntryPrice == nil {
			continue
		}
		value := mtmValue(o.QuantityMT, d1, *o.AvgEntryPrice)
		analytic.Items = append(analytic.Items, CashflowItem{
			ObjectType: models.MTMObjectTypeOrder,
			ObjectID:   o.ID,
			QuantityMT: o.QuantityMT,
			EntryPrice: *o.AvgEntryPrice,
			PriceD1:    d1,
			MTMValue:   value,
		})
		analytic.TotalNetCashflow = analytic.TotalNetCashflow.Add(value)
	}
	sortItems(analytic.Items)
	return analytic, nil
}

// CreateBaselineSnapshot freezes the analytic for one as-of date. Identical
// replays return the stored row, divergent replays conflict.
func (s *CashflowService) CreateBaselineSnapshot(ctx context.Context, asOfDate time.Time, correlationID string) (*models.CashFlowBaselineSnapshot, error) {
	analytic, err := s.Analytic(ctx, asOfDate)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(analytic.Items)
	if err != nil {
		return nil, err
	}

	matches := func(existing *models.CashFlowBaselineSnapshot) bool {
		return existing.TotalNetCashflow.Equal(analytic.TotalNetCashflow) &&
			string(existing.SnapshotData) == string(data)
	}

	existing, err := s.Repo.GetCashFlowBaselineSnapshot(ctx, asOfDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if matches(existing) {
			return existing, nil
		}
		return nil, apperr.Conflict("cashflow baseline for %s exists with different values", asOfDate.Format("2006-01-02"))
	}

	snap := &models.CashFlowBaselineSnapshot{
		AsOfDate:         asOfDate,
		SnapshotData:     data,
		TotalNetCashflow: analytic.TotalNetCashflow,
		CorrelationID:    correlationID,
	}
	if err := s.Repo.CreateCashFlowBaselineSnapshot(ctx, snap); err != nil {
		stored, getErr := s.Repo.GetCashFlowBaselineSnapshot(ctx, asOfDate)
		if getErr == nil && stored != nil && matches(stored) {
			return stored, nil
		}
		return nil, mapDuplicate(err, "cashflow baseline for %s exists with different values", asOfDate.Format("2006-01-02"))
	}
	s.Logger.Info("cashflow baseline snapshot created",
		zap.String("as_of_date", asOfDate.Format("2006-01-02")),
		zap.String("total_net_cashflow", analytic.TotalNetCashflow.String()))
	return snap, nil
}

type SettlementLeg struct {
	Leg       models.CashFlowLeg       `json:"leg"`
	Direction models.CashFlowDirection `json:"direction"`
	Currency  string                   `json:"currency"`
	Amount    decimal.Decimal          `json:"amount"`
}

type ApplySettlementParams struct {
	SourceEventID  uuid.UUID       `json:"source_event_id"`
	ContractID     uuid.UUID       `json:"contract_id"`
	SettlementDate time.Time       `json:"settlement_date"`
	SettledPrice   decimal.Decimal `json:"settled_price"`
	Legs           []SettlementLeg `json:"legs"`
	CorrelationID  string          `json:"correlation_id"`
}

func (p ApplySettlementParams) validate() error {
	if p.SourceEventID == uuid.Nil {
		return apperr.Validation("source_event_id is required")
	}
	if len(p.Legs) != 2 {
		return apperr.Validation("settlement requires exactly two legs, got %d", len(p.Legs))
	}
	seen := map[models.CashFlowLeg]bool{}
	for _, leg := range p.Legs {
		switch leg.Leg {
		case models.CashFlowLegFixed, models.CashFlowLegFloat:
		default:
			return apperr.Validation("leg must be FIXED or FLOAT, got %q", leg.Leg)
		}
		if seen[leg.Leg] {
			return apperr.Validation("duplicate %s leg", leg.Leg)
		}
		seen[leg.Leg] = true
		switch leg.Direction {
		case models.CashFlowDirectionIn, models.CashFlowDirectionOut:
		default:
			return apperr.Validation("leg direction must be IN or OUT, got %q", leg.Direction)
		}
		if leg.Currency != "USD" {
			return apperr.Validation("settlement currency must be USD, got %q", leg.Currency)
		}
		if !leg.Amount.IsPositive() {
			return apperr.Validation("leg amount must be positive, got %s", leg.Amount)
		}
	}
	return nil
}

type SettlementResult struct {
	Event   *models.HedgeContractSettlementEvent `json:"event"`
	Entries []models.CashFlowLedgerEntry         `json:"entries"`
	Replay  bool                                 `json:"replay"`
}

// ApplySettlement ingests one HEDGE_CONTRACT_SETTLED event: two ledger legs
// plus the one-way active→settled transition, all in one transaction. A full
// identical replay is a no-op returning the stored objects; any divergence
// for the same source event id is a conflict.
func (s *CashflowService) ApplySettlement(ctx context.Context, params ApplySettlementParams) (*SettlementResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var result *SettlementResult
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.Repo.GetSettlementEventTx(ctx, tx, params.SourceEventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return s.verifyReplayTx(ctx, tx, existing, params, &result)
		}

		contract, err := s.Repo.GetContractByIDTx(ctx, tx, params.ContractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return apperr.NotFound("hedge contract %s not found", params.ContractID)
		}
		if contract.Status != models.HedgeContractStatusActive {
			return apperr.Conflict("hedge contract %s is %s and cannot be settled by event %s",
				contract.ID, contract.Status, params.SourceEventID)
		}

		event := &models.HedgeContractSettlementEvent{
			ID:             params.SourceEventID,
			ContractID:     params.ContractID,
			SettlementDate: params.SettlementDate,
			SettledPrice:   params.SettledPrice,
			CorrelationID:  params.CorrelationID,
		}
		if err := s.Repo.CreateSettlementEventTx(ctx, tx, event); err != nil {
			return mapDuplicate(err, "settlement event %s already exists", params.SourceEventID)
		}

		entries := make([]models.CashFlowLedgerEntry, 0, 2)
		for _, leg := range params.Legs {
			entry := models.CashFlowLedgerEntry{
				SourceEventType: SourceEventTypeContractSettled,
				SourceEventID:   params.SourceEventID,
				LegID:           string(leg.Leg),
				CashflowDate:    params.SettlementDate,
				ContractID:      params.ContractID,
				Leg:             leg.Leg,
				Direction:       leg.Direction,
				Currency:        leg.Currency,
				Amount:          leg.Amount,
				CorrelationID:   params.CorrelationID,
			}
			if err := s.Repo.CreateLedgerEntryTx(ctx, tx, &entry); err != nil {
				return mapDuplicate(err, "ledger entry for event %s leg %s already exists", params.SourceEventID, leg.Leg)
			}
			entries = append(entries, entry)
		}

		if err := s.Repo.UpdateContractStatusTx(ctx, tx, contract.ID, models.HedgeContractStatusSettled); err != nil {
			return err
		}
		result = &SettlementResult{Event: event, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Replay {
		s.Logger.Info("settlement applied",
			zap.String("contract_id", params.ContractID.String()),
			zap.String("source_event_id", params.SourceEventID.String()))
	}
	return result, nil
}

func (s *CashflowService) verifyReplayTx(ctx context.Context, tx *gorm.DB, event *models.HedgeContractSettlementEvent, params ApplySettlementParams, out **SettlementResult) error {
	if event.ContractID != params.ContractID ||
		!sameCivilDate(event.SettlementDate, params.SettlementDate) ||
		!event.SettledPrice.Equal(params.SettledPrice) {
		return apperr.Conflict("settlement event %s exists with different values", event.ID)
	}
	entries, err := s.Repo.ListLedgerEntriesBySourceEventTx(ctx, tx, SourceEventTypeContractSettled, event.ID)
	if err != nil {
		return err
	}
	if len(entries) != len(params.Legs) {
		return apperr.Conflict("settlement event %s exists with different legs", event.ID)
	}
	byLeg := make(map[string]models.CashFlowLedgerEntry, len(entries))
	for _, e := range entries {
		byLeg[e.LegID] = e
	}
	for _, leg := range params.Legs {
		stored, ok := byLeg[string(leg.Leg)]
		if !ok || stored.Direction != leg.Direction || stored.Currency != leg.Currency || !stored.Amount.Equal(leg.Amount) {
			return apperr.Conflict("settlement event %s exists with different legs", event.ID)
		}
	}
	*out = &SettlementResult{Event: event, Entries: entries, Replay: true}
	return nil
}

func sameCivilDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ListLedgerEntries returns a contract's realized ledger within a period.
func (s *CashflowService) ListLedgerEntries(ctx context.Context, contractID uuid.UUID, periodStart, periodEnd time.Time) ([]models.CashFlowLedgerEntry, error) {
	return s.Repo.ListLedgerEntriesByContract(ctx, contractID, periodStart, periodEnd)
}

// GetBaselineSnapshot reads a stored baseline by as-of date.
func (s *CashflowService) GetBaselineSnapshot(ctx context.Context, asOfDate time.Time) (*models.CashFlowBaselineSnapshot, error) {
	snap, err := s.Repo.GetCashFlowBaselineSnapshot(ctx, asOfDate)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperr.NotFound("no cashflow baseline for %s", asOfDate.Format("2006-01-02"))
	}
	return snap, nil
}

// ListLedgerEntriesByEvent returns the ledger rows written for one
// settlement event.
func (s *CashflowService) ListLedgerEntriesByEvent(ctx context.Context, sourceEventID uuid.UUID) ([]models.CashFlowLedgerEntry, error) {
	return s.Repo.ListLedgerEntriesBySourceEventTx(ctx, nil, SourceEventTypeContractSettled, sourceEventID)
}
