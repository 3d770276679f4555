package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/exposure"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

// ScenarioService reruns the exposure, MTM, cashflow and P&L calculators
// over in-memory copies of current state with an ordered list of
// hypothetical deltas applied. Nothing is ever persisted; identical input
// yields identical output.
type ScenarioService struct {
	Repo   repository.Repository
	Prices PriceSource
	Symbol string
	Logger *zap.Logger
}

type ScenarioDeltaType string

const (
	DeltaAddUnlinkedHedgeContract       ScenarioDeltaType = "add_unlinked_hedge_contract"
	DeltaAdjustOrderQuantityMT          ScenarioDeltaType = "adjust_order_quantity_mt"
	DeltaAddCashSettlementPriceOverride ScenarioDeltaType = "add_cash_settlement_price_override"
)

type ScenarioDelta struct {
	Type ScenarioDeltaType `json:"type"`

	// add_unlinked_hedge_contract
	ContractID      *uuid.UUID          `json:"contract_id,omitempty"`
	Commodity       string              `json:"commodity,omitempty"`
	QuantityMT      decimal.Decimal     `json:"quantity_mt,omitempty"`
	FixedLegSide    models.HedgeLegSide `json:"fixed_leg_side,omitempty"`
	VariableLegSide models.HedgeLegSide `json:"variable_leg_side,omitempty"`
	FixedPriceValue *decimal.Decimal    `json:"fixed_price_value,omitempty"`

	// adjust_order_quantity_mt
	OrderID *uuid.UUID `json:"order_id,omitempty"`

	// add_cash_settlement_price_override
	Symbol         string          `json:"symbol,omitempty"`
	SettlementDate time.Time       `json:"settlement_date,omitempty"`
	PriceUSD       decimal.Decimal `json:"price_usd,omitempty"`
}

type RunScenarioParams struct {
	AsOfDate time.Time       `json:"as_of_date"`
	Deltas   []ScenarioDelta `json:"deltas"`
}

type ScenarioResult struct {
	AsOfDate             time.Time                 `json:"as_of_date"`
	CalculationTimestamp time.Time                 `json:"calculation_timestamp"`
	Commercial           exposure.CommercialResult `json:"commercial_exposure"`
	Global               exposure.GlobalResult     `json:"global_exposure"`
	MTMItems             []CashflowItem            `json:"mtm_items"`
	Cashflow             *CashflowAnalytic         `json:"cashflow"`
	PL                   []PLResult                `json:"pl"`
}

// overlayPriceSource consults scenario overrides before the real lookup.
// The fallback keeps its hard-failure behavior for absent keys.
type overlayPriceSource struct {
	overrides map[string]decimal.Decimal
	fallback  PriceSource
}

func priceOverrideKey(symbol string, date time.Time) string {
	return symbol + "|" + date.Format("2006-01-02")
}

func (o *overlayPriceSource) GetPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	if price, ok := o.overrides[priceOverrideKey(symbol, date)]; ok {
		return price, nil
	}
	return o.fallback.GetPrice(ctx, symbol, date)
}

func (s *ScenarioService) Run(ctx context.Context, params RunScenarioParams) (*ScenarioResult, error) {
	if params.AsOfDate.IsZero() {
		return nil, apperr.Validation("as_of_date is required")
	}

	orders, err := s.Repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	contracts, err := s.Repo.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	linkages, err := s.Repo.ListLinkages(ctx)
	if err != nil {
		return nil, err
	}

	// Copies only from here on; the originals are never touched.
	orders = append([]models.Order(nil), orders...)
	contracts = append([]models.HedgeContract(nil), contracts...)

	prices := &overlayPriceSource{overrides: map[string]decimal.Decimal{}, fallback: s.Prices}
	existingIDs := make(map[uuid.UUID]bool, len(contracts))
	for _, c := range contracts {
		existingIDs[c.ID] = true
	}

	for i, delta := range params.Deltas {
		switch delta.Type {
		case DeltaAddUnlinkedHedgeContract:
			virtual, err := virtualContract(delta, existingIDs)
			if err != nil {
				return nil, err
			}
			existingIDs[virtual.ID] = true
			contracts = append(contracts, *virtual)
		case DeltaAdjustOrderQuantityMT:
			if delta.OrderID == nil {
				return nil, apperr.Validation("delta %d: order_id is required", i)
			}
			if !delta.QuantityMT.IsPositive() {
				return nil, apperr.Validation("delta %d: quantity_mt must be positive", i)
			}
			found := false
			for j := range orders {
				if orders[j].ID == *delta.OrderID {
					orders[j].QuantityMT = delta.QuantityMT
					found = true
					break
				}
			}
			if !found {
				return nil, apperr.NotFound("delta %d: order %s not found", i, *delta.OrderID)
			}
		case DeltaAddCashSettlementPriceOverride:
			if delta.Symbol == "" || delta.SettlementDate.IsZero() {
				return nil, apperr.Validation("delta %d: symbol and settlement_date are required", i)
			}
			prices.overrides[priceOverrideKey(delta.Symbol, delta.SettlementDate)] = delta.PriceUSD
		default:
			return nil, apperr.Validation("delta %d: unknown type %q", i, delta.Type)
		}
	}

	// All scenario figures carry the business date, not the wall clock, so
	// identical runs produce identical output.
	calcTS := time.Date(params.AsOfDate.Year(), params.AsOfDate.Month(), params.AsOfDate.Day(), 0, 0, 0, 0, time.UTC)

	commercial, err := exposure.Commercial(orders, linkages)
	if err != nil {
		return nil, err
	}
	commercial.CalculationTimestamp = calcTS
	global, err := exposure.Global(orders, contracts, linkages)
	if err != nil {
		return nil, err
	}
	global.CalculationTimestamp = calcTS
	global.Commercial.CalculationTimestamp = calcTS

	d1, err := prices.GetPrice(ctx, s.Symbol, priceDate(params.AsOfDate))
	if err != nil {
		return nil, err
	}
	cashflow, err := cashflowAnalyticOver(params.AsOfDate, d1, contracts, orders)
	if err != nil {
		return nil, err
	}

	pl, err := s.scenarioPL(ctx, contracts, d1, params.AsOfDate)
	if err != nil {
		return nil, err
	}

	return &ScenarioResult{
		AsOfDate:             params.AsOfDate,
		CalculationTimestamp: calcTS,
		Commercial:           commercial,
		Global:               global,
		MTMItems:             cashflow.Items,
		Cashflow:             cashflow,
		PL:                   pl,
	}, nil
}

func virtualContract(delta ScenarioDelta, existingIDs map[uuid.UUID]bool) (*models.HedgeContract, error) {
	if delta.ContractID == nil {
		return nil, apperr.Validation("add_unlinked_hedge_contract requires contract_id")
	}
	if existingIDs[*delta.ContractID] {
		return nil, apperr.Conflict("contract id %s already exists", *delta.ContractID)
	}
	if delta.FixedLegSide == delta.VariableLegSide {
		return nil, apperr.Validation("virtual contract legs must take opposite sides")
	}
	switch delta.FixedLegSide {
	case models.HedgeLegSideBuy, models.HedgeLegSideSell:
	default:
		return nil, apperr.Validation("fixed_leg_side must be buy or sell, got %q", delta.FixedLegSide)
	}
	if !delta.QuantityMT.IsPositive() {
		return nil, apperr.Validation("virtual contract quantity_mt must be positive, got %s", delta.QuantityMT)
	}
	if delta.FixedPriceValue == nil {
		return nil, apperr.Validation("virtual contract requires fixed_price_value")
	}
	return &models.HedgeContract{
		ID:              *delta.ContractID,
		Commodity:       delta.Commodity,
		QuantityMT:      delta.QuantityMT,
		FixedPriceValue: delta.FixedPriceValue,
		FixedLegSide:    delta.FixedLegSide,
		VariableLegSide: delta.VariableLegSide,
		Classification:  models.ClassificationForFixedSide(delta.FixedLegSide),
		Status:          models.HedgeContractStatusActive,
	}, nil
}

// scenarioPL computes per-contract P&L over the overlaid book: realized
// from the persisted ledger up to the as-of date, unrealized from the
// overlaid D-1 price for contracts still active.
func (s *ScenarioService) scenarioPL(ctx context.Context, contracts []models.HedgeContract, d1 decimal.Decimal, asOfDate time.Time) ([]PLResult, error) {
	results := make([]PLResult, 0, len(contracts))
	for i := range contracts {
		c := contracts[i]
		if c.Status != models.HedgeContractStatusActive {
			continue
		}
		entries, err := s.Repo.ListLedgerEntriesByContract(ctx, c.ID, time.Time{}, asOfDate)
		if err != nil {
			return nil, err
		}
		realized, err := realizedFromLedger(entries)
		if err != nil {
			return nil, err
		}
		entry, err := contractEntryPrice(&c)
		if err != nil {
			return nil, err
		}
		results = append(results, PLResult{
			EntityType:    models.PLEntityTypeHedgeContract,
			EntityID:      c.ID,
			PeriodStart:   time.Time{},
			PeriodEnd:     asOfDate,
			RealizedPL:    realized,
			UnrealizedMTM: mtmValue(c.QuantityMT, d1, entry),
		})
	}
	return results, nil
}
