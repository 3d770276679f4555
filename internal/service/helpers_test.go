package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	memoryrepository "hedgeback/internal/repository/memory"
)

const testSymbol = "LME_ALU_CASH_SETTLEMENT_DAILY"

// stubPrices serves fixed prices keyed by date, bypassing the repository.
type stubPrices struct {
	prices map[string]decimal.Decimal
	err    error
}

func (s *stubPrices) GetPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Decimal{}, s.err
	}
	price, ok := s.prices[date.Format("2006-01-02")]
	if !ok {
		return decimal.Decimal{}, apperr.FailedDependency("no settlement price for %s on %s", symbol, date.Format("2006-01-02"))
	}
	return price, nil
}

func priceAt(date string, price int64) *stubPrices {
	return &stubPrices{prices: map[string]decimal.Decimal{date: decimal.NewFromInt(price)}}
}

type fixture struct {
	store     *memoryrepository.Store
	orders    *OrderService
	contracts *ContractService
	linkages  *LinkageService
	rfqs      *RFQService
	prices    *PriceLookupService
}

func newFixture() *fixture {
	store := memoryrepository.New()
	logger := zap.NewNop()
	return &fixture{
		store:     store,
		orders:    &OrderService{Repo: store, Logger: logger},
		contracts: &ContractService{Repo: store, Logger: logger},
		linkages:  &LinkageService{Repo: store, Logger: logger},
		rfqs:      &RFQService{Repo: store, Logger: logger},
		prices:    &PriceLookupService{Repo: store},
	}
}

func (f *fixture) mtm(prices PriceSource) *MTMService {
	return &MTMService{Repo: f.store, Prices: prices, Symbol: testSymbol, Logger: zap.NewNop()}
}

func (f *fixture) cashflow(prices PriceSource) *CashflowService {
	return &CashflowService{Repo: f.store, Prices: prices, Symbol: testSymbol, Logger: zap.NewNop()}
}

func (f *fixture) pl(prices PriceSource) *PLService {
	return &PLService{Repo: f.store, MTM: f.mtm(prices), Logger: zap.NewNop()}
}

func (f *fixture) scenario(prices PriceSource) *ScenarioService {
	return &ScenarioService{Repo: f.store, Prices: prices, Symbol: testSymbol, Logger: zap.NewNop()}
}

func (f *fixture) audit() *AuditService {
	return &AuditService{Repo: f.store, Logger: zap.NewNop()}
}

func (f *fixture) mustVariableOrder(orderType models.OrderType, qty, entry int64) *models.Order {
	conv := models.PricingConventionAVG
	entryPrice := decimal.NewFromInt(entry)
	order, err := f.orders.Create(context.Background(), CreateOrderParams{
		OrderType:         orderType,
		PriceType:         models.PriceTypeVariable,
		QuantityMT:        decimal.NewFromInt(qty),
		PricingConvention: &conv,
		AvgEntryPrice:     &entryPrice,
	})
	if err != nil {
		panic(err)
	}
	return order
}

func (f *fixture) mustContract(side models.HedgeLegSide, qty, fixedPrice int64) *models.HedgeContract {
	price := decimal.NewFromInt(fixedPrice)
	unit := "USD/MT"
	conv := "AVG"
	contract, err := f.contracts.Create(context.Background(), CreateContractParams{
		Commodity:              "ALUMINIUM",
		QuantityMT:             decimal.NewFromInt(qty),
		FixedLegSide:           side,
		FixedPriceValue:        &price,
		FixedPriceUnit:         &unit,
		FloatPricingConvention: &conv,
	})
	if err != nil {
		panic(err)
	}
	return contract
}

func (f *fixture) mustRFQ(params CreateRFQParams) *models.RFQ {
	item, err := f.rfqs.Create(context.Background(), params)
	if err != nil {
		panic(err)
	}
	return item
}

func recipients(ids ...string) []InvitationRecipient {
	out := make([]InvitationRecipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, InvitationRecipient{
			RecipientID:   id,
			RecipientName: "Counterparty " + id,
			Channel:       models.RFQInvitationChannelEmail,
		})
	}
	return out
}

func deliveryWindow() (time.Time, time.Time) {
	return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
}

func globalRFQParams(direction models.RFQDirection, qty int64, rcpt ...string) CreateRFQParams {
	start, end := deliveryWindow()
	return CreateRFQParams{
		Intent:              models.RFQIntentGlobalPosition,
		Commodity:           "ALUMINIUM",
		QuantityMT:          decimal.NewFromInt(qty),
		Direction:           direction,
		DeliveryWindowStart: start,
		DeliveryWindowEnd:   end,
		Recipients:          recipients(rcpt...),
	}
}

func quoteParams(cp string, price int64) SubmitQuoteParams {
	return SubmitQuoteParams{
		CounterpartyID:         cp,
		FixedPriceValue:        decimal.NewFromInt(price),
		FixedPriceUnit:         "USD/MT",
		FloatPricingConvention: "AVG",
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// settlementLegs builds the canonical two-leg USD settlement: FLOAT in,
// FIXED out.
func settlementLegs(inAmount, outAmount int64) []SettlementLeg {
	return []SettlementLeg{
		{Leg: models.CashFlowLegFloat, Direction: models.CashFlowDirectionIn, Currency: "USD", Amount: decimal.NewFromInt(inAmount)},
		{Leg: models.CashFlowLegFixed, Direction: models.CashFlowDirectionOut, Currency: "USD", Amount: decimal.NewFromInt(outAmount)},
	}
}
