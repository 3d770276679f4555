package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

func TestCashflowAnalytic_SumsBook(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.mustContract(models.HedgeLegSideBuy, 5, 100)   // 5 x (110-100) = 50
	f.mustVariableOrder(models.OrderTypeSales, 3, 95) // 3 x (110-95) = 45
	// Fixed order is skipped, not an error.
	if _, err := f.orders.Create(ctx, CreateOrderParams{
		OrderType:  models.OrderTypeSales,
		PriceType:  models.PriceTypeFixed,
		QuantityMT: decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("err=%v", err)
	}

	cf := f.cashflow(priceAt("2026-08-31", 110))
	analytic, err := cf.Analytic(ctx, mustDate("2026-09-01"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(analytic.Items) != 2 {
		t.Fatalf("items=%d want=2", len(analytic.Items))
	}
	if !analytic.TotalNetCashflow.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("total=%s want=95", analytic.TotalNetCashflow)
	}
}

func TestCashflowBaselineSnapshot_IdempotentOrConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustContract(models.HedgeLegSideBuy, 5, 100)
	asOf := mustDate("2026-09-01")

	cf := f.cashflow(priceAt("2026-08-31", 110))
	first, err := cf.CreateBaselineSnapshot(ctx, asOf, "corr-1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	replay, err := cf.CreateBaselineSnapshot(ctx, asOf, "corr-2")
	if err != nil {
		t.Fatalf("replay err=%v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay id=%s want=%s", replay.ID, first.ID)
	}

	// Book changed: the same as-of date now derives different values.
	f.mustContract(models.HedgeLegSideBuy, 7, 100)
	_, err = cf.CreateBaselineSnapshot(ctx, asOf, "corr-3")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestApplySettlement_CreatesLedgerAndSettlesContract(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	eventID := uuid.New()
	result, err := cf.ApplySettlement(ctx, ApplySettlementParams{
		SourceEventID:  eventID,
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
		Legs:           settlementLegs(540, 500),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.Replay {
		t.Fatalf("fresh settlement flagged as replay")
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries=%d want=2", len(result.Entries))
	}
	if result.Event.ID != eventID {
		t.Fatalf("event id=%s want caller-supplied %s", result.Event.ID, eventID)
	}

	settled, err := f.contracts.Get(ctx, contract.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if settled.Status != models.HedgeContractStatusSettled {
		t.Fatalf("status=%s want=settled", settled.Status)
	}
}

func TestApplySettlement_FullReplayIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	params := ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
		Legs:           settlementLegs(540, 500),
	}
	if _, err := cf.ApplySettlement(ctx, params); err != nil {
		t.Fatalf("err=%v", err)
	}

	replay, err := cf.ApplySettlement(ctx, params)
	if err != nil {
		t.Fatalf("replay err=%v", err)
	}
	if !replay.Replay {
		t.Fatalf("replay not flagged")
	}

	// The ledger must hold exactly the original two rows.
	entries, err := cf.ListLedgerEntries(ctx, contract.ID, mustDate("2026-01-01"), mustDate("2026-12-31"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2 after replay", len(entries))
	}
}

func TestApplySettlement_DivergentReplayConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	params := ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
		Legs:           settlementLegs(540, 500),
	}
	if _, err := cf.ApplySettlement(ctx, params); err != nil {
		t.Fatalf("err=%v", err)
	}

	diverged := params
	diverged.SettledPrice = decimal.NewFromInt(109)
	if _, err := cf.ApplySettlement(ctx, diverged); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("price divergence err=%v want conflict", err)
	}

	divergedLegs := params
	divergedLegs.Legs = settlementLegs(999, 500)
	if _, err := cf.ApplySettlement(ctx, divergedLegs); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("leg divergence err=%v want conflict", err)
	}
}

func TestApplySettlement_AlreadySettledContractConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	if _, err := cf.ApplySettlement(ctx, ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
		Legs:           settlementLegs(540, 500),
	}); err != nil {
		t.Fatalf("err=%v", err)
	}

	// A different source event against the now-settled contract.
	_, err := cf.ApplySettlement(ctx, ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-21"),
		SettledPrice:   decimal.NewFromInt(109),
		Legs:           settlementLegs(545, 500),
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestApplySettlement_LegValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	base := ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
	}

	oneLeg := base
	oneLeg.Legs = settlementLegs(540, 500)[:1]
	if _, err := cf.ApplySettlement(ctx, oneLeg); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("one leg err=%v want validation", err)
	}

	twoFixed := base
	twoFixed.Legs = []SettlementLeg{
		{Leg: models.CashFlowLegFixed, Direction: models.CashFlowDirectionIn, Currency: "USD", Amount: decimal.NewFromInt(1)},
		{Leg: models.CashFlowLegFixed, Direction: models.CashFlowDirectionOut, Currency: "USD", Amount: decimal.NewFromInt(1)},
	}
	if _, err := cf.ApplySettlement(ctx, twoFixed); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("duplicate leg err=%v want validation", err)
	}

	badCurrency := base
	badCurrency.Legs = settlementLegs(540, 500)
	badCurrency.Legs[0].Currency = "EUR"
	if _, err := cf.ApplySettlement(ctx, badCurrency); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("bad currency err=%v want validation", err)
	}

	negative := base
	negative.Legs = settlementLegs(540, 500)
	negative.Legs[1].Amount = decimal.NewFromInt(-1)
	if _, err := cf.ApplySettlement(ctx, negative); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative amount err=%v want validation", err)
	}

	unknownContract := base
	unknownContract.Legs = settlementLegs(540, 500)
	unknownContract.ContractID = uuid.New()
	if _, err := cf.ApplySettlement(ctx, unknownContract); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown contract err=%v want not found", err)
	}
}

func TestGetBaselineSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	created, err := cf.CreateBaselineSnapshot(ctx, mustDate("2026-09-01"), "corr-1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	got, err := cf.GetBaselineSnapshot(ctx, mustDate("2026-09-01"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id=%s want=%s", got.ID, created.ID)
	}

	_, err = cf.GetBaselineSnapshot(ctx, mustDate("2026-09-02"))
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestListLedgerEntriesByEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	cf := f.cashflow(priceAt("2026-08-31", 110))

	eventID := uuid.New()
	_, err := cf.ApplySettlement(ctx, ApplySettlementParams{
		SourceEventID:  eventID,
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-20"),
		SettledPrice:   decimal.NewFromInt(108),
		Legs:           settlementLegs(540, 500),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	entries, err := cf.ListLedgerEntriesByEvent(ctx, eventID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2", len(entries))
	}
	for _, e := range entries {
		if e.SourceEventID != eventID {
			t.Fatalf("source event=%s want=%s", e.SourceEventID, eventID)
		}
	}

	entries, err = cf.ListLedgerEntriesByEvent(ctx, uuid.New())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries=%d want=0", len(entries))
	}
}
