package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

func TestMTMComputeContract_Value(t *testing.T) {
	f := newFixture()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)

	// As-of 2026-09-01 values against the 2026-08-31 price of 110.
	mtm := f.mtm(priceAt("2026-08-31", 110))
	result, err := mtm.ComputeContract(context.Background(), contract.ID, mustDate("2026-09-01"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// 5 x (110 - 100) = 50
	if !result.MTMValue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("mtm=%s want=50", result.MTMValue)
	}
	if !result.PriceD1.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("d1=%s want=110", result.PriceD1)
	}
}

func TestMTMComputeOrder_Value(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypePurchase, 3, 95)

	mtm := f.mtm(priceAt("2026-08-31", 110))
	result, err := mtm.ComputeOrder(context.Background(), order.ID, mustDate("2026-09-01"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// 3 x (110 - 95) = 45
	if !result.MTMValue.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("mtm=%s want=45", result.MTMValue)
	}
}

func TestMTMComputeOrder_IneligibleOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mtm := f.mtm(priceAt("2026-08-31", 110))

	fixed, err := f.orders.Create(ctx, CreateOrderParams{
		OrderType:  models.OrderTypeSales,
		PriceType:  models.PriceTypeFixed,
		QuantityMT: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := mtm.ComputeOrder(ctx, fixed.ID, mustDate("2026-09-01")); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("fixed order err=%v want validation", err)
	}

	bare, err := f.orders.Create(ctx, CreateOrderParams{
		OrderType:  models.OrderTypeSales,
		PriceType:  models.PriceTypeVariable,
		QuantityMT: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := mtm.ComputeOrder(ctx, bare.ID, mustDate("2026-09-01")); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("bare variable order err=%v want validation", err)
	}
}

func TestMTMCompute_MissingPriceFailsDependency(t *testing.T) {
	f := newFixture()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)

	mtm := f.mtm(f.prices)
	_, err := mtm.ComputeContract(context.Background(), contract.ID, mustDate("2026-09-01"))
	if !apperr.IsKind(err, apperr.KindFailedDependency) {
		t.Fatalf("err=%v want failed dependency", err)
	}
}

func TestMTMCompute_AmbiguousPriceConflicts(t *testing.T) {
	f := newFixture()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)

	date := mustDate("2026-08-31")
	for _, p := range []int64{110, 111} {
		f.store.InsertCashSettlementPriceUnchecked(models.CashSettlementPrice{
			ID:             uuid.New(),
			Source:         "westmetall",
			Symbol:         testSymbol,
			SettlementDate: date,
			PriceUSD:       decimal.NewFromInt(p),
		})
	}

	mtm := f.mtm(f.prices)
	_, err := mtm.ComputeContract(context.Background(), contract.ID, mustDate("2026-09-01"))
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestMTMCreateSnapshot_IdempotentOrConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	asOf := mustDate("2026-09-01")

	mtm := f.mtm(priceAt("2026-08-31", 110))
	first, err := mtm.CreateSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, asOf, "corr-1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !first.MTMValue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("mtm=%s want=50", first.MTMValue)
	}

	// Identical replay returns the stored row.
	replay, err := mtm.CreateSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, asOf, "corr-2")
	if err != nil {
		t.Fatalf("replay err=%v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay id=%s want=%s", replay.ID, first.ID)
	}

	// A different price for the same key conflicts.
	diverged := f.mtm(priceAt("2026-08-31", 120))
	_, err = diverged.CreateSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, asOf, "corr-3")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestMTMCreateSnapshot_NonActiveContractConflicts(t *testing.T) {
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
		t.Fatalf("settle err=%v", err)
	}

	mtm := f.mtm(priceAt("2026-08-31", 110))
	_, err := mtm.CreateSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, mustDate("2026-09-01"), "corr")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestMTMGetSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	contract := f.mustContract(models.HedgeLegSideBuy, 5, 100)
	mtm := f.mtm(priceAt("2026-08-31", 110))

	created, err := mtm.CreateSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, mustDate("2026-09-01"), "corr-1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	got, err := mtm.GetSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, mustDate("2026-09-01"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id=%s want=%s", got.ID, created.ID)
	}

	_, err = mtm.GetSnapshot(ctx, models.MTMObjectTypeHedgeContract, contract.ID, mustDate("2026-09-02"))
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}
