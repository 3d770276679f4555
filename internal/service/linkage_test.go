package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

func TestContractCreate_DerivesLegsAndClassification(t *testing.T) {
	f := newFixture()
	long := f.mustContract(models.HedgeLegSideBuy, 10, 100)
	if long.Classification != models.HedgeClassificationLong {
		t.Fatalf("classification=%s want=long", long.Classification)
	}
	if long.VariableLegSide != models.HedgeLegSideSell {
		t.Fatalf("variable side=%s want=sell", long.VariableLegSide)
	}
	if long.Status != models.HedgeContractStatusActive {
		t.Fatalf("status=%s want=active", long.Status)
	}

	short := f.mustContract(models.HedgeLegSideSell, 10, 100)
	if short.Classification != models.HedgeClassificationShort {
		t.Fatalf("classification=%s want=short", short.Classification)
	}
}

func TestLinkageCreate_WithinResiduals(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypeSales, 10, 100)
	contract := f.mustContract(models.HedgeLegSideSell, 8, 100)

	linkage, err := f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(6),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if linkage.ID == uuid.Nil {
		t.Fatalf("linkage id not assigned")
	}

	// A second linkage may use the remaining 2 MT of the contract.
	if _, err := f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(2),
	}); err != nil {
		t.Fatalf("second linkage err=%v", err)
	}

	// Contract is now exhausted.
	_, err = f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestLinkageCreate_ExceedsOrderResidual(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypeSales, 5, 100)
	contract := f.mustContract(models.HedgeLegSideSell, 50, 100)

	_, err := f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(6),
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestLinkageCreate_RejectsFixedOrder(t *testing.T) {
	f := newFixture()
	order, err := f.orders.Create(context.Background(), CreateOrderParams{
		OrderType:  models.OrderTypeSales,
		PriceType:  models.PriceTypeFixed,
		QuantityMT: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	contract := f.mustContract(models.HedgeLegSideSell, 10, 100)

	_, err = f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestLinkageCreate_RejectsNonActiveContract(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypeSales, 10, 100)
	contract := f.mustContract(models.HedgeLegSideSell, 10, 100)

	// Settle the contract through the cashflow path so status moves off active.
	cf := f.cashflow(priceAt("2026-08-31", 110))
	_, err := cf.ApplySettlement(context.Background(), ApplySettlementParams{
		SourceEventID:  uuid.New(),
		ContractID:     contract.ID,
		SettlementDate: mustDate("2026-08-15"),
		SettledPrice:   decimal.NewFromInt(105),
		Legs:           settlementLegs(1050, 1000),
	})
	if err != nil {
		t.Fatalf("settle err=%v", err)
	}

	_, err = f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: contract.ID,
		QuantityMT: decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestLinkageCreate_UnknownReferences(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypeSales, 10, 100)

	_, err := f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    uuid.New(),
		ContractID: uuid.New(),
		QuantityMT: decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}

	_, err = f.linkages.Create(context.Background(), CreateLinkageParams{
		OrderID:    order.ID,
		ContractID: uuid.New(),
		QuantityMT: decimal.NewFromInt(1),
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}
