package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
)

func TestOrderCreate_VariableWithConventionAndEntry(t *testing.T) {
	f := newFixture()
	order := f.mustVariableOrder(models.OrderTypeSales, 10, 100)
	if order.ID == uuid.Nil {
		t.Fatalf("order id not assigned")
	}
	got, err := f.orders.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.PriceType != models.PriceTypeVariable || got.PricingConvention == nil {
		t.Fatalf("order not stored as variable with convention")
	}
}

func TestOrderCreate_Validation(t *testing.T) {
	f := newFixture()
	conv := models.PricingConventionAVG
	entry := decimal.NewFromInt(100)

	cases := []struct {
		name   string
		params CreateOrderParams
	}{
		{"bad order type", CreateOrderParams{OrderType: "swap", PriceType: models.PriceTypeFixed, QuantityMT: decimal.NewFromInt(1)}},
		{"bad price type", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: "floating", QuantityMT: decimal.NewFromInt(1)}},
		{"zero quantity", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: models.PriceTypeFixed, QuantityMT: decimal.Zero}},
		{"negative quantity", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: models.PriceTypeFixed, QuantityMT: decimal.NewFromInt(-5)}},
		{"variable with convention only", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: models.PriceTypeVariable, QuantityMT: decimal.NewFromInt(1), PricingConvention: &conv}},
		{"variable with entry only", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: models.PriceTypeVariable, QuantityMT: decimal.NewFromInt(1), AvgEntryPrice: &entry}},
		{"fixed with convention", CreateOrderParams{OrderType: models.OrderTypeSales, PriceType: models.PriceTypeFixed, QuantityMT: decimal.NewFromInt(1), PricingConvention: &conv, AvgEntryPrice: &entry}},
	}
	for _, tc := range cases {
		_, err := f.orders.Create(context.Background(), tc.params)
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("%s: err=%v want validation", tc.name, err)
		}
	}
}

func TestOrderCreate_VariableWithoutConventionAllowed(t *testing.T) {
	f := newFixture()
	order, err := f.orders.Create(context.Background(), CreateOrderParams{
		OrderType:  models.OrderTypePurchase,
		PriceType:  models.PriceTypeVariable,
		QuantityMT: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if order.PricingConvention != nil || order.AvgEntryPrice != nil {
		t.Fatalf("bare variable order should carry neither convention nor entry price")
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.orders.Get(context.Background(), uuid.New())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}
