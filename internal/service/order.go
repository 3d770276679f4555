package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

type OrderService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateOrderParams struct {
	OrderType         models.OrderType          `json:"order_type"`
	PriceType         models.PriceType          `json:"price_type"`
	QuantityMT        decimal.Decimal           `json:"quantity_mt"`
	PricingConvention *models.PricingConvention `json:"pricing_convention,omitempty"`
	AvgEntryPrice     *decimal.Decimal          `json:"avg_entry_price,omitempty"`
}

func (p CreateOrderParams) validate() error {
	switch p.OrderType {
	case models.OrderTypeSales, models.OrderTypePurchase:
	default:
		return apperr.Validation("order_type must be sales or purchase, got %q", p.OrderType)
	}
	switch p.PriceType {
	case models.PriceTypeFixed, models.PriceTypeVariable:
	default:
		return apperr.Validation("price_type must be fixed or variable, got %q", p.PriceType)
	}
	if !p.QuantityMT.IsPositive() {
		return apperr.Validation("quantity_mt must be positive, got %s", p.QuantityMT)
	}
	if p.PricingConvention != nil && !p.PricingConvention.MTMEligible() {
		return apperr.Validation("unknown pricing_convention %q", *p.PricingConvention)
	}
	if p.PriceType == models.PriceTypeVariable {
		// Convention and entry price describe the same float leg: one without
		// the other is an inconsistent order.
		if (p.PricingConvention == nil) != (p.AvgEntryPrice == nil) {
			return apperr.Validation("variable orders need pricing_convention and avg_entry_price together or neither")
		}
	} else if p.PricingConvention != nil || p.AvgEntryPrice != nil {
		return apperr.Validation("fixed orders carry no pricing_convention or avg_entry_price")
	}
	return nil
}

func (s *OrderService) Create(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	order := &models.Order{
		OrderType:         params.OrderType,
		PriceType:         params.PriceType,
		QuantityMT:        params.QuantityMT,
		PricingConvention: params.PricingConvention,
		AvgEntryPrice:     params.AvgEntryPrice,
	}
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	s.Logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_type", string(order.OrderType)),
		zap.String("quantity_mt", order.QuantityMT.String()))
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", id)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx)
}
