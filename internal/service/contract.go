package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

type ContractService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateContractParams struct {
	Commodity              string              `json:"commodity"`
	QuantityMT             decimal.Decimal     `json:"quantity_mt"`
	FixedLegSide           models.HedgeLegSide `json:"fixed_leg_side"`
	CounterpartyID         *string             `json:"counterparty_id,omitempty"`
	FixedPriceValue        *decimal.Decimal    `json:"fixed_price_value,omitempty"`
	FixedPriceUnit         *string             `json:"fixed_price_unit,omitempty"`
	FloatPricingConvention *string             `json:"float_pricing_convention,omitempty"`
}

func (p CreateContractParams) validate() error {
	if p.Commodity == "" {
		return apperr.Validation("commodity is required")
	}
	if !p.QuantityMT.IsPositive() {
		return apperr.Validation("quantity_mt must be positive, got %s", p.QuantityMT)
	}
	switch p.FixedLegSide {
	case models.HedgeLegSideBuy, models.HedgeLegSideSell:
	default:
		return apperr.Validation("fixed_leg_side must be buy or sell, got %q", p.FixedLegSide)
	}
	return nil
}

// oppositeSide returns the variable leg side for a fixed leg side; the two
// legs of a contract always face each other.
func oppositeSide(side models.HedgeLegSide) models.HedgeLegSide {
	if side == models.HedgeLegSideBuy {
		return models.HedgeLegSideSell
	}
	return models.HedgeLegSideBuy
}

func (s *ContractService) Create(ctx context.Context, params CreateContractParams) (*models.HedgeContract, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	contract := &models.HedgeContract{
		Commodity:              params.Commodity,
		QuantityMT:             params.QuantityMT,
		CounterpartyID:         params.CounterpartyID,
		FixedPriceValue:        params.FixedPriceValue,
		FixedPriceUnit:         params.FixedPriceUnit,
		FloatPricingConvention: params.FloatPricingConvention,
		FixedLegSide:           params.FixedLegSide,
		VariableLegSide:        oppositeSide(params.FixedLegSide),
		Classification:         models.ClassificationForFixedSide(params.FixedLegSide),
		Status:                 models.HedgeContractStatusActive,
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreateContractTx(ctx, tx, contract)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("hedge contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("classification", string(contract.Classification)),
		zap.String("quantity_mt", contract.QuantityMT.String()))
	return contract, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.HedgeContract, error) {
	contract, err := s.Repo.GetContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, apperr.NotFound("hedge contract %s not found", id)
	}
	return contract, nil
}

func (s *ContractService) List(ctx context.Context) ([]models.HedgeContract, error) {
	return s.Repo.ListContracts(ctx)
}
