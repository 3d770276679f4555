package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hedgeback/internal/apperr"
	"hedgeback/internal/exposure"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

type LinkageService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateLinkageParams struct {
	OrderID    uuid.UUID       `json:"order_id"`
	ContractID uuid.UUID       `json:"contract_id"`
	QuantityMT decimal.Decimal `json:"quantity_mt"`
}

// Create allocates part of a hedge contract against an order. Capacity on
// both sides is validated inside one transaction so two racing linkages
// cannot jointly overrun either quantity under the store's isolation.
func (s *LinkageService) Create(ctx context.Context, params CreateLinkageParams) (*models.HedgeOrderLinkage, error) {
	if !params.QuantityMT.IsPositive() {
		return nil, apperr.Validation("quantity_mt must be positive, got %s", params.QuantityMT)
	}

	linkage := &models.HedgeOrderLinkage{
		OrderID:    params.OrderID,
		ContractID: params.ContractID,
		QuantityMT: params.QuantityMT,
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return createLinkageTx(ctx, s.Repo, tx, linkage)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("linkage created",
		zap.String("linkage_id", linkage.ID.String()),
		zap.String("order_id", linkage.OrderID.String()),
		zap.String("contract_id", linkage.ContractID.String()),
		zap.String("quantity_mt", linkage.QuantityMT.String()))
	return linkage, nil
}

// createLinkageTx validates and writes one linkage inside an existing
// transaction. The RFQ award path reuses it so awarded linkages obey the
// same capacity rules as manual ones.
func createLinkageTx(ctx context.Context, repo repository.Repository, tx *gorm.DB, linkage *models.HedgeOrderLinkage) error {
	order, err := repo.GetOrderByIDTx(ctx, tx, linkage.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperr.NotFound("order %s not found", linkage.OrderID)
	}
	if order.PriceType != models.PriceTypeVariable {
		return apperr.Validation("order %s is fixed-price and cannot be hedged", order.ID)
	}
	contract, err := repo.GetContractByIDTx(ctx, tx, linkage.ContractID)
	if err != nil {
		return err
	}
	if contract == nil {
		return apperr.NotFound("hedge contract %s not found", linkage.ContractID)
	}
	if contract.Status != models.HedgeContractStatusActive {
		return apperr.Conflict("hedge contract %s is %s, only active contracts can be linked", contract.ID, contract.Status)
	}

	orderLinkages, err := repo.ListLinkagesByOrderIDTx(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	orderResidual, err := exposure.OrderResidual(*order, orderLinkages)
	if err != nil {
		return err
	}
	if linkage.QuantityMT.GreaterThan(orderResidual) {
		return apperr.Conflict("linkage quantity %s exceeds order %s residual %s",
			linkage.QuantityMT, order.ID, orderResidual)
	}

	contractLinkages, err := repo.ListLinkagesByContractIDTx(ctx, tx, contract.ID)
	if err != nil {
		return err
	}
	contractResidual, err := exposure.ContractResidual(*contract, contractLinkages)
	if err != nil {
		return err
	}
	if linkage.QuantityMT.GreaterThan(contractResidual) {
		return apperr.Conflict("linkage quantity %s exceeds hedge contract %s residual %s",
			linkage.QuantityMT, contract.ID, contractResidual)
	}

	return repo.CreateLinkageTx(ctx, tx, linkage)
}

func (s *LinkageService) List(ctx context.Context) ([]models.HedgeOrderLinkage, error) {
	return s.Repo.ListLinkages(ctx)
}
