package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

// PLService computes realized P&L from the cashflow ledger and unrealized
// MTM for still-active contracts.
type PLService struct {
	Repo   repository.Repository
	MTM    *MTMService
	Logger *zap.Logger
}

type PLResult struct {
	EntityType    models.PLEntityType `json:"entity_type"`
	EntityID      uuid.UUID           `json:"entity_id"`
	PeriodStart   time.Time           `json:"period_start"`
	PeriodEnd     time.Time           `json:"period_end"`
	RealizedPL    decimal.Decimal     `json:"realized_pl"`
	UnrealizedMTM decimal.Decimal     `json:"unrealized_mtm"`
}

// realizedFromLedger nets ledger entries: IN adds, OUT subtracts. Any other
// direction value means corrupted data and fails hard.
func realizedFromLedger(entries []models.CashFlowLedgerEntry) (decimal.Decimal, error) {
	var total decimal.Decimal
	for _, e := range entries {
		switch e.Direction {
		case models.CashFlowDirectionIn:
			total = total.Add(e.Amount)
		case models.CashFlowDirectionOut:
			total = total.Sub(e.Amount)
		default:
			return decimal.Decimal{}, apperr.Validation("ledger entry %s has unknown direction %q", e.ID, e.Direction)
		}
	}
	return total, nil
}

// Compute derives P&L for one entity and period. Order-level P&L has no
// ledger attribution yet and fails hard rather than reporting zero.
func (s *PLService) Compute(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time) (*PLResult, error) {
	if periodEnd.Before(periodStart) {
		return nil, apperr.Validation("period end precedes start")
	}
	switch entityType {
	case models.PLEntityTypeOrder:
		return nil, apperr.FailedDependency("P&L for orders is not implemented: ledger entries carry no order attribution")
	case models.PLEntityTypeHedgeContract:
	default:
		return nil, apperr.Validation("unknown P&L entity type %q", entityType)
	}

	contract, err := s.Repo.GetContractByID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, apperr.NotFound("hedge contract %s not found", entityID)
	}

	entries, err := s.Repo.ListLedgerEntriesByContract(ctx, entityID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	realized, err := realizedFromLedger(entries)
	if err != nil {
		return nil, err
	}

	unrealized := decimal.Zero
	if contract.Status == models.HedgeContractStatusActive {
		mtm, err := s.MTM.ComputeContract(ctx, entityID, periodEnd)
		if err != nil {
			return nil, err
		}
		unrealized = mtm.MTMValue
	}

	return &PLResult{
		EntityType:    entityType,
		EntityID:      entityID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		RealizedPL:    realized,
		UnrealizedMTM: unrealized,
	}, nil
}

// CreateSnapshot freezes a P&L computation under its natural key with the
// same idempotent-or-conflict replay semantics as MTM snapshots.
func (s *PLService) CreateSnapshot(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time, correlationID string) (*models.PLSnapshot, error) {
	result, err := s.Compute(ctx, entityType, entityID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	matches := func(existing *models.PLSnapshot) bool {
		return existing.RealizedPL.Equal(result.RealizedPL) &&
			existing.UnrealizedMTM.Equal(result.UnrealizedMTM)
	}

	existing, err := s.Repo.GetPLSnapshot(ctx, entityType, entityID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if matches(existing) {
			return existing, nil
		}
		return nil, apperr.Conflict("P&L snapshot for %s %s exists with different values", entityType, entityID)
	}

	snap := &models.PLSnapshot{
		EntityType:    entityType,
		EntityID:      entityID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		RealizedPL:    result.RealizedPL,
		UnrealizedMTM: result.UnrealizedMTM,
		CorrelationID: correlationID,
	}
	if err := s.Repo.CreatePLSnapshot(ctx, snap); err != nil {
		stored, getErr := s.Repo.GetPLSnapshot(ctx, entityType, entityID, periodStart, periodEnd)
		if getErr == nil && stored != nil && matches(stored) {
			return stored, nil
		}
		return nil, mapDuplicate(err, "P&L snapshot for %s %s exists with different values", entityType, entityID)
	}
	s.Logger.Info("pl snapshot created",
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID.String()),
		zap.String("realized_pl", result.RealizedPL.String()),
		zap.String("unrealized_mtm", result.UnrealizedMTM.String()))
	return snap, nil
}

// GetSnapshot reads a stored snapshot by its natural key.
func (s *PLService) GetSnapshot(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time) (*models.PLSnapshot, error) {
	snap, err := s.Repo.GetPLSnapshot(ctx, entityType, entityID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperr.NotFound("no P&L snapshot for %s %s over %s..%s", entityType, entityID,
			periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))
	}
	return snap, nil
}
