package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hedgeback/internal/models"
)

// Repository is the persistence surface for the hedge back office. Methods
// with a Tx suffix run against the supplied transaction handle so multi-step
// operations (RFQ creation, award, settlement) commit atomically; the
// non-Tx variants are single reads/writes on the pool.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Orders
	CreateOrder(ctx context.Context, item *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrdersTx(ctx context.Context, tx *gorm.DB) ([]models.Order, error)

	// Hedge contracts
	CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContract) error
	GetContractByID(ctx context.Context, id uuid.UUID) (*models.HedgeContract, error)
	GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContract, error)
	ListContracts(ctx context.Context) ([]models.HedgeContract, error)
	ListContractsTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeContract, error)
	UpdateContractStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.HedgeContractStatus) error

	// Linkages
	CreateLinkageTx(ctx context.Context, tx *gorm.DB, item *models.HedgeOrderLinkage) error
	ListLinkages(ctx context.Context) ([]models.HedgeOrderLinkage, error)
	ListLinkagesTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeOrderLinkage, error)
	ListLinkagesByOrderIDTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.HedgeOrderLinkage, error)
	ListLinkagesByContractIDTx(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) ([]models.HedgeOrderLinkage, error)

	// RFQs
	NextRFQSequenceTx(ctx context.Context, tx *gorm.DB) (int64, error)
	CreateRFQTx(ctx context.Context, tx *gorm.DB, item *models.RFQ) error
	GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error)
	GetRFQByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.RFQ, error)
	ListRFQs(ctx context.Context) ([]models.RFQ, error)
	UpdateRFQStateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, state models.RFQState) error
	ListSentSpreadRFQsReferencingTx(ctx context.Context, tx *gorm.DB, tradeRFQID uuid.UUID) ([]models.RFQ, error)

	CreateRFQInvitationTx(ctx context.Context, tx *gorm.DB, item *models.RFQInvitation) error
	ListInvitationsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQInvitation, error)
	ListInvitationsByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQInvitation, error)

	CreateRFQQuoteTx(ctx context.Context, tx *gorm.DB, item *models.RFQQuote) error
	ListQuotesByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQQuote, error)
	ListQuotesByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQQuote, error)

	CreateRFQStateEventTx(ctx context.Context, tx *gorm.DB, item *models.RFQStateEvent) error
	ListStateEventsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQStateEvent, error)

	// Market data
	CreateCashSettlementPrice(ctx context.Context, item *models.CashSettlementPrice) error
	CountCashSettlementPrices(ctx context.Context, source, symbol string, settlementDate time.Time) (int64, error)
	ListCashSettlementPricesBySymbolDate(ctx context.Context, symbol string, settlementDate time.Time) ([]models.CashSettlementPrice, error)

	// Valuation snapshots
	GetMTMSnapshot(ctx context.Context, objectType models.MTMObjectType, objectID uuid.UUID, asOfDate time.Time) (*models.MTMSnapshot, error)
	CreateMTMSnapshot(ctx context.Context, item *models.MTMSnapshot) error
	GetCashFlowBaselineSnapshot(ctx context.Context, asOfDate time.Time) (*models.CashFlowBaselineSnapshot, error)
	CreateCashFlowBaselineSnapshot(ctx context.Context, item *models.CashFlowBaselineSnapshot) error
	GetPLSnapshot(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time) (*models.PLSnapshot, error)
	CreatePLSnapshot(ctx context.Context, item *models.PLSnapshot) error

	// Settlement ledger
	GetSettlementEventTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContractSettlementEvent, error)
	CreateSettlementEventTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContractSettlementEvent) error
	CreateLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.CashFlowLedgerEntry) error
	ListLedgerEntriesBySourceEventTx(ctx context.Context, tx *gorm.DB, sourceEventType string, sourceEventID uuid.UUID) ([]models.CashFlowLedgerEntry, error)
	ListLedgerEntriesByContract(ctx context.Context, contractID uuid.UUID, periodStart, periodEnd time.Time) ([]models.CashFlowLedgerEntry, error)

	// Audit trail
	CreateAuditEvent(ctx context.Context, item *models.AuditEvent) error
	ListAuditEventsAfter(ctx context.Context, afterTimestamp time.Time, afterID string, limit int) ([]models.AuditEvent, error)
}
