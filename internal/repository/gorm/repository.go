package gormrepository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hedgeback/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn picks the transaction handle when one is supplied.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func asNilOnNotFound[T any](item *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// --- Orders -----------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, item *models.Order) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.GetOrderByIDTx(ctx, nil, id)
}

func (s *Store) GetOrderByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var item models.Order
	err := s.conn(ctx, tx).First(&item, "id = ?", id).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.ListOrdersTx(ctx, nil)
}

func (s *Store) ListOrdersTx(ctx context.Context, tx *gorm.DB) ([]models.Order, error) {
	var items []models.Order
	err := s.conn(ctx, tx).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

// --- Hedge contracts --------------------------------------------------------

func (s *Store) CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContract) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetContractByID(ctx context.Context, id uuid.UUID) (*models.HedgeContract, error) {
	return s.GetContractByIDTx(ctx, nil, id)
}

func (s *Store) GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContract, error) {
	var item models.HedgeContract
	err := s.conn(ctx, tx).First(&item, "id = ?", id).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) ListContracts(ctx context.Context) ([]models.HedgeContract, error) {
	return s.ListContractsTx(ctx, nil)
}

func (s *Store) ListContractsTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeContract, error) {
	var items []models.HedgeContract
	err := s.conn(ctx, tx).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) UpdateContractStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.HedgeContractStatus) error {
	return s.conn(ctx, tx).
		Model(&models.HedgeContract{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// --- Linkages ---------------------------------------------------------------

func (s *Store) CreateLinkageTx(ctx context.Context, tx *gorm.DB, item *models.HedgeOrderLinkage) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListLinkages(ctx context.Context) ([]models.HedgeOrderLinkage, error) {
	return s.ListLinkagesTx(ctx, nil)
}

func (s *Store) ListLinkagesTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeOrderLinkage, error) {
	var items []models.HedgeOrderLinkage
	err := s.conn(ctx, tx).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) ListLinkagesByOrderIDTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.HedgeOrderLinkage, error) {
	var items []models.HedgeOrderLinkage
	err := s.conn(ctx, tx).Where("order_id = ?", orderID).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) ListLinkagesByContractIDTx(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) ([]models.HedgeOrderLinkage, error) {
	var items []models.HedgeOrderLinkage
	err := s.conn(ctx, tx).Where("contract_id = ?", contractID).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

// --- RFQs -------------------------------------------------------------------

func (s *Store) NextRFQSequenceTx(ctx context.Context, tx *gorm.DB) (int64, error) {
	seq := models.RFQSequence{}
	if err := s.conn(ctx, tx).Create(&seq).Error; err != nil {
		return 0, err
	}
	return seq.ID, nil
}

func (s *Store) CreateRFQTx(ctx context.Context, tx *gorm.DB, item *models.RFQ) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	return s.GetRFQByIDTx(ctx, nil, id)
}

func (s *Store) GetRFQByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.RFQ, error) {
	var item models.RFQ
	err := s.conn(ctx, tx).First(&item, "id = ?", id).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) ListRFQs(ctx context.Context) ([]models.RFQ, error) {
	var items []models.RFQ
	err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) UpdateRFQStateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, state models.RFQState) error {
	return s.conn(ctx, tx).
		Model(&models.RFQ{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (s *Store) ListSentSpreadRFQsReferencingTx(ctx context.Context, tx *gorm.DB, tradeRFQID uuid.UUID) ([]models.RFQ, error) {
	var items []models.RFQ
	err := s.conn(ctx, tx).
		Where("intent = ?", models.RFQIntentSpread).
		Where("state = ?", models.RFQStateSent).
		Where("buy_trade_id = ? OR sell_trade_id = ?", tradeRFQID, tradeRFQID).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) CreateRFQInvitationTx(ctx context.Context, tx *gorm.DB, item *models.RFQInvitation) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListInvitationsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQInvitation, error) {
	return s.ListInvitationsByRFQIDTx(ctx, nil, rfqID)
}

func (s *Store) ListInvitationsByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQInvitation, error) {
	var items []models.RFQInvitation
	err := s.conn(ctx, tx).Where("rfq_id = ?", rfqID).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) CreateRFQQuoteTx(ctx context.Context, tx *gorm.DB, item *models.RFQQuote) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListQuotesByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQQuote, error) {
	return s.ListQuotesByRFQIDTx(ctx, nil, rfqID)
}

func (s *Store) ListQuotesByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQQuote, error) {
	var items []models.RFQQuote
	err := s.conn(ctx, tx).Where("rfq_id = ?", rfqID).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) CreateRFQStateEventTx(ctx context.Context, tx *gorm.DB, item *models.RFQStateEvent) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListStateEventsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQStateEvent, error) {
	var items []models.RFQStateEvent
	err := s.db.WithContext(ctx).Where("rfq_id = ?", rfqID).Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

// --- Market data ------------------------------------------------------------

func (s *Store) CreateCashSettlementPrice(ctx context.Context, item *models.CashSettlementPrice) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) CountCashSettlementPrices(ctx context.Context, source, symbol string, settlementDate time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.CashSettlementPrice{}).
		Where("source = ? AND symbol = ? AND settlement_date = ?", source, symbol, settlementDate).
		Count(&count).Error
	return count, err
}

func (s *Store) ListCashSettlementPricesBySymbolDate(ctx context.Context, symbol string, settlementDate time.Time) ([]models.CashSettlementPrice, error) {
	var items []models.CashSettlementPrice
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND settlement_date = ?", symbol, settlementDate).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

// --- Valuation snapshots ----------------------------------------------------

func (s *Store) GetMTMSnapshot(ctx context.Context, objectType models.MTMObjectType, objectID uuid.UUID, asOfDate time.Time) (*models.MTMSnapshot, error) {
	var item models.MTMSnapshot
	err := s.db.WithContext(ctx).
		Where("object_type = ? AND object_id = ? AND as_of_date = ?", objectType, objectID, asOfDate).
		First(&item).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) CreateMTMSnapshot(ctx context.Context, item *models.MTMSnapshot) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetCashFlowBaselineSnapshot(ctx context.Context, asOfDate time.Time) (*models.CashFlowBaselineSnapshot, error) {
	var item models.CashFlowBaselineSnapshot
	err := s.db.WithContext(ctx).Where("as_of_date = ?", asOfDate).First(&item).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) CreateCashFlowBaselineSnapshot(ctx context.Context, item *models.CashFlowBaselineSnapshot) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPLSnapshot(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time) (*models.PLSnapshot, error) {
	var item models.PLSnapshot
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND period_start = ? AND period_end = ?", entityType, entityID, periodStart, periodEnd).
		First(&item).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) CreatePLSnapshot(ctx context.Context, item *models.PLSnapshot) error {
	return s.db.WithContext(ctx).Create(item).Error
}

// --- Settlement ledger ------------------------------------------------------

func (s *Store) GetSettlementEventTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContractSettlementEvent, error) {
	var item models.HedgeContractSettlementEvent
	err := s.conn(ctx, tx).First(&item, "id = ?", id).Error
	return asNilOnNotFound(&item, err)
}

func (s *Store) CreateSettlementEventTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContractSettlementEvent) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) CreateLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.CashFlowLedgerEntry) error {
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListLedgerEntriesBySourceEventTx(ctx context.Context, tx *gorm.DB, sourceEventType string, sourceEventID uuid.UUID) ([]models.CashFlowLedgerEntry, error) {
	var items []models.CashFlowLedgerEntry
	err := s.conn(ctx, tx).
		Where("source_event_type = ? AND source_event_id = ?", sourceEventType, sourceEventID).
		Order("leg_id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) ListLedgerEntriesByContract(ctx context.Context, contractID uuid.UUID, periodStart, periodEnd time.Time) ([]models.CashFlowLedgerEntry, error) {
	var items []models.CashFlowLedgerEntry
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Where("cashflow_date >= ? AND cashflow_date <= ?", periodStart, periodEnd).
		Order("cashflow_date asc, leg_id asc").
		Find(&items).Error
	return items, err
}

// --- Audit trail ------------------------------------------------------------

func (s *Store) CreateAuditEvent(ctx context.Context, item *models.AuditEvent) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAuditEventsAfter(ctx context.Context, afterTimestamp time.Time, afterID string, limit int) ([]models.AuditEvent, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditEvent{})
	if afterID != "" {
		query = query.Where("(timestamp_utc, id) > (?, ?)", afterTimestamp, afterID)
	}
	var items []models.AuditEvent
	err := query.Order("timestamp_utc asc, id asc").Limit(limit).Find(&items).Error
	return items, err
}
