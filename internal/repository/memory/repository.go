// Package memoryrepository is an in-memory Repository used by tests. It
// enforces the same unique constraints as the postgres schema, reporting
// violations as gorm.ErrDuplicatedKey so callers see identical behavior.
package memoryrepository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hedgeback/internal/models"
)

type state struct {
	orders           []models.Order
	contracts        []models.HedgeContract
	linkages         []models.HedgeOrderLinkage
	rfqs             []models.RFQ
	invitations      []models.RFQInvitation
	quotes           []models.RFQQuote
	stateEvents      []models.RFQStateEvent
	prices           []models.CashSettlementPrice
	mtmSnapshots     []models.MTMSnapshot
	cfSnapshots      []models.CashFlowBaselineSnapshot
	plSnapshots      []models.PLSnapshot
	settlementEvents []models.HedgeContractSettlementEvent
	ledgerEntries    []models.CashFlowLedgerEntry
	auditEvents      []models.AuditEvent
	seq              int64
}

func (s *state) clone() *state {
	c := &state{seq: s.seq}
	c.orders = append([]models.Order(nil), s.orders...)
	c.contracts = append([]models.HedgeContract(nil), s.contracts...)
	c.linkages = append([]models.HedgeOrderLinkage(nil), s.linkages...)
	c.rfqs = append([]models.RFQ(nil), s.rfqs...)
	c.invitations = append([]models.RFQInvitation(nil), s.invitations...)
	c.quotes = append([]models.RFQQuote(nil), s.quotes...)
	c.stateEvents = append([]models.RFQStateEvent(nil), s.stateEvents...)
	c.prices = append([]models.CashSettlementPrice(nil), s.prices...)
	c.mtmSnapshots = append([]models.MTMSnapshot(nil), s.mtmSnapshots...)
	c.cfSnapshots = append([]models.CashFlowBaselineSnapshot(nil), s.cfSnapshots...)
	c.plSnapshots = append([]models.PLSnapshot(nil), s.plSnapshots...)
	c.settlementEvents = append([]models.HedgeContractSettlementEvent(nil), s.settlementEvents...)
	c.ledgerEntries = append([]models.CashFlowLedgerEntry(nil), s.ledgerEntries...)
	c.auditEvents = append([]models.AuditEvent(nil), s.auditEvents...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state

	// clock lets tests control created_at stamps; defaults to wall clock.
	clock func() time.Time
}

func New() *Store {
	return &Store{st: &state{}, clock: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the timestamp source. Test helper.
func (s *Store) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = fn
}

func (s *Store) now() time.Time {
	return s.clock()
}

// InTx snapshots state before fn and restores it when fn fails, giving the
// same all-or-nothing behavior as a database transaction. Correct for the
// single-goroutine test usage this store exists for.
func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func stampID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// --- Orders -----------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, item *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.st.orders = append(s.st.orders, *item)
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.GetOrderByIDTx(ctx, nil, id)
}

func (s *Store) GetOrderByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.st.orders {
		if o.ID == id {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.ListOrdersTx(ctx, nil)
}

func (s *Store) ListOrdersTx(ctx context.Context, tx *gorm.DB) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Order(nil), s.st.orders...), nil
}

// --- Hedge contracts --------------------------------------------------------

func (s *Store) CreateContractTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	if item.Status == "" {
		item.Status = models.HedgeContractStatusActive
	}
	for _, c := range s.st.contracts {
		if c.ID == item.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.contracts = append(s.st.contracts, *item)
	return nil
}

func (s *Store) GetContractByID(ctx context.Context, id uuid.UUID) (*models.HedgeContract, error) {
	return s.GetContractByIDTx(ctx, nil, id)
}

func (s *Store) GetContractByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.st.contracts {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]models.HedgeContract, error) {
	return s.ListContractsTx(ctx, nil)
}

func (s *Store) ListContractsTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HedgeContract(nil), s.st.contracts...), nil
}

func (s *Store) UpdateContractStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.HedgeContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.contracts {
		if s.st.contracts[i].ID == id {
			s.st.contracts[i].Status = status
			return nil
		}
	}
	return nil
}

// --- Linkages ---------------------------------------------------------------

func (s *Store) CreateLinkageTx(ctx context.Context, tx *gorm.DB, item *models.HedgeOrderLinkage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.st.linkages = append(s.st.linkages, *item)
	return nil
}

func (s *Store) ListLinkages(ctx context.Context) ([]models.HedgeOrderLinkage, error) {
	return s.ListLinkagesTx(ctx, nil)
}

func (s *Store) ListLinkagesTx(ctx context.Context, tx *gorm.DB) ([]models.HedgeOrderLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HedgeOrderLinkage(nil), s.st.linkages...), nil
}

func (s *Store) ListLinkagesByOrderIDTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.HedgeOrderLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HedgeOrderLinkage
	for _, l := range s.st.linkages {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) ListLinkagesByContractIDTx(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) ([]models.HedgeOrderLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HedgeOrderLinkage
	for _, l := range s.st.linkages {
		if l.ContractID == contractID {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- RFQs -------------------------------------------------------------------

func (s *Store) NextRFQSequenceTx(ctx context.Context, tx *gorm.DB) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq++
	return s.st.seq, nil
}

func (s *Store) CreateRFQTx(ctx context.Context, tx *gorm.DB, item *models.RFQ) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, r := range s.st.rfqs {
		if r.RFQNumber == item.RFQNumber || r.ID == item.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.rfqs = append(s.st.rfqs, *item)
	return nil
}

func (s *Store) GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	return s.GetRFQByIDTx(ctx, nil, id)
}

func (s *Store) GetRFQByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.st.rfqs {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRFQs(ctx context.Context) ([]models.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RFQ(nil), s.st.rfqs...), nil
}

func (s *Store) UpdateRFQStateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, state models.RFQState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.rfqs {
		if s.st.rfqs[i].ID == id {
			s.st.rfqs[i].State = state
			return nil
		}
	}
	return nil
}

func (s *Store) ListSentSpreadRFQsReferencingTx(ctx context.Context, tx *gorm.DB, tradeRFQID uuid.UUID) ([]models.RFQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RFQ
	for _, r := range s.st.rfqs {
		if r.Intent != models.RFQIntentSpread || r.State != models.RFQStateSent {
			continue
		}
		if (r.BuyTradeID != nil && *r.BuyTradeID == tradeRFQID) ||
			(r.SellTradeID != nil && *r.SellTradeID == tradeRFQID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) CreateRFQInvitationTx(ctx context.Context, tx *gorm.DB, item *models.RFQInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, inv := range s.st.invitations {
		if inv.IdempotencyKey == item.IdempotencyKey {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.invitations = append(s.st.invitations, *item)
	return nil
}

func (s *Store) ListInvitationsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQInvitation, error) {
	return s.ListInvitationsByRFQIDTx(ctx, nil, rfqID)
}

func (s *Store) ListInvitationsByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RFQInvitation
	for _, inv := range s.st.invitations {
		if inv.RFQID == rfqID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *Store) CreateRFQQuoteTx(ctx context.Context, tx *gorm.DB, item *models.RFQQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.st.quotes = append(s.st.quotes, *item)
	return nil
}

func (s *Store) ListQuotesByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQQuote, error) {
	return s.ListQuotesByRFQIDTx(ctx, nil, rfqID)
}

func (s *Store) ListQuotesByRFQIDTx(ctx context.Context, tx *gorm.DB, rfqID uuid.UUID) ([]models.RFQQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RFQQuote
	for _, q := range s.st.quotes {
		if q.RFQID == rfqID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) CreateRFQStateEventTx(ctx context.Context, tx *gorm.DB, item *models.RFQStateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.st.stateEvents = append(s.st.stateEvents, *item)
	return nil
}

func (s *Store) ListStateEventsByRFQID(ctx context.Context, rfqID uuid.UUID) ([]models.RFQStateEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RFQStateEvent
	for _, ev := range s.st.stateEvents {
		if ev.RFQID == rfqID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- Market data ------------------------------------------------------------

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *Store) CreateCashSettlementPrice(ctx context.Context, item *models.CashSettlementPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, p := range s.st.prices {
		if p.Source == item.Source && p.Symbol == item.Symbol && sameDate(p.SettlementDate, item.SettlementDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.prices = append(s.st.prices, *item)
	return nil
}

func (s *Store) CountCashSettlementPrices(ctx context.Context, source, symbol string, settlementDate time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.st.prices {
		if p.Source == source && p.Symbol == symbol && sameDate(p.SettlementDate, settlementDate) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListCashSettlementPricesBySymbolDate(ctx context.Context, symbol string, settlementDate time.Time) ([]models.CashSettlementPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CashSettlementPrice
	for _, p := range s.st.prices {
		if p.Symbol == symbol && sameDate(p.SettlementDate, settlementDate) {
			out = append(out, p)
		}
	}
	return out, nil
}

// InsertCashSettlementPriceUnchecked bypasses the unique constraint so tests
// can provoke the ambiguous-price conflict a real database could only reach
// through divergent sources.
func (s *Store) InsertCashSettlementPriceUnchecked(item models.CashSettlementPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.st.prices = append(s.st.prices, item)
}

// --- Valuation snapshots ----------------------------------------------------

func (s *Store) GetMTMSnapshot(ctx context.Context, objectType models.MTMObjectType, objectID uuid.UUID, asOfDate time.Time) (*models.MTMSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.st.mtmSnapshots {
		if snap.ObjectType == objectType && snap.ObjectID == objectID && sameDate(snap.AsOfDate, asOfDate) {
			out := snap
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateMTMSnapshot(ctx context.Context, item *models.MTMSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, snap := range s.st.mtmSnapshots {
		if snap.ObjectType == item.ObjectType && snap.ObjectID == item.ObjectID && sameDate(snap.AsOfDate, item.AsOfDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.mtmSnapshots = append(s.st.mtmSnapshots, *item)
	return nil
}

func (s *Store) GetCashFlowBaselineSnapshot(ctx context.Context, asOfDate time.Time) (*models.CashFlowBaselineSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.st.cfSnapshots {
		if sameDate(snap.AsOfDate, asOfDate) {
			out := snap
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateCashFlowBaselineSnapshot(ctx context.Context, item *models.CashFlowBaselineSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, snap := range s.st.cfSnapshots {
		if sameDate(snap.AsOfDate, item.AsOfDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.cfSnapshots = append(s.st.cfSnapshots, *item)
	return nil
}

func (s *Store) GetPLSnapshot(ctx context.Context, entityType models.PLEntityType, entityID uuid.UUID, periodStart, periodEnd time.Time) (*models.PLSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.st.plSnapshots {
		if snap.EntityType == entityType && snap.EntityID == entityID &&
			sameDate(snap.PeriodStart, periodStart) && sameDate(snap.PeriodEnd, periodEnd) {
			out := snap
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CreatePLSnapshot(ctx context.Context, item *models.PLSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, snap := range s.st.plSnapshots {
		if snap.EntityType == item.EntityType && snap.EntityID == item.EntityID &&
			sameDate(snap.PeriodStart, item.PeriodStart) && sameDate(snap.PeriodEnd, item.PeriodEnd) {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.plSnapshots = append(s.st.plSnapshots, *item)
	return nil
}

// --- Settlement ledger ------------------------------------------------------

func (s *Store) GetSettlementEventTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.HedgeContractSettlementEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.st.settlementEvents {
		if ev.ID == id {
			out := ev
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateSettlementEventTx(ctx context.Context, tx *gorm.DB, item *models.HedgeContractSettlementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, ev := range s.st.settlementEvents {
		if ev.ID == item.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.settlementEvents = append(s.st.settlementEvents, *item)
	return nil
}

func (s *Store) CreateLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.CashFlowLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stampID(&item.ID)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, e := range s.st.ledgerEntries {
		if e.SourceEventType == item.SourceEventType && e.SourceEventID == item.SourceEventID &&
			e.LegID == item.LegID && sameDate(e.CashflowDate, item.CashflowDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.ledgerEntries = append(s.st.ledgerEntries, *item)
	return nil
}

func (s *Store) ListLedgerEntriesBySourceEventTx(ctx context.Context, tx *gorm.DB, sourceEventType string, sourceEventID uuid.UUID) ([]models.CashFlowLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CashFlowLedgerEntry
	for _, e := range s.st.ledgerEntries {
		if e.SourceEventType == sourceEventType && e.SourceEventID == sourceEventID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LegID < out[j].LegID })
	return out, nil
}

func (s *Store) ListLedgerEntriesByContract(ctx context.Context, contractID uuid.UUID, periodStart, periodEnd time.Time) ([]models.CashFlowLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CashFlowLedgerEntry
	for _, e := range s.st.ledgerEntries {
		if e.ContractID != contractID {
			continue
		}
		if e.CashflowDate.Before(periodStart) || e.CashflowDate.After(periodEnd) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CashflowDate.Equal(out[j].CashflowDate) {
			return out[i].CashflowDate.Before(out[j].CashflowDate)
		}
		return out[i].LegID < out[j].LegID
	})
	return out, nil
}

// --- Audit trail ------------------------------------------------------------

func (s *Store) CreateAuditEvent(ctx context.Context, item *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	for _, ev := range s.st.auditEvents {
		if ev.ID == item.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	s.st.auditEvents = append(s.st.auditEvents, *item)
	return nil
}

func (s *Store) ListAuditEventsAfter(ctx context.Context, afterTimestamp time.Time, afterID string, limit int) ([]models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]models.AuditEvent(nil), s.st.auditEvents...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TimestampUTC.Equal(sorted[j].TimestampUTC) {
			return sorted[i].TimestampUTC.Before(sorted[j].TimestampUTC)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	var out []models.AuditEvent
	for _, ev := range sorted {
		if afterID != "" {
			if ev.TimestampUTC.Before(afterTimestamp) {
				continue
			}
			if ev.TimestampUTC.Equal(afterTimestamp) && ev.ID.String() <= afterID {
				continue
			}
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
