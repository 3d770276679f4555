package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hedgeback/internal/apperr"
	"hedgeback/internal/exposure"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
	"hedgeback/internal/rfq"
)

const (
	triggerFirstEligibleQuote = "FIRST_ELIGIBLE_QUOTE_PERSISTED"
	reasonUserRejected        = "USER_REJECTED"
)

type RFQService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// mapDuplicate converts the store's unique-constraint sentinel into the
// conflict kind callers expect.
func mapDuplicate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(format, args...)
	}
	return err
}

type InvitationRecipient struct {
	RecipientID   string                      `json:"recipient_id"`
	RecipientName string                      `json:"recipient_name"`
	Channel       models.RFQInvitationChannel `json:"channel"`
}

type CreateRFQParams struct {
	Intent              models.RFQIntent      `json:"intent"`
	Commodity           string                `json:"commodity"`
	QuantityMT          decimal.Decimal       `json:"quantity_mt"`
	Direction           models.RFQDirection   `json:"direction"`
	DeliveryWindowStart time.Time             `json:"delivery_window_start"`
	DeliveryWindowEnd   time.Time             `json:"delivery_window_end"`
	OrderID             *uuid.UUID            `json:"order_id,omitempty"`
	BuyTradeID          *uuid.UUID            `json:"buy_trade_id,omitempty"`
	SellTradeID         *uuid.UUID            `json:"sell_trade_id,omitempty"`
	Recipients          []InvitationRecipient `json:"recipients,omitempty"`
}

func (p CreateRFQParams) validate() error {
	switch p.Intent {
	case models.RFQIntentCommercialHedge, models.RFQIntentGlobalPosition, models.RFQIntentSpread:
	default:
		return apperr.Validation("unknown intent %q", p.Intent)
	}
	switch p.Direction {
	case models.RFQDirectionBuy, models.RFQDirectionSell:
	default:
		return apperr.Validation("direction must be BUY or SELL, got %q", p.Direction)
	}
	if p.Commodity == "" {
		return apperr.Validation("commodity is required")
	}
	if !p.QuantityMT.IsPositive() {
		return apperr.Validation("quantity_mt must be positive, got %s", p.QuantityMT)
	}
	if p.DeliveryWindowEnd.Before(p.DeliveryWindowStart) {
		return apperr.Validation("delivery window end precedes start")
	}
	switch p.Intent {
	case models.RFQIntentCommercialHedge:
		if p.OrderID == nil {
			return apperr.Validation("COMMERCIAL_HEDGE requires order_id")
		}
		if p.BuyTradeID != nil || p.SellTradeID != nil {
			return apperr.Validation("trade references are only valid for SPREAD")
		}
	case models.RFQIntentGlobalPosition:
		if p.OrderID != nil {
			return apperr.Validation("GLOBAL_POSITION takes no order_id")
		}
		if p.BuyTradeID != nil || p.SellTradeID != nil {
			return apperr.Validation("trade references are only valid for SPREAD")
		}
	case models.RFQIntentSpread:
		if p.OrderID != nil {
			return apperr.Validation("SPREAD takes no order_id")
		}
		if p.BuyTradeID == nil || p.SellTradeID == nil {
			return apperr.Validation("SPREAD requires buy_trade_id and sell_trade_id")
		}
		if *p.BuyTradeID == *p.SellTradeID {
			return apperr.Validation("buy_trade_id and sell_trade_id must differ")
		}
	}
	return nil
}

// Create allocates an RFQ number, freezes the commercial exposure snapshot,
// queues recipient invitations and commits all of it atomically. Creating an
// RFQ never consumes exposure; exposure stays a query-time derivation.
func (s *RFQService) Create(ctx context.Context, params CreateRFQParams) (*models.RFQ, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var created *models.RFQ
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		orders, err := s.Repo.ListOrdersTx(ctx, tx)
		if err != nil {
			return err
		}
		linkages, err := s.Repo.ListLinkagesTx(ctx, tx)
		if err != nil {
			return err
		}
		commercial, err := exposure.Commercial(orders, linkages)
		if err != nil {
			return err
		}

		if params.Intent == models.RFQIntentCommercialHedge {
			if err := s.validateCommercialHedgeTx(ctx, tx, params, commercial); err != nil {
				return err
			}
		}
		if params.Intent == models.RFQIntentSpread {
			if err := s.validateSpreadLegsTx(ctx, tx, params); err != nil {
				return err
			}
		}

		seq, err := s.Repo.NextRFQSequenceTx(ctx, tx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		item := &models.RFQ{
			RFQNumber:           fmt.Sprintf("RFQ-%d-%06d", now.Year(), seq),
			Intent:              params.Intent,
			Commodity:           params.Commodity,
			QuantityMT:          params.QuantityMT,
			Direction:           params.Direction,
			DeliveryWindowStart: params.DeliveryWindowStart,
			DeliveryWindowEnd:   params.DeliveryWindowEnd,
			OrderID:             params.OrderID,
			BuyTradeID:          params.BuyTradeID,
			SellTradeID:         params.SellTradeID,

			CommercialActiveMT:           commercial.ActiveMT,
			CommercialPassiveMT:          commercial.PassiveMT,
			CommercialNetMT:              commercial.NetMT,
			// Active-side reduction only: pre-reduction active minus
			// residual active.
			CommercialReductionAppliedMT: commercial.PreReductionActiveMT.Sub(commercial.ActiveMT),
			ExposureSnapshotTimestamp:    commercial.CalculationTimestamp,

			State: models.RFQStateCreated,
		}
		if err := s.Repo.CreateRFQTx(ctx, tx, item); err != nil {
			return mapDuplicate(err, "RFQ number %s already exists", item.RFQNumber)
		}

		anyQueued := false
		for _, rcpt := range params.Recipients {
			inv := &models.RFQInvitation{
				RFQID:          item.ID,
				RFQNumber:      item.RFQNumber,
				RecipientID:    rcpt.RecipientID,
				RecipientName:  rcpt.RecipientName,
				Channel:        rcpt.Channel,
				MessageBody:    fmt.Sprintf("RFQ#%s: please submit your FIXED price quote.", item.RFQNumber),
				SendStatus:     models.RFQInvitationStatusQueued,
				SentAt:         now,
				IdempotencyKey: fmt.Sprintf("invite-%s-%s", item.RFQNumber, rcpt.RecipientID),
			}
			if err := s.Repo.CreateRFQInvitationTx(ctx, tx, inv); err != nil {
				return mapDuplicate(err, "invitation for recipient %s already queued", rcpt.RecipientID)
			}
			anyQueued = true
		}

		if anyQueued {
			if err := s.transitionTx(ctx, tx, item, models.RFQStateSent, nil); err != nil {
				return err
			}
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("rfq created",
		zap.String("rfq_id", created.ID.String()),
		zap.String("rfq_number", created.RFQNumber),
		zap.String("intent", string(created.Intent)),
		zap.String("state", string(created.State)))
	return created, nil
}

func (s *RFQService) validateCommercialHedgeTx(ctx context.Context, tx *gorm.DB, params CreateRFQParams, commercial exposure.CommercialResult) error {
	order, err := s.Repo.GetOrderByIDTx(ctx, tx, *params.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperr.NotFound("order %s not found", *params.OrderID)
	}
	if order.PriceType != models.PriceTypeVariable {
		return apperr.Validation("order %s is fixed-price, only variable orders can be hedged", order.ID)
	}

	var wantDirection models.RFQDirection
	var sideResidual decimal.Decimal
	if order.OrderType == models.OrderTypeSales {
		wantDirection = models.RFQDirectionSell
		sideResidual = commercial.ActiveMT
	} else {
		wantDirection = models.RFQDirectionBuy
		sideResidual = commercial.PassiveMT
	}
	if params.Direction != wantDirection {
		return apperr.Validation("direction %s does not match %s order %s (expected %s)",
			params.Direction, order.OrderType, order.ID, wantDirection)
	}
	if params.QuantityMT.GreaterThan(sideResidual) {
		return apperr.Conflict("requested quantity %s exceeds residual commercial exposure %s",
			params.QuantityMT, sideResidual)
	}
	return nil
}

func (s *RFQService) validateSpreadLegsTx(ctx context.Context, tx *gorm.DB, params CreateRFQParams) error {
	for _, ref := range []struct {
		label string
		id    uuid.UUID
	}{
		{"buy_trade_id", *params.BuyTradeID},
		{"sell_trade_id", *params.SellTradeID},
	} {
		leg, err := s.Repo.GetRFQByIDTx(ctx, tx, ref.id)
		if err != nil {
			return err
		}
		if leg == nil {
			return apperr.NotFound("%s %s not found", ref.label, ref.id)
		}
		if leg.Intent == models.RFQIntentSpread {
			return apperr.Validation("%s %s is itself a SPREAD RFQ", ref.label, ref.id)
		}
	}
	return nil
}

// transitionTx moves an RFQ to the next state and appends the state event.
// The event pointer, when supplied, carries trigger metadata; from/to and
// timestamps are filled here.
func (s *RFQService) transitionTx(ctx context.Context, tx *gorm.DB, item *models.RFQ, to models.RFQState, event *models.RFQStateEvent) error {
	if err := s.Repo.UpdateRFQStateTx(ctx, tx, item.ID, to); err != nil {
		return err
	}
	if event == nil {
		event = &models.RFQStateEvent{}
	}
	now := time.Now().UTC()
	event.RFQID = item.ID
	event.FromState = item.State
	event.ToState = to
	if event.EventTimestamp == nil {
		event.EventTimestamp = &now
	}
	if err := s.Repo.CreateRFQStateEventTx(ctx, tx, event); err != nil {
		return err
	}
	item.State = to
	return nil
}

func (s *RFQService) Get(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	item, err := s.Repo.GetRFQByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("RFQ %s not found", id)
	}
	return item, nil
}

func (s *RFQService) List(ctx context.Context) ([]models.RFQ, error) {
	return s.Repo.ListRFQs(ctx)
}

func (s *RFQService) ListStateEvents(ctx context.Context, id uuid.UUID) ([]models.RFQStateEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListStateEventsByRFQID(ctx, id)
}

func (s *RFQService) ListInvitations(ctx context.Context, id uuid.UUID) ([]models.RFQInvitation, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListInvitationsByRFQID(ctx, id)
}

func (s *RFQService) ListQuotes(ctx context.Context, id uuid.UUID) ([]models.RFQQuote, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListQuotesByRFQID(ctx, id)
}

type SubmitQuoteParams struct {
	CounterpartyID         string          `json:"counterparty_id"`
	FixedPriceValue        decimal.Decimal `json:"fixed_price_value"`
	FixedPriceUnit         string          `json:"fixed_price_unit"`
	FloatPricingConvention string          `json:"float_pricing_convention"`
	ReceivedAt             *time.Time      `json:"received_at,omitempty"`
}

// SubmitQuote persists a counterparty quote and drives the SENT→QUOTED
// transition, including the cascade onto SENT SPREAD RFQs whose two legs
// now share a quoting counterparty.
func (s *RFQService) SubmitQuote(ctx context.Context, rfqID uuid.UUID, params SubmitQuoteParams) (*models.RFQQuote, error) {
	if params.CounterpartyID == "" {
		return nil, apperr.Validation("counterparty_id is required")
	}
	if params.FixedPriceUnit == "" {
		return nil, apperr.Validation("fixed_price_unit is required")
	}

	var quote *models.RFQQuote
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := s.Repo.GetRFQByIDTx(ctx, tx, rfqID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("RFQ %s not found", rfqID)
		}
		if item.Intent == models.RFQIntentSpread {
			return apperr.Conflict("quotes attach to trade RFQs, not SPREAD RFQ %s", item.ID)
		}
		if item.State != models.RFQStateSent && item.State != models.RFQStateQuoted {
			return apperr.Conflict("RFQ %s is %s, quotes are accepted in SENT or QUOTED only", item.ID, item.State)
		}

		receivedAt := time.Now().UTC()
		if params.ReceivedAt != nil {
			receivedAt = params.ReceivedAt.UTC()
		}
		q := &models.RFQQuote{
			RFQID:                  item.ID,
			CounterpartyID:         params.CounterpartyID,
			FixedPriceValue:        params.FixedPriceValue,
			FixedPriceUnit:         params.FixedPriceUnit,
			FloatPricingConvention: params.FloatPricingConvention,
			ReceivedAt:             receivedAt,
		}
		if err := s.Repo.CreateRFQQuoteTx(ctx, tx, q); err != nil {
			return err
		}

		if item.State == models.RFQStateSent {
			trigger := triggerFirstEligibleQuote
			event := &models.RFQStateEvent{
				Trigger:                  &trigger,
				TriggeringQuoteID:        &q.ID,
				TriggeringCounterpartyID: &q.CounterpartyID,
			}
			if err := s.transitionTx(ctx, tx, item, models.RFQStateQuoted, event); err != nil {
				return err
			}
		}

		if err := s.cascadeSpreadQuotedTx(ctx, tx, item.ID, q); err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("quote submitted",
		zap.String("rfq_id", rfqID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("counterparty_id", quote.CounterpartyID))
	return quote, nil
}

// cascadeSpreadQuotedTx re-evaluates every SENT SPREAD RFQ referencing the
// just-quoted trade RFQ; one quote can flip several spreads to QUOTED.
func (s *RFQService) cascadeSpreadQuotedTx(ctx context.Context, tx *gorm.DB, tradeRFQID uuid.UUID, q *models.RFQQuote) error {
	spreads, err := s.Repo.ListSentSpreadRFQsReferencingTx(ctx, tx, tradeRFQID)
	if err != nil {
		return err
	}
	for i := range spreads {
		spread := spreads[i]
		if spread.BuyTradeID == nil || spread.SellTradeID == nil {
			continue
		}
		buyQuotes, err := s.Repo.ListQuotesByRFQIDTx(ctx, tx, *spread.BuyTradeID)
		if err != nil {
			return err
		}
		sellQuotes, err := s.Repo.ListQuotesByRFQIDTx(ctx, tx, *spread.SellTradeID)
		if err != nil {
			return err
		}
		if !rfq.SpreadLegsQuoted(buyQuotes, sellQuotes) {
			continue
		}
		trigger := triggerFirstEligibleQuote
		event := &models.RFQStateEvent{
			Trigger:                  &trigger,
			TriggeringQuoteID:        &q.ID,
			TriggeringCounterpartyID: &q.CounterpartyID,
		}
		if err := s.transitionTx(ctx, tx, &spread, models.RFQStateQuoted, event); err != nil {
			return err
		}
	}
	return nil
}

// TradeRanking recomputes the quote ranking for a trade RFQ. Pure read.
func (s *RFQService) TradeRanking(ctx context.Context, id uuid.UUID) (rfq.TradeRanking, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return rfq.TradeRanking{}, err
	}
	quotes, err := s.Repo.ListQuotesByRFQID(ctx, id)
	if err != nil {
		return rfq.TradeRanking{}, err
	}
	return rfq.RankTrade(*item, quotes), nil
}

// SpreadRanking recomputes the per-counterparty spread ranking. Pure read.
func (s *RFQService) SpreadRanking(ctx context.Context, id uuid.UUID) (rfq.SpreadRanking, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return rfq.SpreadRanking{}, err
	}
	return s.spreadRankingFor(ctx, nil, item)
}

func (s *RFQService) spreadRankingFor(ctx context.Context, tx *gorm.DB, item *models.RFQ) (rfq.SpreadRanking, error) {
	if item.Intent != models.RFQIntentSpread {
		return rfq.RankSpread(*item, nil, nil, nil, nil), nil
	}
	var buyLeg, sellLeg *models.RFQ
	var buyQuotes, sellQuotes []models.RFQQuote
	if item.BuyTradeID != nil {
		leg, err := s.Repo.GetRFQByIDTx(ctx, tx, *item.BuyTradeID)
		if err != nil {
			return rfq.SpreadRanking{}, err
		}
		buyLeg = leg
		if leg != nil {
			if buyQuotes, err = s.Repo.ListQuotesByRFQIDTx(ctx, tx, leg.ID); err != nil {
				return rfq.SpreadRanking{}, err
			}
		}
	}
	if item.SellTradeID != nil {
		leg, err := s.Repo.GetRFQByIDTx(ctx, tx, *item.SellTradeID)
		if err != nil {
			return rfq.SpreadRanking{}, err
		}
		sellLeg = leg
		if leg != nil {
			if sellQuotes, err = s.Repo.ListQuotesByRFQIDTx(ctx, tx, leg.ID); err != nil {
				return rfq.SpreadRanking{}, err
			}
		}
	}
	return rfq.RankSpread(*item, buyLeg, sellLeg, buyQuotes, sellQuotes), nil
}

// Reject closes a QUOTED RFQ without awarding. No exposure side effect.
func (s *RFQService) Reject(ctx context.Context, id uuid.UUID, userID *string) (*models.RFQ, error) {
	var item *models.RFQ
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = s.Repo.GetRFQByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("RFQ %s not found", id)
		}
		if item.State != models.RFQStateQuoted {
			return apperr.Conflict("RFQ %s is %s, only QUOTED RFQs can be rejected", item.ID, item.State)
		}
		reason := reasonUserRejected
		event := &models.RFQStateEvent{Reason: &reason, UserID: userID}
		return s.transitionTx(ctx, tx, item, models.RFQStateClosed, event)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("rfq rejected", zap.String("rfq_id", id.String()))
	return item, nil
}

// Refresh re-invites every distinct recipient seen so far, first invitation
// per recipient wins. State stays QUOTED.
func (s *RFQService) Refresh(ctx context.Context, id uuid.UUID) ([]models.RFQInvitation, error) {
	var created []models.RFQInvitation
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := s.Repo.GetRFQByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("RFQ %s not found", id)
		}
		if item.State != models.RFQStateQuoted {
			return apperr.Conflict("RFQ %s is %s, only QUOTED RFQs can be refreshed", item.ID, item.State)
		}
		prior, err := s.Repo.ListInvitationsByRFQIDTx(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(prior))
		var firstPerRecipient []models.RFQInvitation
		for _, inv := range prior {
			if seen[inv.RecipientID] {
				continue
			}
			seen[inv.RecipientID] = true
			firstPerRecipient = append(firstPerRecipient, inv)
		}
		if len(firstPerRecipient) == 0 {
			return apperr.Conflict("RFQ %s has no prior recipients to refresh", item.ID)
		}

		now := time.Now().UTC()
		for _, first := range firstPerRecipient {
			inv := &models.RFQInvitation{
				RFQID:          item.ID,
				RFQNumber:      item.RFQNumber,
				RecipientID:    first.RecipientID,
				RecipientName:  first.RecipientName,
				Channel:        first.Channel,
				MessageBody:    fmt.Sprintf("RFQ#%s — REFRESH: please resend your FIXED price quote.", item.RFQNumber),
				SendStatus:     models.RFQInvitationStatusQueued,
				SentAt:         now,
				IdempotencyKey: fmt.Sprintf("refresh-%s-%s", item.RFQNumber, first.RecipientID),
			}
			if err := s.Repo.CreateRFQInvitationTx(ctx, tx, inv); err != nil {
				return mapDuplicate(err, "RFQ %s was already refreshed for recipient %s", item.RFQNumber, first.RecipientID)
			}
			created = append(created, *inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("rfq refreshed", zap.String("rfq_id", id.String()), zap.Int("recipients", len(created)))
	return created, nil
}

// AwardResult is everything a successful award produced.
type AwardResult struct {
	RFQ       *models.RFQ                `json:"rfq"`
	Contracts []models.HedgeContract     `json:"contracts"`
	Linkages  []models.HedgeOrderLinkage `json:"linkages"`
	Ranking   json.RawMessage            `json:"ranking"`
}

// Award turns a QUOTED RFQ into hedge contracts for the best-ranked
// counterparty. The ranking is recomputed at award time; any failure ranking
// is a conflict. Contract and linkage creation, both state events and the
// state change commit as one transaction.
func (s *RFQService) Award(ctx context.Context, id uuid.UUID, userID *string) (*AwardResult, error) {
	var result *AwardResult
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		item, err := s.Repo.GetRFQByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("RFQ %s not found", id)
		}
		if item.State != models.RFQStateQuoted {
			return apperr.Conflict("RFQ %s is %s, only QUOTED RFQs can be awarded", item.ID, item.State)
		}

		var (
			rankingJSON     json.RawMessage
			winQuoteIDs     []string
			winCounterparty []string
			contracts       []models.HedgeContract
			linkages        []models.HedgeOrderLinkage
		)
		if item.Intent == models.RFQIntentSpread {
			ranking, err := s.spreadRankingFor(ctx, tx, item)
			if err != nil {
				return err
			}
			if ranking.Status != rfq.RankingSuccess {
				return apperr.Conflict("RFQ %s cannot be awarded: ranking failed with %s", item.ID, ranking.FailureCode)
			}
			rankingJSON, _ = json.Marshal(ranking)
			winner := ranking.Ranked[0]
			winQuoteIDs = []string{winner.BuyQuoteID, winner.SellQuoteID}
			winCounterparty = []string{winner.CounterpartyID}
			contracts, linkages, err = s.awardSpreadTx(ctx, tx, item, winner)
			if err != nil {
				return err
			}
		} else {
			quotes, err := s.Repo.ListQuotesByRFQIDTx(ctx, tx, item.ID)
			if err != nil {
				return err
			}
			ranking := rfq.RankTrade(*item, quotes)
			if ranking.Status != rfq.RankingSuccess {
				return apperr.Conflict("RFQ %s cannot be awarded: ranking failed with %s", item.ID, ranking.FailureCode)
			}
			rankingJSON, _ = json.Marshal(ranking)
			winner := ranking.Ranked[0]
			winQuoteIDs = []string{winner.QuoteID}
			winCounterparty = []string{winner.CounterpartyID}
			contracts, linkages, err = s.awardTradeTx(ctx, tx, item, winner)
			if err != nil {
				return err
			}
		}

		contractIDs := make([]string, 0, len(contracts))
		for _, c := range contracts {
			contractIDs = append(contractIDs, c.ID.String())
		}
		quoteIDsJSON, _ := json.Marshal(winQuoteIDs)
		cpIDsJSON, _ := json.Marshal(winCounterparty)
		contractIDsJSON, _ := json.Marshal(contractIDs)

		awardedAt := time.Now().UTC()
		awardEvent := &models.RFQStateEvent{
			UserID:                 userID,
			RankingSnapshot:        []byte(rankingJSON),
			WinningQuoteIDs:        quoteIDsJSON,
			WinningCounterpartyIDs: cpIDsJSON,
			AwardTimestamp:         &awardedAt,
		}
		if err := s.transitionTx(ctx, tx, item, models.RFQStateAwarded, awardEvent); err != nil {
			return err
		}
		closeEvent := &models.RFQStateEvent{
			UserID:             userID,
			CreatedContractIDs: contractIDsJSON,
		}
		if err := s.transitionTx(ctx, tx, item, models.RFQStateClosed, closeEvent); err != nil {
			return err
		}

		result = &AwardResult{RFQ: item, Contracts: contracts, Linkages: linkages, Ranking: rankingJSON}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("rfq awarded",
		zap.String("rfq_id", id.String()),
		zap.Int("contracts", len(result.Contracts)),
		zap.Int("linkages", len(result.Linkages)))
	return result, nil
}

// contractLegsForDirection gives the fixed leg side implied by a trade RFQ
// direction: a BUY RFQ fixes the buy leg (long hedge), a SELL RFQ the
// mirror.
func contractLegsForDirection(direction models.RFQDirection) models.HedgeLegSide {
	if direction == models.RFQDirectionBuy {
		return models.HedgeLegSideBuy
	}
	return models.HedgeLegSideSell
}

func (s *RFQService) contractFromQuoteTx(ctx context.Context, tx *gorm.DB, leg *models.RFQ, quoteID uuid.UUID, counterpartyID string, price decimal.Decimal, unit string, convention string) (*models.HedgeContract, *models.HedgeOrderLinkage, error) {
	fixedSide := contractLegsForDirection(leg.Direction)
	contract := &models.HedgeContract{
		Commodity:              leg.Commodity,
		QuantityMT:             leg.QuantityMT,
		RFQID:                  &leg.ID,
		RFQQuoteID:             &quoteID,
		CounterpartyID:         &counterpartyID,
		FixedPriceValue:        &price,
		FixedPriceUnit:         &unit,
		FloatPricingConvention: &convention,
		FixedLegSide:           fixedSide,
		VariableLegSide:        oppositeSide(fixedSide),
		Classification:         models.ClassificationForFixedSide(fixedSide),
		Status:                 models.HedgeContractStatusActive,
	}
	if err := s.Repo.CreateContractTx(ctx, tx, contract); err != nil {
		return nil, nil, err
	}

	var linkage *models.HedgeOrderLinkage
	if leg.Intent == models.RFQIntentCommercialHedge && leg.OrderID != nil {
		linkage = &models.HedgeOrderLinkage{
			OrderID:    *leg.OrderID,
			ContractID: contract.ID,
			QuantityMT: leg.QuantityMT,
		}
		if err := createLinkageTx(ctx, s.Repo, tx, linkage); err != nil {
			return nil, nil, err
		}
	}
	return contract, linkage, nil
}

func (s *RFQService) awardTradeTx(ctx context.Context, tx *gorm.DB, item *models.RFQ, winner rfq.RankedQuote) ([]models.HedgeContract, []models.HedgeOrderLinkage, error) {
	quoteID, err := uuid.Parse(winner.QuoteID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "parse winning quote id")
	}
	convention, err := s.winningConventionTx(ctx, tx, item.ID, quoteID)
	if err != nil {
		return nil, nil, err
	}
	contract, linkage, err := s.contractFromQuoteTx(ctx, tx, item, quoteID, winner.CounterpartyID, winner.PriceValue, winner.PriceUnit, convention)
	if err != nil {
		return nil, nil, err
	}
	contracts := []models.HedgeContract{*contract}
	var linkages []models.HedgeOrderLinkage
	if linkage != nil {
		linkages = append(linkages, *linkage)
	}
	return contracts, linkages, nil
}

func (s *RFQService) awardSpreadTx(ctx context.Context, tx *gorm.DB, item *models.RFQ, winner rfq.RankedSpread) ([]models.HedgeContract, []models.HedgeOrderLinkage, error) {
	type legAward struct {
		legID   uuid.UUID
		quoteID string
		price   decimal.Decimal
	}
	awards := []legAward{
		{legID: *item.BuyTradeID, quoteID: winner.BuyQuoteID, price: winner.BuyPrice},
		{legID: *item.SellTradeID, quoteID: winner.SellQuoteID, price: winner.SellPrice},
	}

	var contracts []models.HedgeContract
	var linkages []models.HedgeOrderLinkage
	for _, a := range awards {
		leg, err := s.Repo.GetRFQByIDTx(ctx, tx, a.legID)
		if err != nil {
			return nil, nil, err
		}
		if leg == nil {
			return nil, nil, apperr.Conflict("trade RFQ %s referenced by SPREAD %s no longer exists", a.legID, item.ID)
		}
		quoteID, err := uuid.Parse(a.quoteID)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindInternal, err, "parse winning quote id")
		}
		convention, err := s.winningConventionTx(ctx, tx, leg.ID, quoteID)
		if err != nil {
			return nil, nil, err
		}
		contract, linkage, err := s.contractFromQuoteTx(ctx, tx, leg, quoteID, winner.CounterpartyID, a.price, rfq.CanonicalUnit, convention)
		if err != nil {
			return nil, nil, err
		}
		contracts = append(contracts, *contract)
		if linkage != nil {
			linkages = append(linkages, *linkage)
		}
	}
	return contracts, linkages, nil
}

func (s *RFQService) winningConventionTx(ctx context.Context, tx *gorm.DB, rfqID, quoteID uuid.UUID) (string, error) {
	quotes, err := s.Repo.ListQuotesByRFQIDTx(ctx, tx, rfqID)
	if err != nil {
		return "", err
	}
	for _, q := range quotes {
		if q.ID == quoteID {
			return q.FloatPricingConvention, nil
		}
	}
	return "", apperr.Conflict("winning quote %s not found on RFQ %s", quoteID, rfqID)
}
