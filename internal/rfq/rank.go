// Package rfq holds the pure quote-selection and ranking rules for the RFQ
// lifecycle: latest-quote selection per counterparty, price-unit
// canonicalization, and trade/spread rankings.
package rfq

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hedgeback/internal/models"
)

// CanonicalUnit is the only price unit quotes are comparable in.
const CanonicalUnit = "USD/MT"

// CanonicalPriceUnit normalizes a quoted price unit. Units are upper-cased
// with "/", "-" and spaces stripped; only the USD-per-tonne form has a
// canonical spelling. The second return is false for anything else.
func CanonicalPriceUnit(unit string) (string, bool) {
	norm := strings.ToUpper(unit)
	norm = strings.NewReplacer("/", "", "-", "", " ", "").Replace(norm)
	if norm == "USDMT" {
		return CanonicalUnit, true
	}
	return "", false
}

// LatestQuotesByCounterparty picks, per counterparty, the quote maximizing
// (received_at, created_at, id). The id comparison exists only to make the
// selection deterministic.
func LatestQuotesByCounterparty(quotes []models.RFQQuote) map[string]models.RFQQuote {
	latest := make(map[string]models.RFQQuote)
	for _, q := range quotes {
		cur, ok := latest[q.CounterpartyID]
		if !ok || quoteLater(q, cur) {
			latest[q.CounterpartyID] = q
		}
	}
	return latest
}

func quoteLater(a, b models.RFQQuote) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.After(b.ReceivedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

type RankingStatus string

const (
	RankingSuccess RankingStatus = "SUCCESS"
	RankingFailure RankingStatus = "FAILURE"
)

type FailureCode string

const (
	FailureNotTradeIntent   FailureCode = "NOT_TRADE_INTENT"
	FailureNotSpreadIntent  FailureCode = "NOT_SPREAD_INTENT"
	FailureNoEligibleQuotes FailureCode = "NO_ELIGIBLE_QUOTES"
	FailureNonComparable    FailureCode = "NON_COMPARABLE"
	FailureTie              FailureCode = "TIE"
)

// RankedQuote is one entry of a successful trade ranking; rank 1 is best.
type RankedQuote struct {
	Rank           int             `json:"rank"`
	QuoteID        string          `json:"quote_id"`
	CounterpartyID string          `json:"counterparty_id"`
	PriceValue     decimal.Decimal `json:"price_value"`
	PriceUnit      string          `json:"price_unit"`
}

type TradeRanking struct {
	Status      RankingStatus `json:"status"`
	FailureCode FailureCode   `json:"failure_code,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	Ranked      []RankedQuote `json:"ranked,omitempty"`
}

func tradeFailure(code FailureCode, detail string) TradeRanking {
	return TradeRanking{Status: RankingFailure, FailureCode: code, Detail: detail}
}

// RankTrade orders the latest quotes of a non-SPREAD RFQ by price. A SELL
// RFQ ranks descending (seller wants the highest bid), a BUY RFQ ascending.
// Equal prices are rejected as a TIE rather than broken arbitrarily.
func RankTrade(r models.RFQ, quotes []models.RFQQuote) TradeRanking {
	if r.Intent == models.RFQIntentSpread {
		return tradeFailure(FailureNotTradeIntent, "spread RFQs are ranked by spread, not by price")
	}

	latest := LatestQuotesByCounterparty(quotes)
	if len(latest) == 0 {
		return tradeFailure(FailureNoEligibleQuotes, "no quotes received")
	}

	ranked := make([]RankedQuote, 0, len(latest))
	for _, q := range latest {
		unit, ok := CanonicalPriceUnit(q.FixedPriceUnit)
		if !ok {
			return tradeFailure(FailureNonComparable, "quote "+q.ID.String()+" price unit "+q.FixedPriceUnit+" is not comparable")
		}
		ranked = append(ranked, RankedQuote{
			QuoteID:        q.ID.String(),
			CounterpartyID: q.CounterpartyID,
			PriceValue:     q.FixedPriceValue,
			PriceUnit:      unit,
		})
	}

	asc := r.Direction == models.RFQDirectionBuy
	sort.Slice(ranked, func(i, j int) bool {
		if asc {
			return ranked[i].PriceValue.LessThan(ranked[j].PriceValue)
		}
		return ranked[i].PriceValue.GreaterThan(ranked[j].PriceValue)
	})

	for i := 1; i < len(ranked); i++ {
		if ranked[i].PriceValue.Equal(ranked[i-1].PriceValue) {
			return tradeFailure(FailureTie, "quotes "+ranked[i-1].QuoteID+" and "+ranked[i].QuoteID+" share price "+ranked[i].PriceValue.String())
		}
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return TradeRanking{Status: RankingSuccess, Ranked: ranked}
}

// RankedSpread is one entry of a successful spread ranking; rank 1 is best.
type RankedSpread struct {
	Rank           int             `json:"rank"`
	CounterpartyID string          `json:"counterparty_id"`
	BuyQuoteID     string          `json:"buy_quote_id"`
	SellQuoteID    string          `json:"sell_quote_id"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	SpreadValue    decimal.Decimal `json:"spread_value"`
}

type SpreadRanking struct {
	Status      RankingStatus  `json:"status"`
	FailureCode FailureCode    `json:"failure_code,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	Ranked      []RankedSpread `json:"ranked,omitempty"`
}

func spreadFailure(code FailureCode, detail string) SpreadRanking {
	return SpreadRanking{Status: RankingFailure, FailureCode: code, Detail: detail}
}

// RankSpread ranks counterparties quoting both legs of a SPREAD RFQ by
// sell-minus-buy price, descending. Only counterparties with a latest quote
// on each leg are eligible.
func RankSpread(spread models.RFQ, buyLeg, sellLeg *models.RFQ, buyQuotes, sellQuotes []models.RFQQuote) SpreadRanking {
	if spread.Intent != models.RFQIntentSpread {
		return spreadFailure(FailureNotSpreadIntent, "RFQ intent is "+string(spread.Intent))
	}
	if buyLeg == nil || sellLeg == nil {
		return spreadFailure(FailureNonComparable, "referenced trade RFQ not found")
	}
	if buyLeg.Commodity != sellLeg.Commodity {
		return spreadFailure(FailureNonComparable, "leg commodities differ: "+buyLeg.Commodity+" vs "+sellLeg.Commodity)
	}

	latestBuy := LatestQuotesByCounterparty(buyQuotes)
	latestSell := LatestQuotesByCounterparty(sellQuotes)

	ranked := make([]RankedSpread, 0, len(latestBuy))
	for cp, bq := range latestBuy {
		sq, ok := latestSell[cp]
		if !ok {
			continue
		}
		buyUnit, ok := CanonicalPriceUnit(bq.FixedPriceUnit)
		if !ok {
			return spreadFailure(FailureNonComparable, "buy-leg quote "+bq.ID.String()+" price unit "+bq.FixedPriceUnit+" is not comparable")
		}
		sellUnit, ok := CanonicalPriceUnit(sq.FixedPriceUnit)
		if !ok {
			return spreadFailure(FailureNonComparable, "sell-leg quote "+sq.ID.String()+" price unit "+sq.FixedPriceUnit+" is not comparable")
		}
		if buyUnit != sellUnit {
			return spreadFailure(FailureNonComparable, "leg price units differ: "+buyUnit+" vs "+sellUnit)
		}
		ranked = append(ranked, RankedSpread{
			CounterpartyID: cp,
			BuyQuoteID:     bq.ID.String(),
			SellQuoteID:    sq.ID.String(),
			BuyPrice:       bq.FixedPriceValue,
			SellPrice:      sq.FixedPriceValue,
			SpreadValue:    sq.FixedPriceValue.Sub(bq.FixedPriceValue),
		})
	}
	if len(ranked) == 0 {
		return spreadFailure(FailureNoEligibleQuotes, "no counterparty quoted both legs")
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].SpreadValue.GreaterThan(ranked[j].SpreadValue)
	})
	for i := 1; i < len(ranked); i++ {
		if ranked[i].SpreadValue.Equal(ranked[i-1].SpreadValue) {
			return spreadFailure(FailureTie, "counterparties "+ranked[i-1].CounterpartyID+" and "+ranked[i].CounterpartyID+" share spread "+ranked[i].SpreadValue.String())
		}
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return SpreadRanking{Status: RankingSuccess, Ranked: ranked}
}

// SpreadLegsQuoted reports whether at least one counterparty has latest
// quotes on both legs. Quote ingestion uses it to cascade SENT spread RFQs
// to QUOTED.
func SpreadLegsQuoted(buyQuotes, sellQuotes []models.RFQQuote) bool {
	latestSell := LatestQuotesByCounterparty(sellQuotes)
	for cp := range LatestQuotesByCounterparty(buyQuotes) {
		if _, ok := latestSell[cp]; ok {
			return true
		}
	}
	return false
}
