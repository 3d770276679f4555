package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
	"hedgeback/internal/repository"
)

// PriceSource resolves a settlement price for (symbol, date). Implementations
// fail with a failed-dependency kind when no price exists and a conflict kind
// when the key is ambiguous; there is no default-zero behavior.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
}

// PriceLookupService reads ingested cash settlement prices.
type PriceLookupService struct {
	Repo repository.Repository
}

func (s *PriceLookupService) GetPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	rows, err := s.Repo.ListCashSettlementPricesBySymbolDate(ctx, symbol, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	switch len(rows) {
	case 0:
		return decimal.Decimal{}, apperr.FailedDependency(
			"no cash settlement price for %s on %s", symbol, date.Format("2006-01-02"))
	case 1:
		return rows[0].PriceUSD, nil
	default:
		return decimal.Decimal{}, apperr.Conflict(
			"ambiguous cash settlement price for %s on %s: %d rows", symbol, date.Format("2006-01-02"), len(rows))
	}
}
