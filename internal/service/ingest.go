package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hedgeback/internal/marketdata"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

// MarketDataIngestService pulls the westmetall settlement table and stores
// new (source, symbol, date) rows. Already-ingested rows are skipped, never
// overwritten; provenance travels with every stored price.
type MarketDataIngestService struct {
	Repo    repository.Repository
	Fetcher marketdata.Fetcher
	Symbol  string
	Source  string
	Logger  *zap.Logger
}

type IngestResult struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
}

func (s *MarketDataIngestService) RunOnce(ctx context.Context) (*IngestResult, error) {
	fetched, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := marketdata.ParseDailyRows(fetched.Body)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, row := range rows {
		count, err := s.Repo.CountCashSettlementPrices(ctx, s.Source, s.Symbol, row.SettlementDate)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			result.Skipped++
			continue
		}
		price := &models.CashSettlementPrice{
			Source:         s.Source,
			Symbol:         s.Symbol,
			SettlementDate: row.SettlementDate,
			PriceUSD:       row.PriceUSD,
			SourceURL:      fetched.SourceURL,
			HTMLSHA256:     fetched.HTMLSHA,
			FetchedAt:      fetched.FetchedAt,
		}
		if err := s.Repo.CreateCashSettlementPrice(ctx, price); err != nil {
			// A concurrent ingest may have inserted the same key; anything
			// else is a real store failure.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Ingested++
	}
	s.Logger.Info("market data ingest complete",
		zap.Int("ingested", result.Ingested),
		zap.Int("skipped", result.Skipped),
		zap.String("source", s.Source))
	return result, nil
}
