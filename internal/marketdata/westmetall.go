// Package marketdata fetches and parses daily LME cash settlement prices
// from the westmetall public market data table.
package marketdata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"hedgeback/internal/apperr"
)

const SourceName = "westmetall"

// FetchResult carries the raw page plus provenance recorded alongside every
// ingested price.
type FetchResult struct {
	Body      []byte
	SourceURL string
	HTMLSHA   string
	FetchedAt time.Time
}

// Fetcher retrieves the raw settlement table page.
type Fetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

type HTTPFetcher struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		URL:     url,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return FetchResult{}, apperr.Wrap(apperr.KindUnavailable, err, "build westmetall request")
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return FetchResult{}, apperr.Wrap(apperr.KindUnavailable, err, "fetch westmetall page")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, apperr.Unavailable("westmetall returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, apperr.Wrap(apperr.KindUnavailable, err, "read westmetall response")
	}

	sum := sha256.Sum256(body)
	return FetchResult{
		Body:      body,
		SourceURL: f.URL,
		HTMLSHA:   hex.EncodeToString(sum[:]),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// DailyRow is one (settlement date, cash price) pair extracted from the
// table.
type DailyRow struct {
	SettlementDate time.Time
	PriceUSD       decimal.Decimal
}

// ParseDailyRows extracts settlement rows from the westmetall table. The
// layout is a plain HTML table whose first cell is a dd.mm.yyyy date and
// second cell the cash settlement price. Rows that do not fit the shape are
// skipped; a page yielding zero rows means the layout changed and is an
// unavailable error, never an empty success.
func ParseDailyRows(html []byte) ([]DailyRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "parse westmetall page")
	}

	var rows []DailyRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		date, err := parseTableDate(cells.Eq(0).Text())
		if err != nil {
			return
		}
		price, err := parseTablePrice(cells.Eq(1).Text())
		if err != nil {
			return
		}
		rows = append(rows, DailyRow{SettlementDate: date, PriceUSD: price})
	})

	if len(rows) == 0 {
		return nil, apperr.Unavailable("westmetall table layout changed: no settlement rows found")
	}
	return rows, nil
}

func parseTableDate(text string) (time.Time, error) {
	t, err := time.Parse("02.01.2006", strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseTablePrice(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty price cell")
	}
	return decimal.NewFromString(cleaned)
}
