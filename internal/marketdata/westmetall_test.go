package marketdata

import (
	"testing"
	"time"

	"hedgeback/internal/apperr"
)

const samplePage = `<html><body>
<h1>LME Aluminium cash settlement</h1>
<table class="table">
<tr><th>date</th><th>LME Cash</th><th>LME 3 months</th></tr>
<tr><td>14.08.2026</td><td>2,345.50</td><td>2,360.00</td></tr>
<tr><td>17.08.2026</td><td>2,351.00</td><td>2,366.25</td></tr>
<tr><td>holiday</td><td>-</td><td>-</td></tr>
<tr><td>18.08.2026</td><td>2,348.75</td><td>2,363.00</td></tr>
</table>
</body></html>`

func TestParseDailyRows(t *testing.T) {
	rows, err := ParseDailyRows([]byte(samplePage))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want=3", len(rows))
	}

	first := rows[0]
	wantDate := time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)
	if !first.SettlementDate.Equal(wantDate) {
		t.Fatalf("date=%s want=%s", first.SettlementDate, wantDate)
	}
	if first.PriceUSD.String() != "2345.5" {
		t.Fatalf("price=%s want=2345.5", first.PriceUSD)
	}
	if rows[2].PriceUSD.String() != "2348.75" {
		t.Fatalf("price=%s want=2348.75", rows[2].PriceUSD)
	}
}

func TestParseDailyRows_SkipsMalformedRows(t *testing.T) {
	page := `<table>
<tr><td>19.08.2026</td></tr>
<tr><td>not a date</td><td>2,400.00</td></tr>
<tr><td>20.08.2026</td><td>n/a</td></tr>
<tr><td>21.08.2026</td><td> 2,401.25 </td></tr>
</table>`
	rows, err := ParseDailyRows([]byte(page))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want=1", len(rows))
	}
	if rows[0].PriceUSD.String() != "2401.25" {
		t.Fatalf("price=%s want=2401.25", rows[0].PriceUSD)
	}
}

func TestParseDailyRows_NoRowsIsUnavailable(t *testing.T) {
	_, err := ParseDailyRows([]byte("<html><body><p>under maintenance</p></body></html>"))
	if !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Fatalf("err=%v want unavailable", err)
	}
}
