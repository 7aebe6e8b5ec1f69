package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/revenue"
	"github.com/boothkeeper/boothkeeper/internal/revenue/projection"
)

func TestWriteDailyTableCSV(t *testing.T) {
	start := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	r, err := revenue.NewDateRange(start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	days := []revenue.DayBreakdown{{
		Day:      start,
		Quantity: 120,
		Revenue:  revenue.ByType{}.Add(decimal.NewFromInt(1200), decimal.NewFromFloat(34.5)),
		Categories: []revenue.Rollup{
			{ID: 2, Name: "Prints", Quantity: 120, Revenue: revenue.ByType{}.Add(decimal.NewFromInt(1200), decimal.NewFromFloat(34.5))},
		},
	}}
	table := projection.DailyTable(days, r)

	buf := &bytes.Buffer{}
	if err := WriteDailyTableCSV(buf, table, NewFormatter("en-US")); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and two days, got %d", len(records))
	}
	if got := records[0]; got[1] != "Prints" || got[len(got)-1] != "Net" {
		t.Fatalf("unexpected header %v", got)
	}
	if got := records[1][1]; got != "1,234.50" {
		t.Fatalf("unexpected category cell %q", got)
	}
	if got := records[2][0]; got != "2024-07-05" {
		t.Fatalf("unexpected zero-filled day %q", got)
	}
	if got := records[2][len(records[2])-1]; got != "0.00" {
		t.Fatalf("expected zero net, got %q", got)
	}
}

func TestFormatterLocale(t *testing.T) {
	f := NewFormatter("de")
	if got := f.Money(decimal.NewFromFloat(1234.5)); got != "1.234,50" {
		t.Fatalf("unexpected german money %q", got)
	}
	if got := NewFormatter("not a tag").Count(1500); got != "1,500" {
		t.Fatalf("unexpected fallback count %q", got)
	}
}

func TestWriteLeaderboardCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	ranked := []projection.Ranked{{Rank: 1, Name: "Sticker", Quantity: 5, Revenue: decimal.NewFromInt(15)}}
	if err := WriteLeaderboardCSV(buf, ranked, NewFormatter("")); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 2 || records[1][3] != "15.00" {
		t.Fatalf("unexpected records %v", records)
	}
}
