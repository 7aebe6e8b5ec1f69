// Package export serialises dashboard projections.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/boothkeeper/boothkeeper/internal/revenue/projection"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Formatter renders amounts for a locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for a BCP 47 tag such as "en-US" or "de".
// Unknown or empty tags fall back to English.
func NewFormatter(tag string) Formatter {
	lang, err := language.Parse(tag)
	if err != nil || tag == "" {
		lang = language.English
	}
	return Formatter{printer: message.NewPrinter(lang)}
}

// Money renders an amount with two decimals and locale grouping.
func (f Formatter) Money(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.printer.Sprintf("%.2f", v)
}

// Count renders an integer with locale grouping.
func (f Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// WriteDailyTableCSV emits one line per day with a column per category.
func WriteDailyTableCSV(w io.Writer, table projection.Table, f Formatter) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Day"}
	for _, col := range table.Columns {
		header = append(header, col.Name)
	}
	header = append(header, "Quantity", "Gross", "Discounts", "Net")
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := []string{shared.FormatDay(row.Day)}
		for _, cell := range row.Cells {
			record = append(record, f.Money(cell.Revenue))
		}
		record = append(record, f.Count(row.Quantity), f.Money(row.Revenue), f.Money(row.Discounts), f.Money(row.Net))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLeaderboardCSV emits a ranked list.
func WriteLeaderboardCSV(w io.Writer, ranked []projection.Ranked, f Formatter) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Rank", "Name", "Quantity", "Revenue"}); err != nil {
		return err
	}
	for _, r := range ranked {
		if err := writer.Write([]string{
			strconv.Itoa(r.Rank),
			r.Name,
			f.Count(r.Quantity),
			f.Money(r.Revenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
