package rebalance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// this file contains functions to import holdings from the investment
// spreadsheet export. Only a handful of columns are used, the rest of the
// sheet is ignored.

// Columns locates the fields of a holding in a spreadsheet row, 0 based.
type Columns struct {
	Owner, Account, Ticker, Name, Value, Weight, Target int
}

// DefaultColumns is the layout of the investment sheet: A owner, C account,
// D ticker, E name, L value, N current weight and O target weight.
var DefaultColumns = Columns{Owner: 0, Account: 2, Ticker: 3, Name: 4, Value: 11, Weight: 13, Target: 14}

// minColumns is the minimal width of a row holding a position.
const minColumns = 15

// CSVOptions configures ImportCSV.
type CSVOptions struct {
	Currency string
	Columns  Columns
	// Owners names the full accounts of cash rows.
	Owners Owners
}

// skippedOwners are the category and total rows of the sheet.
var skippedOwners = map[string]bool{
	"Equities":           true,
	"Multi Asset":        true,
	"Fixed Income":       true,
	"Alternative Assets": true,
	"Total":              true,
}

// ImportCSV reads the holdings and cash balances of a spreadsheet export.
//
// The first row is a header. Rows that are too short, that have no owner or
// account, and category or total rows are skipped. Rows without a ticker, or
// with the ticker CASH, set the account cash. Other rows become holdings with
// an estimated quantity of 1 priced at their value, as long as their value is
// positive. Rows for the same owner, account and ticker are merged into one
// holding, their values and weights summed.
func ImportCSV(r io.Reader, opts CSVOptions) (*Book, error) {
	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns
	}
	c := opts.Columns
	width := max(minColumns, c.Owner+1, c.Account+1, c.Ticker+1, c.Name+1, c.Value+1, c.Weight+1, c.Target+1)

	b := NewBook(opts.Currency)
	for code, name := range opts.Owners {
		b.Owners[code] = name
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return b, nil
		}
		return nil, fmt.Errorf("cannot read csv header: %w", err)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read csv: %w", err)
		}
		if len(row) < width {
			continue
		}

		owner := strings.TrimSpace(row[c.Owner])
		if owner == "" || skippedOwners[owner] {
			continue
		}
		account := strings.TrimSpace(row[c.Account])
		if account == "" {
			continue
		}
		ticker := strings.TrimSpace(row[c.Ticker])
		value := M(parseCurrency(row[c.Value]), b.Currency)

		if ticker == "" || strings.EqualFold(ticker, "CASH") {
			if value.IsPositive() {
				b.Cash[b.FullAccount(owner, account)] = value
			}
			continue
		}
		if !value.IsPositive() {
			continue
		}

		weight := Percent(parsePercentage(row[c.Weight]))
		target := Percent(parsePercentage(row[c.Target]))
		if i := b.index(HoldingKey{Ticker: ticker, Account: account, Owner: owner}); i >= 0 {
			h := &b.Holdings[i]
			h.Value = h.Value.Add(value)
			h.LastPrice, h.BookCost = h.Value, h.BookCost.Add(value)
			h.Weight += weight
			h.Target += target
			continue
		}

		b.Holdings = append(b.Holdings, Holding{
			Owner:     owner,
			AssetType: "EQ",
			Account:   account,
			Ticker:    ticker,
			Name:      strings.TrimSpace(row[c.Name]),
			Quantity:  Q(1),
			LastPrice: value,
			BookCost:  value,
			Value:     value,
			Weight:    weight,
			Target:    target,
			Estimated: true,
		})
	}
	return b, nil
}

var currencyNoise = regexp.MustCompile(`[£$€,"']`)

// parseCurrency reads amounts like "£1,234.56", unreadable amounts are 0.
func parseCurrency(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(currencyNoise.ReplaceAllString(s, "")), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parsePercentage reads percentages like "12.5%", unreadable ones are 0.
func parsePercentage(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Reimport replaces the holdings and cash of b with the ones of imported.
// The owners directory and cash target of b are kept.
func (b *Book) Reimport(imported *Book) {
	b.Holdings = imported.Holdings
	b.Cash = imported.Cash
	if b.Cash == nil {
		b.Cash = make(CashBalances)
	}
}

// Import replaces the holdings and cash of b with the ones of the
// spreadsheet export r. The book currency and owners apply unless opts sets
// them.
func (b *Book) Import(r io.Reader, opts CSVOptions) error {
	if opts.Currency == "" {
		opts.Currency = b.Currency
	}
	if opts.Owners == nil {
		opts.Owners = b.Owners
	}
	imported, err := ImportCSV(r, opts)
	if err != nil {
		return err
	}
	b.Reimport(imported)
	return nil
}
