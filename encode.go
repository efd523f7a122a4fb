package rebalance

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// The book file is a single, indented JSON document meant to stay readable
// and editable by hand:
//
//	{
//	  "currency": "GBP",
//	  "owners": {"EF": "Ed Forrester"},
//	  "holdings": [
//	    {"owner": "EF", "asset_type": "EQ", "account": "SIPP", "ticker": "VJPN",
//	     "name": "Vanguard FTSE Japan", "quantity": 120, "last_price": 45.1,
//	     "book_cost": 5000, "current_value": 5412, "target_weight": 5}
//	  ],
//	  "cash_balances": {"Ed Forrester SIPP": 1200},
//	  "cash_target_percentage": 7.6
//	}
//
// Amounts are plain numbers in the book currency.

// jholding is the persisted form of a Holding.
type jholding struct {
	Owner     string      `json:"owner"`
	AssetType string      `json:"asset_type"`
	Account   string      `json:"account"`
	Ticker    string      `json:"ticker"`
	Name      string      `json:"name"`
	Quantity  json.Number `json:"quantity"`
	LastPrice json.Number `json:"last_price"`
	BookCost  json.Number `json:"book_cost"`
	Value     json.Number `json:"current_value"`
	Target    float64     `json:"target_weight"`
	Estimated bool        `json:"estimated_quantity,omitempty"`
}

// jbook is the persisted form of a Book.
type jbook struct {
	Currency   string                 `json:"currency,omitempty"`
	Owners     map[string]string      `json:"owners,omitempty"`
	Holdings   []jholding             `json:"holdings"`
	Cash       map[string]json.Number `json:"cash_balances"`
	CashTarget *float64               `json:"cash_target_percentage,omitempty"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// parseNumber reads an optional JSON number, absent numbers read as 0.
func parseNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(n))
}

// EncodeBook writes b to w as an indented JSON document.
func EncodeBook(w io.Writer, b *Book) error {
	target := float64(b.CashTarget)
	jb := jbook{
		Currency:   b.Currency,
		Owners:     b.Owners,
		Holdings:   make([]jholding, 0, len(b.Holdings)),
		Cash:       make(map[string]json.Number, len(b.Cash)),
		CashTarget: &target,
	}
	for _, h := range b.Holdings {
		jb.Holdings = append(jb.Holdings, jholding{
			Owner:     h.Owner,
			AssetType: h.AssetType,
			Account:   h.Account,
			Ticker:    h.Ticker,
			Name:      h.Name,
			Quantity:  number(h.Quantity.value),
			LastPrice: number(h.LastPrice.value),
			BookCost:  number(h.BookCost.value),
			Value:     number(h.Value.value),
			Target:    float64(h.Target),
			Estimated: h.Estimated,
		})
	}
	for acc, amount := range b.Cash {
		jb.Cash[acc] = number(amount.value)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jb); err != nil {
		return fmt.Errorf("cannot encode book: %w", err)
	}
	return nil
}

// DecodeBook reads a book written by EncodeBook. A missing currency reads as
// DefaultCurrency and a missing cash target as DefaultCashTarget.
func DecodeBook(r io.Reader) (*Book, error) {
	var jb jbook
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&jb); err != nil {
		return nil, fmt.Errorf("cannot decode book: %w", err)
	}

	b := NewBook(jb.Currency)
	if jb.CashTarget != nil {
		b.CashTarget = Percent(*jb.CashTarget)
	}
	for code, name := range jb.Owners {
		b.Owners[code] = name
	}
	for acc, n := range jb.Cash {
		amount, err := parseNumber(n)
		if err != nil {
			return nil, fmt.Errorf("invalid cash balance for %q: %w", acc, err)
		}
		b.Cash[acc] = M(amount, b.Currency)
	}
	for i, jh := range jb.Holdings {
		var values [4]decimal.Decimal
		for j, n := range []json.Number{jh.Quantity, jh.LastPrice, jh.BookCost, jh.Value} {
			d, err := parseNumber(n)
			if err != nil {
				return nil, fmt.Errorf("invalid number in holding #%d (%s): %w", i, jh.Ticker, err)
			}
			values[j] = d
		}
		b.Holdings = append(b.Holdings, Holding{
			Owner:     jh.Owner,
			AssetType: jh.AssetType,
			Account:   jh.Account,
			Ticker:    jh.Ticker,
			Name:      jh.Name,
			Quantity:  Q(values[0]),
			LastPrice: M(values[1], b.Currency),
			BookCost:  M(values[2], b.Currency),
			Value:     M(values[3], b.Currency),
			Target:    Percent(jh.Target),
			Estimated: jh.Estimated,
		})
	}
	return b, nil
}

// LoadBook reads the book stored at path. A missing file is not an error, it
// reads as an empty book in DefaultCurrency.
func LoadBook(path string) (*Book, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Printf("warning, book file %q does not exist, starting with an empty book", path)
		return NewBook(DefaultCurrency), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open book file %q: %w", path, err)
	}
	defer f.Close()

	b, err := DecodeBook(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode book file %q: %w", path, err)
	}
	return b, nil
}

// SaveBook writes b to path, creating its directory if needed.
func SaveBook(path string, b *Book) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create directory for book %q: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error opening book file %q for writing: %w", path, err)
	}
	defer f.Close()

	if err := EncodeBook(f, b); err != nil {
		return err
	}
	return f.Close()
}
