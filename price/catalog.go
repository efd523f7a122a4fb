package price

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
)

const (
	// SourceYahoo names quotes from the Yahoo Finance chart API.
	SourceYahoo = "Yahoo Finance"
	// SourceFT names quotes scraped from FT Markets fund tearsheets.
	SourceFT = "FT Markets"
)

const (
	yahooQuoteURL  = "https://finance.yahoo.com/quote/"
	ftTearsheetURL = "https://markets.ft.com/data/funds/tearsheet/summary?s="
)

// Catalog tells where the price of a ticker can be found.
type Catalog struct {
	// Yahoo maps a ticker to its Yahoo Finance symbol, e.g. VJPN → VJPN.L.
	Yahoo map[string]string `json:"yahoo"`
	// FT maps a ticker to its FT Markets identifier "ISIN:CURRENCY".
	FT map[string]string `json:"ft"`
	// GBPQuoted lists the Yahoo symbols quoted in pounds, all others are
	// quoted in pence.
	GBPQuoted []string `json:"gbp_quoted"`
}

// DefaultCatalog returns the built in catalog of LSE listed ETFs and
// investment trusts, and of the OTC funds only FT Markets prices.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Yahoo: make(map[string]string),
		FT: map[string]string{
			"B61ZBV3": "IE000WSZ17Z4:GBP", // Ranmore Global Equity Institutional GBP Acc
			"BVYPNY2": "IE00BVYPNY24:GBP", // Guinness Global Equity Income Y GBP Acc
		},
		GBPQuoted: []string{"VJPN.L", "CSCA.L"},
	}
	for _, ticker := range []string{
		"VJPN", "BRWM", "AGT", "CLDN", "CEA1", "CSCA", "CGT", "RCP", "RICA",
		"BHMG", "TI5G", "SGLN", "TRY", "PIN", "SPOG", "CSWG", "INXG", "ITPG",
	} {
		c.Yahoo[ticker] = ticker + ".L"
	}
	return c
}

// LoadCatalog returns the default catalog overridden by the JSON file at
// path. Entries of the file replace or extend the default ones, an empty
// symbol removes a default entry.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read catalog file %q: %w", path, err)
	}
	var override Catalog
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("could not decode catalog file %q: %w", path, err)
	}
	c.merge(&override)
	return c, nil
}

func (c *Catalog) merge(o *Catalog) {
	for _, m := range []struct{ dst, src map[string]string }{{c.Yahoo, o.Yahoo}, {c.FT, o.FT}} {
		for ticker, id := range m.src {
			if id == "" {
				delete(m.dst, ticker)
				continue
			}
			m.dst[ticker] = id
		}
	}
	for _, sym := range o.GBPQuoted {
		if !slices.Contains(c.GBPQuoted, sym) {
			c.GBPQuoted = append(c.GBPQuoted, sym)
		}
	}
}

// Source returns the name of the price source of ticker, or "" if it cannot
// be priced automatically. Yahoo Finance wins over FT Markets.
func (c *Catalog) Source(ticker string) string {
	if _, ok := c.Yahoo[ticker]; ok {
		return SourceYahoo
	}
	if _, ok := c.FT[ticker]; ok {
		return SourceFT
	}
	return ""
}

// URL returns the page where the price of ticker can be checked by hand, or
// "".
func (c *Catalog) URL(ticker string) string {
	if sym, ok := c.Yahoo[ticker]; ok {
		return yahooQuoteURL + sym + "/"
	}
	if id, ok := c.FT[ticker]; ok {
		return ftTearsheetURL + id
	}
	return ""
}

// Priceable reports whether ticker can be priced automatically.
func (c *Catalog) Priceable(ticker string) bool { return c.Source(ticker) != "" }

// InPounds reports whether the Yahoo symbol is quoted in pounds rather than
// pence.
func (c *Catalog) InPounds(symbol string) bool { return slices.Contains(c.GBPQuoted, symbol) }

// Tickers returns every ticker the catalog can price, sorted.
func (c *Catalog) Tickers() []string {
	all := maps.Clone(c.Yahoo)
	maps.Copy(all, c.FT)
	return slices.Sorted(maps.Keys(all))
}
