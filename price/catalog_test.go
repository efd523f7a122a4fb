package price

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		ticker, source, url string
	}{
		{"VJPN", SourceYahoo, "https://finance.yahoo.com/quote/VJPN.L/"},
		{"B61ZBV3", SourceFT, "https://markets.ft.com/data/funds/tearsheet/summary?s=IE000WSZ17Z4:GBP"},
		{"CASH", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			if got := c.Source(tt.ticker); got != tt.source {
				t.Errorf("Source() = %q, want %q", got, tt.source)
			}
			if got := c.URL(tt.ticker); got != tt.url {
				t.Errorf("URL() = %q, want %q", got, tt.url)
			}
			if got := c.Priceable(tt.ticker); got != (tt.source != "") {
				t.Errorf("Priceable() = %v, want %v", got, tt.source != "")
			}
		})
	}
	if !c.InPounds("CSCA.L") || c.InPounds("SGLN.L") {
		t.Errorf("InPounds() wrong for CSCA.L or SGLN.L: %v", c.GBPQuoted)
	}
	if got := len(c.Tickers()); got != 20 {
		t.Errorf("len(Tickers()) = %d, want 20", got)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	override := `{"yahoo": {"VWRL": "VWRL.L", "TRY": ""}, "ft": {"XYZ": "GB00XYZ:GBP"}, "gbp_quoted": ["VWRL.L"]}`
	if err := os.WriteFile(path, []byte(override), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if c.Source("VWRL") != SourceYahoo || !c.InPounds("VWRL.L") {
		t.Errorf("LoadCatalog() did not add VWRL: %+v", c)
	}
	if c.Priceable("TRY") {
		t.Errorf("LoadCatalog() did not remove TRY")
	}
	if c.Source("XYZ") != SourceFT || c.Source("VJPN") != SourceYahoo {
		t.Errorf("LoadCatalog() lost entries: %+v", c)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadCatalog() expected an error on a missing file")
	}
}
