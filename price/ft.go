package price

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// DefaultFTURL is the base of FT Markets fund tearsheets.
const DefaultFTURL = ftTearsheetURL

// FT puts the price in: <span class="mod-ui-data-list__value">183.21</span>
var ftPrice = regexp.MustCompile(`class="mod-ui-data-list__value">([0-9]+\.[0-9]+)`)

// FT reads fund prices from FT Markets tearsheets, for OTC funds Yahoo does
// not list.
type FT struct {
	BaseURL string
	client  *http.Client
}

// NewFT returns an FT Markets fetcher using client.
func NewFT(client *http.Client) *FT {
	return &FT{BaseURL: DefaultFTURL, client: client}
}

// Price returns the price of the fund identified by id, "ISIN:CURRENCY", in
// the fund currency.
func (f *FT) Price(ctx context.Context, id string) (float64, error) {
	body, err := wget(ctx, f.client, f.BaseURL+id)
	if err != nil {
		return 0, fmt.Errorf("error retrieving %q: %w", id, err)
	}
	match := ftPrice.FindSubmatch(body)
	if match == nil {
		return 0, fmt.Errorf("no price found in the %q tearsheet", id)
	}
	val, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q for %q: %w", match[1], id, err)
	}
	return val, nil
}
