package price

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/time/rate"
)

// DefaultYahooURL is the base of the Yahoo Finance chart API.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

/*
	{
	    "chart": {
	        "result": [
	            {
	                "meta": {"currency": "GBp", "symbol": "SGLN.L", ...},
	                "timestamp": [1717398000, ...],
	                "indicators": {
	                    "quote": [
	                        {"close": [3512.5, null, 3530.0], ...}
	                    ]
	                }
	            }
	        ],
	        "error": null
	    }
	}
*/

// closePath locates the daily closes in a chart response.
const closePath = "$.chart.result[0].indicators.quote[0].close"

// Yahoo reads the last close of a symbol from the Yahoo Finance chart API.
//
// Yahoo throttles cloud IPs aggressively, requests are paced by a limiter:
// bursts of 4, then one every 500ms.
type Yahoo struct {
	BaseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewYahoo returns a Yahoo fetcher using client.
func NewYahoo(client *http.Client) *Yahoo {
	return &Yahoo{
		BaseURL: DefaultYahooURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
	}
}

// chartURL returns the 5 days daily chart address of symbol.
func (y *Yahoo) chartURL(symbol string) string {
	return y.BaseURL + url.PathEscape(symbol) + "?range=5d&interval=1d"
}

// Close returns the last non null daily close of symbol over the past 5
// days, in the symbol's quote currency.
func (y *Yahoo) Close(ctx context.Context, symbol string) (float64, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	var jobj any
	if err := jwget(ctx, y.client, y.chartURL(symbol), &jobj); err != nil {
		return 0, fmt.Errorf("error retrieving %q: %w", symbol, err)
	}
	jval, err := jsonpath.Get(closePath, jobj)
	if err != nil {
		return 0, fmt.Errorf("error parsing %q: %q %w", symbol, closePath, err)
	}
	closes, ok := jval.([]any)
	if !ok {
		return 0, fmt.Errorf("error parsing %q: %q is not a list: %v", symbol, closePath, jval)
	}
	// closes are null on days without trades.
	for i := len(closes) - 1; i >= 0; i-- {
		if val, ok := closes[i].(float64); ok {
			return val, nil
		}
	}
	return 0, fmt.Errorf("no close for %q in the last 5 days", symbol)
}
