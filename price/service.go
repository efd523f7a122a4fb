// Package price fetches live prices of portfolio tickers.
//
// LSE listed ETFs and investment trusts are priced from the Yahoo Finance
// chart API, OTC funds from FT Markets tearsheets. A Catalog tells which
// source, and which identifier, prices each ticker.
package price

import (
	"context"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/etnz/rebalance"
	"github.com/patrickmn/go-cache"
)

// quoteTTL is how long a fetched price is reused.
const quoteTTL = 15 * time.Minute

// Quote is a fetched price.
type Quote struct {
	Ticker string
	Price  rebalance.Money
	Source string
}

// Service prices tickers from their catalog source and caches the quotes.
type Service struct {
	Catalog  *Catalog
	Currency string
	yahoo    *Yahoo
	ft       *FT
	cache    *cache.Cache
}

// NewService returns a service pricing in currency the tickers of catalog,
// using client for every request.
func NewService(catalog *Catalog, currency string, client *http.Client) *Service {
	if client == nil {
		client = NewClient()
	}
	return &Service{
		Catalog:  catalog,
		Currency: currency,
		yahoo:    NewYahoo(client),
		ft:       NewFT(client),
		cache:    cache.New(quoteTTL, 2*quoteTTL),
	}
}

// SetBaseURLs points the service to other Yahoo and FT endpoints, empty
// values keep the current ones.
func (s *Service) SetBaseURLs(yahoo, ft string) {
	if yahoo != "" {
		s.yahoo.BaseURL = yahoo
	}
	if ft != "" {
		s.ft.BaseURL = ft
	}
}

// Quotes returns the prices of the priceable tickers, in the order of
// tickers. Tickers that fail are logged and left out: the result is partial
// rather than an error. An error is only returned when ctx is done.
func (s *Service) Quotes(ctx context.Context, tickers []string) ([]Quote, error) {
	var quotes []Quote
	var seen []string
	for _, ticker := range tickers {
		if slices.Contains(seen, ticker) {
			continue
		}
		seen = append(seen, ticker)

		if err := ctx.Err(); err != nil {
			return quotes, err
		}
		if cached, ok := s.cache.Get(ticker); ok {
			quotes = append(quotes, cached.(Quote))
			continue
		}
		q, err := s.fetch(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return quotes, ctx.Err()
			}
			log.Printf("warning, cannot price %s: %v", ticker, err)
			continue
		}
		if q.Source == "" {
			continue
		}
		s.cache.SetDefault(ticker, q)
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Prices returns the prices of tickers by ticker, see Quotes.
func (s *Service) Prices(ctx context.Context, tickers []string) (map[string]rebalance.Money, error) {
	quotes, err := s.Quotes(ctx, tickers)
	prices := make(map[string]rebalance.Money, len(quotes))
	for _, q := range quotes {
		prices[q.Ticker] = q.Price
	}
	return prices, err
}

// fetch prices ticker from its catalog source. A ticker without a source
// returns a Quote without Source.
func (s *Service) fetch(ctx context.Context, ticker string) (Quote, error) {
	q := Quote{Ticker: ticker}
	if sym, ok := s.Catalog.Yahoo[ticker]; ok {
		val, err := s.yahoo.Close(ctx, sym)
		if err != nil {
			return q, err
		}
		q.Price = rebalance.M(val, s.Currency)
		if !s.Catalog.InPounds(sym) {
			q.Price = q.Price.Div(rebalance.Q(100))
		}
		q.Source = SourceYahoo
		return q, nil
	}
	if id, ok := s.Catalog.FT[ticker]; ok {
		val, err := s.ft.Price(ctx, id)
		if err != nil {
			return q, err
		}
		q.Price = rebalance.M(val, s.Currency)
		q.Source = SourceFT
		return q, nil
	}
	return q, nil
}
