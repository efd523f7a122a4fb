// Package server serves the rebalancing analysis of a book, and the API to
// edit it, over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/price"
	"github.com/etnz/rebalance/renderer"
	"github.com/etnz/rebalance/store"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/time/rate"
)

// errBadRequest marks errors caused by the request content.
var errBadRequest = errors.New("bad request")

// Server answers the dashboard and the JSON API.
type Server struct {
	store   store.Store
	prices  *price.Service
	csv     string
	options rebalance.CSVOptions
	router  *mux.Router
	limiter *rate.Limiter

	// mu serializes every load-modify-save of the store.
	mu sync.Mutex
}

// New returns a server on top of s. prices refreshes the holdings last
// prices, and csvFile is the spreadsheet export reimported on demand. Both
// are optional.
func New(s store.Store, prices *price.Service, csvFile string, options rebalance.CSVOptions) *Server {
	server := &Server{
		store:   s,
		prices:  prices,
		csv:     csvFile,
		options: options,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 30),
	}

	r := mux.NewRouter()
	r.Use(server.logRequests, server.limitRate)

	r.HandleFunc("/", server.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/health", server.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolio", server.handlePortfolio).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolio-with-deposits", server.handlePortfolioWithDeposits).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/update", server.handleUpdateHolding).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/add", server.handleAddHolding).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/delete", server.handleDeleteHolding).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/update-ticker-value", server.handleUpdateTickerValue).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/update-ticker-target", server.handleUpdateTickerTarget).Methods(http.MethodPost)
	r.HandleFunc("/api/cash/update", server.handleUpdateCash).Methods(http.MethodPost)
	r.HandleFunc("/api/cash-target/update", server.handleUpdateCashTarget).Methods(http.MethodPost)
	r.HandleFunc("/api/import-csv", server.handleImportCSV).Methods(http.MethodPost)
	r.HandleFunc("/api/prices/refresh", server.handleRefreshPrices).Methods(http.MethodPost)
	r.HandleFunc("/api/prices/sources", server.handlePriceSources).Methods(http.MethodGet)

	server.router = r
	return server
}

// SetRateLimit replaces the inbound rate limit: r requests per second with
// bursts of burst requests.
func (s *Server) SetRateLimit(r rate.Limit, burst int) {
	s.limiter = rate.NewLimiter(r, burst)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// load returns the current book.
func (s *Server) load(ctx context.Context) (*rebalance.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// update applies fn to the book and saves it, one update at a time.
func (s *Server) update(ctx context.Context, fn func(*rebalance.Book) error) (*rebalance.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Update(ctx, s.store, fn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b, err := s.load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot := b.Snapshot()
	report := renderer.RebalanceMarkdown(snapshot.Analyze()) + "\n" + renderer.HoldingsMarkdown(snapshot)

	var body bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(extension.GFM)).Convert([]byte(report), &body); err != nil {
		writeError(w, fmt.Errorf("render dashboard: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, dashboardHeader)
	w.Write(body.Bytes())
	fmt.Fprint(w, dashboardFooter)
}

const dashboardHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Portfolio Rebalancing</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 72em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: .3em .6em; }
</style>
</head>
<body>
`

const dashboardFooter = `</body>
</html>
`

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	b, err := s.load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot().Report())
}

func (s *Server) handlePortfolioWithDeposits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Deposits map[string]rebalance.Money `json:"deposits"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := b.Snapshot().WithDeposits(req.Deposits)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Report())
}

func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		rebalance.HoldingKey
		Updates rebalance.HoldingUpdate `json:"updates"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.UpdateHolding(req.HoldingKey, req.Updates)
	})
}

func (s *Server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	var h rebalance.Holding
	if err := decode(r, &h); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.AddHolding(h)
	})
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	var key rebalance.HoldingKey
	if err := decode(r, &key); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.DeleteHolding(key)
	})
}

func (s *Server) handleUpdateCash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string          `json:"account"`
		Amount  rebalance.Money `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.SetCash(req.Account, req.Amount)
	})
}

func (s *Server) handleUpdateCashTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target *rebalance.Percent `json:"target_percentage"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Target == nil {
		writeError(w, fmt.Errorf("%w: target_percentage is required", errBadRequest))
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.SetCashTarget(*req.Target)
	})
}

func (s *Server) handleUpdateTickerValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string           `json:"ticker"`
		Value  *rebalance.Money `json:"new_value"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Value == nil {
		writeError(w, fmt.Errorf("%w: new_value is required", errBadRequest))
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.ScaleTicker(req.Ticker, *req.Value)
	})
}

func (s *Server) handleUpdateTickerTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string             `json:"ticker"`
		Target *rebalance.Percent `json:"new_target"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Target == nil {
		writeError(w, fmt.Errorf("%w: new_target is required", errBadRequest))
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.SetTickerTarget(req.Ticker, *req.Target)
	})
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if s.csv == "" {
		writeError(w, fmt.Errorf("%w: no csv file configured", errBadRequest))
		return
	}
	data, err := os.ReadFile(s.csv)
	if err != nil {
		writeError(w, fmt.Errorf("read csv file: %w", err))
		return
	}
	s.respond(w, r, func(b *rebalance.Book) error {
		return b.Import(bytes.NewReader(data), s.options)
	})
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		writeError(w, fmt.Errorf("%w: price refresh is disabled", errBadRequest))
		return
	}
	b, err := s.load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	prices, err := s.prices.Prices(r.Context(), b.Tickers())
	if err != nil {
		writeError(w, err)
		return
	}
	var updated []string
	if _, err := s.update(r.Context(), func(b *rebalance.Book) (err error) {
		updated, err = b.ApplyPrices(prices)
		return err
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
		"prices":  prices,
	})
}

// priceSource is where the price of a ticker comes from.
type priceSource struct {
	Ticker string `json:"ticker"`
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
	Manual bool   `json:"manual"`
}

func (s *Server) handlePriceSources(w http.ResponseWriter, r *http.Request) {
	b, err := s.load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	catalog := price.DefaultCatalog()
	if s.prices != nil {
		catalog = s.prices.Catalog
	}
	sources := []priceSource{}
	for _, ticker := range b.Tickers() {
		sources = append(sources, priceSource{
			Ticker: ticker,
			Source: catalog.Source(ticker),
			URL:    catalog.URL(ticker),
			Manual: !catalog.Priceable(ticker),
		})
	}
	writeJSON(w, http.StatusOK, sources)
}

// respond applies fn to the stored book and answers {"success": true}.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn func(*rebalance.Book) error) {
	if _, err := s.update(r.Context(), fn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", errBadRequest, err)
	}
	return nil
}

// statusOf maps an error to the HTTP status it is answered with.
func statusOf(err error) int {
	switch {
	case errors.Is(err, rebalance.ErrHoldingNotFound), errors.Is(err, rebalance.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, rebalance.ErrInvalidHolding),
		errors.Is(err, rebalance.ErrDuplicateHolding),
		errors.Is(err, rebalance.ErrZeroValue),
		errors.Is(err, rebalance.ErrInvalidPercent),
		errors.Is(err, rebalance.ErrMissingAccount),
		errors.Is(err, rebalance.ErrNegativeCash),
		errors.Is(err, rebalance.ErrCurrencyMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%v %v %v %v", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) limitRate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			log.Printf("rate limit exceeded: %v %v", r.Method, r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": http.StatusText(http.StatusTooManyRequests)})
			return
		}
		next.ServeHTTP(w, r)
	})
}
