package renderer

import (
	"bytes"
	"slices"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/price"
	md "github.com/nao1215/markdown"
)

// HoldingsMarkdown renders the holdings of a snapshot grouped by account,
// with their current and target weights.
func HoldingsMarkdown(s *rebalance.Snapshot) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Holdings")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Total Value"), md.Bold(s.Total.String())},
		Rows: [][]string{
			{"Invested", s.Invested().String()},
			{"Cash", s.Cash.Total().In(s.Total.Currency()).String()},
			{"Cash Target", s.CashTarget.String()},
		},
	})

	var accounts []string
	byAccount := make(map[string][]rebalance.Holding)
	for _, h := range s.Holdings {
		acc := h.FullAccount()
		if _, ok := byAccount[acc]; !ok {
			accounts = append(accounts, acc)
		}
		byAccount[acc] = append(byAccount[acc], h)
	}
	for acc := range s.Cash {
		if _, ok := byAccount[acc]; !ok {
			accounts = append(accounts, acc)
			byAccount[acc] = nil
		}
	}
	slices.Sort(accounts)

	for _, acc := range accounts {
		doc.H2(acc)
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft, md.AlignLeft,
				md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight,
			},
			Header: []string{"Ticker", "Name", "Quantity", "Last Price", "Value", "Weight", "Target"},
		}
		for _, h := range byAccount[acc] {
			table.Rows = append(table.Rows, []string{
				h.Ticker,
				h.Name,
				h.Quantity.String(),
				h.LastPrice.String(),
				h.Value.String(),
				h.Weight.String(),
				h.Target.String(),
			})
		}
		if cash, ok := s.Cash[acc]; ok {
			table.Rows = append(table.Rows, []string{
				"CASH", "Cash", "", "", cash.String(), rebalance.PercentOf(cash, s.Total).String(), "",
			})
		}
		doc.Table(table)
	}
	return doc.String()
}

// PricesMarkdown renders where the price of each ticker comes from and, when
// fetched, its price.
func PricesMarkdown(c *price.Catalog, tickers []string, quotes []price.Quote) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	prices := make(map[string]rebalance.Money, len(quotes))
	for _, q := range quotes {
		prices[q.Ticker] = q.Price
	}

	doc.H1("Price Sources")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"Ticker", "Source", "Price", "Check at"},
	}
	var manual int
	for _, ticker := range tickers {
		source := c.Source(ticker)
		if source == "" {
			source = "manual"
			manual++
		}
		var p string
		if m, ok := prices[ticker]; ok {
			p = m.String()
		}
		table.Rows = append(table.Rows, []string{ticker, source, p, c.URL(ticker)})
	}
	doc.Table(table)
	if manual > 0 {
		doc.PlainText("")
		doc.PlainText(md.Bold("Manual prices") + " must be updated with `rbl update` or `rbl ticker-value`.")
	}
	return doc.String()
}
