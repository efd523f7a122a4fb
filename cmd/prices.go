package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

type pricesCmd struct {
	apply bool
	raw   bool
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "fetch the latest prices of the holdings" }
func (*pricesCmd) Usage() string {
	return `rbl prices [-apply] [<ticker>...]

  Fetches the latest price of the tickers held, or of the given tickers, from
  Yahoo Finance or FT Markets. Tickers without a source are priced manually.

  With -apply the prices update the value of every holding of the ticker.

Usage Examples:
$ rbl prices
$ rbl prices -apply VJPN
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.apply, "apply", false, "update the holdings with the fetched prices")
	f.BoolVar(&c.raw, "raw", false, "print the markdown source instead of rendering it")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := priceService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading the price catalog: %v\n", err)
		return subcommands.ExitFailure
	}
	tickers := f.Args()
	if len(tickers) == 0 {
		b, err := loadBook(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading the portfolio: %v\n", err)
			return subcommands.ExitFailure
		}
		tickers = b.Tickers()
	}

	quotes, err := svc.Quotes(ctx, tickers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}
	report := renderer.PricesMarkdown(svc.Catalog, tickers, quotes)
	if c.raw {
		fmt.Println(report)
	} else {
		printMarkdown(report)
	}
	if !c.apply || len(quotes) == 0 {
		return subcommands.ExitSuccess
	}

	prices := make(map[string]rebalance.Money, len(quotes))
	for _, q := range quotes {
		prices[q.Ticker] = q.Price
	}
	var updated []string
	status := updateBook(ctx, func(b *rebalance.Book) (err error) {
		updated, err = b.ApplyPrices(prices)
		return err
	})
	if status == subcommands.ExitSuccess {
		fmt.Printf("Updated %d tickers: %s\n", len(updated), strings.Join(updated, ", "))
	}
	return status
}

type sourcesCmd struct {
	raw bool
}

func (*sourcesCmd) Name() string     { return "sources" }
func (*sourcesCmd) Synopsis() string { return "list where the price of each ticker comes from" }
func (*sourcesCmd) Usage() string {
	return `rbl sources

  Lists the price source of every ticker held, and the page to check the
  price by hand. Without holdings, the tickers of the catalog are listed.
`
}

func (c *sourcesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print the markdown source instead of rendering it")
}

func (c *sourcesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := priceService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading the price catalog: %v\n", err)
		return subcommands.ExitFailure
	}
	b, err := loadBook(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	tickers := b.Tickers()
	if len(tickers) == 0 {
		tickers = svc.Catalog.Tickers()
	}
	report := renderer.PricesMarkdown(svc.Catalog, tickers, nil)
	if c.raw {
		fmt.Println(report)
	} else {
		printMarkdown(report)
	}
	return subcommands.ExitSuccess
}
