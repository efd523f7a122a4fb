package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// holdingFlags are the flags identifying and describing a holding.
type holdingFlags struct {
	owner, account, ticker string
	name, assetType        string
	quantity, price, value string
	cost                   string
	target                 float64
}

func (h *holdingFlags) setKeyFlags(f *flag.FlagSet) {
	f.StringVar(&h.owner, "owner", "", "owner code, like EF")
	f.StringVar(&h.account, "account", "", "account type, like SIPP or ISA")
	f.StringVar(&h.ticker, "ticker", "", "ticker of the security")
}

func (h *holdingFlags) setFlags(f *flag.FlagSet) {
	h.setKeyFlags(f)
	f.StringVar(&h.name, "name", "", "name of the security")
	f.StringVar(&h.assetType, "type", "EQ", "asset type: EQ, MA, FI or AA")
	f.StringVar(&h.quantity, "quantity", "1", "number of units held")
	f.StringVar(&h.price, "price", "", "last price of one unit")
	f.StringVar(&h.value, "value", "", "current value, when the price is unknown")
	f.StringVar(&h.cost, "cost", "", "amount originally paid")
	f.Float64Var(&h.target, "target", 0, "target weight in percent of the whole portfolio")
}

func (h *holdingFlags) key() rebalance.HoldingKey {
	return rebalance.HoldingKey{Owner: h.owner, Account: h.account, Ticker: h.ticker}
}

func (h *holdingFlags) checkKey() error {
	if h.owner == "" || h.account == "" || h.ticker == "" {
		return fmt.Errorf("-owner, -account and -ticker are required")
	}
	return nil
}

// parseAmount reads an optional amount, "" reads as zero.
func parseAmount(s string) (rebalance.Money, error) {
	if s == "" {
		return rebalance.Money{}, nil
	}
	return rebalance.ParseMoney(s, "")
}

func parseQuantity(s string) (rebalance.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return rebalance.Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return rebalance.Q(d), nil
}

type addCmd struct {
	holdingFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding to an account" }
func (*addCmd) Usage() string {
	return `rbl add -owner <code> -account <account> -ticker <ticker> [-name <name>] [-quantity <units>] (-price <price> | -value <value>) [-target <percent>]

  Adds a holding. Its value is quantity × price, when only -value is given
  the price is derived from it and the quantity is an estimate: the first
  price applied later recomputes the quantity and keeps the value.

Usage Examples:
$ rbl add -owner EF -account ISA -ticker VJPN -name "Vanguard Japan" -quantity 120 -price 41.5 -target 8
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.checkKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	h := rebalance.Holding{
		Owner:     c.owner,
		Account:   c.account,
		Ticker:    c.ticker,
		Name:      c.name,
		AssetType: c.assetType,
		Target:    rebalance.Percent(c.target),
	}
	var err error
	if h.Quantity, err = parseQuantity(c.quantity); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	for _, a := range []struct {
		dst *rebalance.Money
		src string
	}{{&h.LastPrice, c.price}, {&h.Value, c.value}, {&h.BookCost, c.cost}} {
		if *a.dst, err = parseAmount(a.src); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if h.BookCost.IsZero() {
		h.BookCost = h.LastPrice.Mul(h.Quantity).Max(h.Value)
	}

	status := updateBook(ctx, func(b *rebalance.Book) error { return b.AddHolding(h) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Added %s to %s %s\n", h.Ticker, h.Owner, h.Account)
	}
	return status
}

type updateCmd struct {
	holdingFlags
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "update a holding" }
func (*updateCmd) Usage() string {
	return `rbl update -owner <code> -account <account> -ticker <ticker> [-name <name>] [-type <type>] [-quantity <units>] [-price <price>] [-value <value>] [-cost <cost>] [-target <percent>]

  Updates the given fields of a holding, the others are left unchanged. The
  value is recomputed as quantity × price when either of them changes, except
  for an estimated quantity where a new price recomputes the quantity.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.checkKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var u rebalance.HoldingUpdate
	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "name":
			u.Name = &c.name
		case "type":
			u.AssetType = &c.assetType
		case "quantity":
			var q rebalance.Quantity
			q, err = parseQuantity(c.quantity)
			u.Quantity = &q
		case "price":
			var m rebalance.Money
			m, err = parseAmount(c.price)
			u.LastPrice = &m
		case "value":
			var m rebalance.Money
			m, err = parseAmount(c.value)
			u.Value = &m
		case "cost":
			var m rebalance.Money
			m, err = parseAmount(c.cost)
			u.BookCost = &m
		case "target":
			p := rebalance.Percent(c.target)
			u.Target = &p
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	status := updateBook(ctx, func(b *rebalance.Book) error { return b.UpdateHolding(c.key(), u) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Updated %s in %s %s\n", c.ticker, c.owner, c.account)
	}
	return status
}

type deleteCmd struct {
	holdingFlags
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a holding, its value goes to the account cash" }
func (*deleteCmd) Usage() string {
	return `rbl delete -owner <code> -account <account> -ticker <ticker>

  Deletes a holding as if it was sold: its value is credited to the cash of
  the account.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) { c.setKeyFlags(f) }

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.checkKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.DeleteHolding(c.key()) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Deleted %s from %s %s\n", c.ticker, c.owner, c.account)
	}
	return status
}
