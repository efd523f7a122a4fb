package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/google/subcommands"
)

type tickerValueCmd struct{}

func (*tickerValueCmd) Name() string     { return "ticker-value" }
func (*tickerValueCmd) Synopsis() string { return "set the total value of a ticker across accounts" }
func (*tickerValueCmd) Usage() string {
	return `rbl ticker-value <ticker> <value>

  Sets the total value of a ticker held in several accounts. The value and
  quantity of each holding are scaled by the same ratio, so the split between
  accounts is kept. It is the way to update manually priced funds.
`
}

func (c *tickerValueCmd) SetFlags(f *flag.FlagSet) {}

func (c *tickerValueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected a ticker and a value")
		return subcommands.ExitUsageError
	}
	ticker := f.Arg(0)
	value, err := rebalance.ParseMoney(f.Arg(1), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.ScaleTicker(ticker, value) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Set total value of %s to %s\n", ticker, value.Decimal())
	}
	return status
}

type tickerTargetCmd struct{}

func (*tickerTargetCmd) Name() string     { return "ticker-target" }
func (*tickerTargetCmd) Synopsis() string { return "set the target weight of a ticker in every account" }
func (*tickerTargetCmd) Usage() string {
	return `rbl ticker-target <ticker> <percent>

  Sets the target weight of every holding of a ticker. Use update to taper a
  single account to 0.
`
}

func (c *tickerTargetCmd) SetFlags(f *flag.FlagSet) {}

func (c *tickerTargetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected a ticker and a percentage")
		return subcommands.ExitUsageError
	}
	ticker := f.Arg(0)
	p, err := strconv.ParseFloat(strings.TrimSuffix(f.Arg(1), "%"), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid percentage %q\n", f.Arg(1))
		return subcommands.ExitUsageError
	}
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.SetTickerTarget(ticker, rebalance.Percent(p)) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Set target weight of %s to %v\n", ticker, rebalance.Percent(p))
	}
	return status
}
