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

type cashCmd struct{}

func (*cashCmd) Name() string     { return "cash" }
func (*cashCmd) Synopsis() string { return "list or set the cash balance of accounts" }
func (*cashCmd) Usage() string {
	return `rbl cash [<full account> <amount>]

  Without arguments, lists the cash balance of every account. Otherwise sets
  the cash balance of a full account, that is the owner name followed by the
  account type.

Usage Examples:
$ rbl cash "Ed Forrester ISA" 2500
`
}

func (c *cashCmd) SetFlags(f *flag.FlagSet) {}

func (c *cashCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch f.NArg() {
	case 0:
		book, err := loadBook(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading the portfolio: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, acc := range book.Cash.Accounts() {
			fmt.Printf("%s: %v\n", acc, book.Cash[acc])
		}
		return subcommands.ExitSuccess
	case 2:
	default:
		fmt.Fprintln(os.Stderr, "Error: expected a full account and an amount")
		return subcommands.ExitUsageError
	}

	account := f.Arg(0)
	amount, err := rebalance.ParseMoney(f.Arg(1), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.SetCash(account, amount) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Set cash of %s to %s\n", account, amount.Decimal())
	}
	return status
}

type cashTargetCmd struct{}

func (*cashTargetCmd) Name() string     { return "cash-target" }
func (*cashTargetCmd) Synopsis() string { return "set the portfolio cash target percentage" }
func (*cashTargetCmd) Usage() string {
	return `rbl cash-target <percent>

  Sets the share of the whole portfolio to keep in cash. It is reported with
  the analysis, target weights of the holdings are not changed.
`
}

func (c *cashTargetCmd) SetFlags(f *flag.FlagSet) {}

func (c *cashTargetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a percentage")
		return subcommands.ExitUsageError
	}
	p, err := strconv.ParseFloat(strings.TrimSuffix(f.Arg(0), "%"), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid percentage %q\n", f.Arg(0))
		return subcommands.ExitUsageError
	}
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.SetCashTarget(rebalance.Percent(p)) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Set cash target to %v\n", rebalance.Percent(p))
	}
	return status
}

type ownerCmd struct{}

func (*ownerCmd) Name() string     { return "owner" }
func (*ownerCmd) Synopsis() string { return "name an owner code" }
func (*ownerCmd) Usage() string {
	return `rbl owner <code> <name>

  Sets the display name of an owner code. Full accounts are named after it,
  like "Ed Forrester ISA", and their cash balances are renamed accordingly.

Usage Examples:
$ rbl owner EF "Ed Forrester"
`
}

func (c *ownerCmd) SetFlags(f *flag.FlagSet) {}

func (c *ownerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: expected an owner code and a name")
		return subcommands.ExitUsageError
	}
	code, name := f.Arg(0), strings.Join(f.Args()[1:], " ")
	status := updateBook(ctx, func(b *rebalance.Book) error { return b.SetOwner(code, name) })
	if status == subcommands.ExitSuccess {
		fmt.Printf("Owner %s is %s\n", code, name)
	}
	return status
}
