package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// deposits collects repeated -deposit account=amount flags.
type deposits map[string]rebalance.Money

func (d deposits) String() string {
	var parts []string
	for _, acc := range rebalance.CashBalances(d).Accounts() {
		parts = append(parts, acc+"="+d[acc].Decimal().String())
	}
	return strings.Join(parts, ",")
}

func (d deposits) Set(s string) error {
	account, amount, ok := strings.Cut(s, "=")
	account = strings.TrimSpace(account)
	if !ok || account == "" {
		return fmt.Errorf("invalid deposit %q, want account=amount", s)
	}
	m, err := rebalance.ParseMoney(strings.TrimSpace(amount), "")
	if err != nil {
		return fmt.Errorf("invalid deposit amount %q: %w", amount, err)
	}
	d[account] = d[account].Add(m)
	return nil
}

// analyzeCmd holds the flags for the 'analyze' subcommand.
type analyzeCmd struct {
	deposits deposits
	json     bool
	raw      bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "compute the trades to rebalance the portfolio" }
func (*analyzeCmd) Usage() string {
	return `rbl analyze [-deposit <account>=<amount>]... [-json] [-raw]

  Compares every ticker to its target weight and lists the trades to execute
  in each account, sells first, and the cash each account still needs.

  -deposit simulates a deposit in a full account before the analysis, like
  -deposit "Ed Forrester ISA=20000". Nothing is saved.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	c.deposits = make(deposits)
	f.Var(c.deposits, "deposit", "simulate a deposit `account=amount` before the analysis, can be repeated")
	f.BoolVar(&c.json, "json", false, "print the analysis as JSON")
	f.BoolVar(&c.raw, "raw", false, "print raw markdown")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %q\n", f.Args())
		return subcommands.ExitUsageError
	}
	book, err := loadBook(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	snapshot := book.Snapshot()
	if len(c.deposits) > 0 {
		if snapshot, err = snapshot.WithDeposits(c.deposits); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying the deposits: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	report := snapshot.Report()

	switch {
	case c.json:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding the analysis: %v\n", err)
			return subcommands.ExitFailure
		}
	case c.raw:
		fmt.Print(renderer.RebalanceMarkdown(report.Result))
	default:
		printMarkdown(renderer.RebalanceMarkdown(report.Result))
	}
	return subcommands.ExitSuccess
}

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	raw bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the holdings and cash of every account" }
func (*holdingsCmd) Usage() string {
	return `rbl holdings [-raw]

  Displays the holdings grouped by account, with their current and target
  weights, and the cash of each account.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print raw markdown")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	book, err := loadBook(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	md := renderer.HoldingsMarkdown(book.Snapshot())
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
