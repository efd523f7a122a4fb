package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/google/subcommands"
)

type importCmd struct {
	columns rebalance.Columns
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace holdings and cash with an investment sheet export" }
func (*importCmd) Usage() string {
	return `rbl import [<file.csv>]

  Replaces every holding and cash balance with the ones of a spreadsheet CSV
  export, by default the -csv-file. Owners and the cash target are kept.

  Columns are 0 based, the default layout is A owner, C account, D ticker,
  E name, L value, N current weight and O target weight. Rows without a
  ticker, or with the CASH ticker, set the cash of their account.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	d := rebalance.DefaultColumns
	f.IntVar(&c.columns.Owner, "col-owner", d.Owner, "column of the owner code")
	f.IntVar(&c.columns.Account, "col-account", d.Account, "column of the account type")
	f.IntVar(&c.columns.Ticker, "col-ticker", d.Ticker, "column of the ticker")
	f.IntVar(&c.columns.Name, "col-name", d.Name, "column of the security name")
	f.IntVar(&c.columns.Value, "col-value", d.Value, "column of the current value")
	f.IntVar(&c.columns.Weight, "col-weight", d.Weight, "column of the current weight")
	f.IntVar(&c.columns.Target, "col-target", d.Target, "column of the target weight")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := csvFile
	if f.NArg() > 0 {
		path = f.Arg(0)
	}
	r, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", path, err)
		return subcommands.ExitFailure
	}
	defer r.Close()

	var holdings, balances int
	status := updateBook(ctx, func(b *rebalance.Book) error {
		if err := b.Import(r, rebalance.CSVOptions{Columns: c.columns}); err != nil {
			return err
		}
		holdings, balances = len(b.Holdings), len(b.Cash)
		return nil
	})
	if status == subcommands.ExitSuccess {
		fmt.Printf("Imported %d holdings and %d cash balances from %s\n", holdings, balances, path)
	}
	return status
}
