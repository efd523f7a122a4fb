// Package cmd implements the rbl command line application to keep a
// portfolio close to its target allocation.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/price"
	"github.com/etnz/rebalance/store"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

// Environment variables providing the default value of the global flags.
const (
	EnvDataFile    = "REBALANCE_DATA_FILE"
	EnvStore       = "REBALANCE_STORE"
	EnvSQLiteFile  = "REBALANCE_SQLITE_FILE"
	EnvCSVFile     = "REBALANCE_CSV_FILE"
	EnvCatalogFile = "REBALANCE_CATALOG_FILE"
	EnvCurrency    = "REBALANCE_CURRENCY"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	dataFile    string
	storeKind   string
	sqliteFile  string
	csvFile     string
	catalogFile string
	currency    string
)

// commands lists every subcommand by group, in help order.
var commands = []struct {
	group    string
	commands []subcommands.Command
}{
	{"analysis", []subcommands.Command{&analyzeCmd{}, &holdingsCmd{}}},
	{"book", []subcommands.Command{
		&addCmd{}, &updateCmd{}, &deleteCmd{},
		&cashCmd{}, &cashTargetCmd{}, &ownerCmd{},
		&tickerValueCmd{}, &tickerTargetCmd{},
		&importCmd{},
	}},
	{"prices", []subcommands.Command{&pricesCmd{}, &sourcesCmd{}}},
	{"tools", []subcommands.Command{&serveCmd{}, &assistCmd{}, &topicCmd{}}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range commands {
		for _, cmd := range g.commands {
			c.Register(cmd, g.group)
		}
	}
}

// Configure loads the .env file of the working directory, if any, and
// registers the global flags on flag.CommandLine. Their defaults come from
// the environment.
func Configure() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning, cannot load .env file: %v", err)
	}
	flag.StringVar(&dataFile, "data-file", env(EnvDataFile, "portfolio_data.json"), "Path to the portfolio JSON document, with the file store")
	flag.StringVar(&storeKind, "store", env(EnvStore, store.KindFile), "Storage of the portfolio: file or sqlite")
	flag.StringVar(&sqliteFile, "sqlite-file", env(EnvSQLiteFile, "portfolio.db"), "Path to the portfolio database, with the sqlite store")
	flag.StringVar(&csvFile, "csv-file", env(EnvCSVFile, "Investments - Sheet4.csv"), "Path to the investment spreadsheet export to import")
	flag.StringVar(&catalogFile, "catalog-file", env(EnvCatalogFile, ""), "Path to a JSON file overriding the built in price sources")
	flag.StringVar(&currency, "currency", env(EnvCurrency, rebalance.DefaultCurrency), "Currency of the portfolio")
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// openStore opens the configured store. done must be called once the store is no longer used.
func openStore() (s store.Store, done func(), err error) {
	path := dataFile
	if storeKind == store.KindSQLite {
		path = sqliteFile
	}
	s, err = store.Open(storeKind, path)
	if err != nil {
		return nil, nil, err
	}
	done = func() {}
	if db, ok := s.(*store.SQLite); ok {
		done = func() {
			if err := db.Close(); err != nil {
				log.Printf("warning, cannot close %s: %v", path, err)
			}
		}
	}
	return s, done, nil
}

// loadBook loads the book from the configured store.
func loadBook(ctx context.Context) (*rebalance.Book, error) {
	s, done, err := openStore()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.Load(ctx)
}

// updateBook applies fn to the book of the configured store and saves it.
// Errors are reported on stderr.
func updateBook(ctx context.Context, fn func(*rebalance.Book) error) subcommands.ExitStatus {
	s, done, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()
	if _, err := store.Update(ctx, s, func(b *rebalance.Book) error {
		// a new book adopts the configured currency.
		if len(b.Holdings) == 0 && len(b.Cash) == 0 && currency != "" {
			b.Currency = currency
		}
		return fn(b)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error updating the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// priceService returns a price service on the configured catalog.
func priceService() (*price.Service, error) {
	catalog, err := price.LoadCatalog(catalogFile)
	if err != nil {
		return nil, err
	}
	return price.NewService(catalog, currency, nil), nil
}
