package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/server"
	"github.com/google/subcommands"
	"golang.org/x/time/rate"
)

type serveCmd struct {
	addr      string
	offline   bool
	rateLimit float64
	burst     int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard and the JSON API" }
func (*serveCmd) Usage() string {
	return `rbl serve [-addr :5000]

  Serves the rebalancing dashboard on / and the JSON API under /api to read
  and edit the portfolio. See 'rbl topic serve' for the routes.

Usage Examples:
$ rbl serve -addr localhost:8080
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":5000", "address to listen on")
	f.BoolVar(&c.offline, "offline", false, "disable the price refresh")
	f.Float64Var(&c.rateLimit, "rate", 10, "requests per second allowed on average")
	f.IntVar(&c.burst, "burst", 30, "requests allowed in a burst")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, done, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()

	var srv *server.Server
	if c.offline {
		srv = server.New(s, nil, csvFile, rebalance.CSVOptions{Currency: currency})
	} else {
		prices, err := priceService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading the price catalog: %v\n", err)
			return subcommands.ExitFailure
		}
		srv = server.New(s, prices, csvFile, rebalance.CSVOptions{Currency: currency})
	}
	if c.rateLimit > 0 {
		srv.SetRateLimit(rate.Limit(c.rateLimit), c.burst)
	}

	httpServer := &http.Server{
		Addr:              c.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdown); err != nil {
			log.Printf("warning, shutdown: %v", err)
		}
	}()

	log.Printf("serving the %s store on %s", storeKind, c.addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
