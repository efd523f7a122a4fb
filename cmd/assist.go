package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with an AI advisor about the portfolio" }
func (*assistCmd) Usage() string {
	return `rbl assist [<question>...]

  Starts an interactive session with an AI advisor reading the portfolio.
  The arguments, if any, are asked first. Requires a Gemini API key in the
  GOOGLE_API_KEY environment variable.

Usage Examples:
$ rbl assist "what should I buy in my ISA?"
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}

	s, done, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer done()

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	a := agent.New(os.Stdout, os.Stdin, agent.NewAdvisor(s))
	a.Format = formatMarkdown
	if err := a.Run(ctx, client, prompts...); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
