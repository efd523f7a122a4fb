package cmd

import (
	"flag"
	"strings"

	"github.com/etnz/rebalance/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of rbl, built from the flags of
// every subcommand.
//
// Install it with COMP_INSTALL=1 rbl.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(flag.CommandLine),
	}
	for _, g := range commands {
		for _, c := range g.commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			root.Sub[c.Name()] = &complete.Command{Flags: predictFlags(fs)}
		}
	}
	root.Sub["help"] = &complete.Command{Args: predict.Set(subcommandNames())}

	topics := append(docs.Topics(), docs.Commands()...)
	root.Sub["topic"].Args = predict.Set(append(topics, "*"))
	root.Sub["import"].Args = predict.Files("*.csv")
	return root
}

// predictFlags predicts files for the *-file flags and nothing after a boolean flag.
func predictFlags(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		switch {
		case isBool(f):
			flags[f.Name] = predict.Nothing
		case strings.HasSuffix(f.Name, "-file"):
			flags[f.Name] = predict.Files("*")
		default:
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func subcommandNames() []string {
	var names []string
	for _, g := range commands {
		for _, c := range g.commands {
			names = append(names, c.Name())
		}
	}
	return names
}
