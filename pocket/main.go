package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/pocket/cmd"
	"github.com/etnz/pocket/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// values predicts the values of flags that take one of a few words.
var values = map[string]map[string]complete.Predictor{
	"add":     {"k": predict.Set{"expense", "income"}},
	"charge":  {"p": predict.Set{"monthly", "yearly"}},
	"summary": {"p": predict.Set{"day", "week", "month", "quarter", "year"}},
	"migrate": {"to": predict.Set{"jsonl", "sqlite"}, "path": predict.Files("*")},
}

// completion describes the commands of commander for shell completion.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"owner":  predict.Something,
		},
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(f)
		f.VisitAll(func(fl *flag.Flag) {
			if p, ok := values[c.Name()][fl.Name]; ok {
				sub.Flags[fl.Name] = p
				return
			}
			if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
				sub.Flags[fl.Name] = predict.Nothing
				return
			}
			sub.Flags[fl.Name] = predict.Something
		})
		if c.Name() == "topic" {
			if topics, err := docs.Topics(); err == nil {
				sub.Args = predict.Set(append(topics, "*"))
			}
		}
		root.Sub[c.Name()] = sub
	})
	return root
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, "pocket")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// exits when invoked by the shell to complete a command line.
	completion(commander).Complete("pocket")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
