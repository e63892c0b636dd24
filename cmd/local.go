package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/docs"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	to   string
	path string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "copy the local ledger to another local driver" }
func (*migrateCmd) Usage() string {
	return `pocket migrate -to jsonl|sqlite -path <path>

  Copies every entry, pending changes included, and every recurring charge of
  the local ledger to a new local store. The destination must be empty. The
  configuration is left untouched: point local.driver and local.path to the
  new store afterwards.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "Driver of the destination: jsonl or sqlite (required)")
	f.StringVar(&c.path, "path", "", "Path of the destination (required)")
}

func (c *migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" || c.path == "" {
		fmt.Fprintln(os.Stderr, "Error: -to and -path flags are required.")
		return subcommands.ExitUsageError
	}
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if filepath.Clean(c.path) == filepath.Clean(s.cfg.Local.Path) {
		fmt.Fprintln(os.Stderr, "Error: the destination must differ from local.path.")
		return subcommands.ExitUsageError
	}

	local, charges, closer, err := openLocal(c.to, c.path, s.cfg.Database.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the destination: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()

	n, m, err := migrate(ctx, s.local, s.charges, local, charges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("✅ Copied %d entries and %d charges to %s\n", n, m, c.path)
	return subcommands.ExitSuccess
}

// migrate copies the entries and charges of a local ledger into an empty one.
func migrate(ctx context.Context, fromLocal pocket.LocalStore, fromCharges pocket.ChargeRegistry, toLocal pocket.LocalStore, toCharges pocket.ChargeRegistry) (entries, charges int, err error) {
	existing, err := toLocal.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	existingCharges, err := toCharges.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(existing) > 0 || len(existingCharges) > 0 {
		return 0, 0, fmt.Errorf("destination is not empty: %d entries, %d charges", len(existing), len(existingCharges))
	}

	all, err := fromLocal.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range all {
		if err := toLocal.Put(ctx, e); err != nil {
			return entries, charges, err
		}
		entries++
	}
	list, err := fromCharges.ListAll(ctx)
	if err != nil {
		return entries, charges, err
	}
	for _, c := range list {
		if err := toCharges.Put(ctx, c); err != nil {
			return entries, charges, err
		}
		charges++
	}
	return entries, charges, nil
}

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the user manual" }
func (*topicCmd) Usage() string {
	return `pocket topic [<topic>...]

  Displays topics of the user manual, the list of topics without argument.
  '*' displays every topic.
`
}

func (*topicCmd) SetFlags(f *flag.FlagSet) {}

func (*topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		printMarkdown(docs.Readme())
		return subcommands.ExitSuccess
	}
	for _, topic := range f.Args() {
		content, err := docs.Topic(topic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		printMarkdown(content)
	}
	return subcommands.ExitSuccess
}
