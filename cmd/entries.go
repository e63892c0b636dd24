package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	"github.com/etnz/pocket/renderer"
	"github.com/google/subcommands"
)

type addCmd struct {
	name     string
	amount   string
	kind     string
	category string
	icon     string
	date     string
	offline  bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an expense or an income" }
func (*addCmd) Usage() string {
	return `pocket add -n <name> -a <amount> [-k expense|income] [-c <category>] [-i <icon>] [-d <date>]

  Records a new entry in the local ledger. It is pushed to the remote store
  right away when it is reachable, and on the next synchronization otherwise.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Name of the entry (required)")
	f.StringVar(&c.amount, "a", "", "Amount, a non negative decimal (required)")
	f.StringVar(&c.kind, "k", "expense", "Kind of entry: expense or income")
	f.StringVar(&c.category, "c", "", "Category")
	f.StringVar(&c.icon, "i", "", "Icon")
	f.StringVar(&c.date, "d", "0d", "Day of the entry. See the user manual for supported date formats.")
	f.BoolVar(&c.offline, "offline", false, "Do not try to push the entry now")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -n and -a flags are required.")
		return subcommands.ExitUsageError
	}
	amount, err := pocket.ParseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	kind, err := pocket.ParseKind(c.kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing kind: %v\n", err)
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	now := s.now()
	timestamp := now
	if on != date.Of(now) {
		timestamp = on.In(s.loc)
	}
	e, err := s.engine.Record(ctx, pocket.Entry{
		OwnerID:   s.owner,
		Name:      c.name,
		Amount:    amount,
		Kind:      kind,
		Category:  c.category,
		Icon:      c.icon,
		Timestamp: timestamp,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording entry: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("✅ %s\n", renderer.Entry(e, s.cfg.Currency))

	if !c.offline {
		if err := s.engine.SynchronizeCreatesOnly(ctx, s.owner, s.online(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "Error pushing entries: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete entries" }
func (*rmCmd) Usage() string {
	return `pocket rm <id>...

  Deletes entries by id. An entry not yet pushed is deleted right away,
  others are deleted from the remote store on the next synchronization.
`
}

func (*rmCmd) SetFlags(f *flag.FlagSet) {}

func (*rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one entry id is required.")
		return subcommands.ExitUsageError
	}
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	status = subcommands.ExitSuccess
	for _, id := range f.Args() {
		if err := s.engine.Remove(ctx, s.owner, id); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("🗑 Deleted entry %s\n", id)
	}
	return status
}

type lsCmd struct{}

func (*lsCmd) Name() string     { return "ls" }
func (*lsCmd) Synopsis() string { return "list the entries of the local ledger" }
func (*lsCmd) Usage() string {
	return `pocket ls

  Lists the entries of the local ledger, most recent first. Entries waiting
  for the next synchronization are marked.
`
}

func (*lsCmd) SetFlags(f *flag.FlagSet) {}

func (*lsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	entries, err := s.engine.Entries(ctx, s.owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing entries: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.EntriesMarkdown(s.owner, entries, s.cfg.Currency, s.loc))
	return subcommands.ExitSuccess
}

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	period string
	date   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the totals of a period" }
func (*summaryCmd) Usage() string {
	return `pocket summary [-p <period>] [-d <date>]

  Displays the incomes, expenses and balance of the period containing the date.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "month", "Period of the summary (day, week, month, quarter, year).")
	f.StringVar(&c.date, "d", "0d", "A day of the period. See the user manual for supported date formats.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := date.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	summary, err := s.engine.Summary(ctx, s.owner, period.Range(on))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing summary: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.SummaryMarkdown(summary, s.cfg.Currency, s.loc))
	return subcommands.ExitSuccess
}
