package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	"github.com/etnz/pocket/renderer"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type chargeCmd struct {
	id       string
	name     string
	amount   string
	period   string
	anchor   string
	category string
	icon     string
	shared   bool
}

func (*chargeCmd) Name() string     { return "charge" }
func (*chargeCmd) Synopsis() string { return "declare or update a recurring charge" }
func (*chargeCmd) Usage() string {
	return `pocket charge -n <name> -a <amount> [-p monthly|yearly] [-anchor <date>] [-c <category>] [-i <icon>] [-id <id>] [-shared]

  Declares a recurring charge, like a rent or a subscription. Every due
  occurrence, starting with the anchor day, is recorded as an expense on
  synchronization.

  Using the id of an existing charge updates it but keeps track of the
  occurrences already recorded.
`
}

func (c *chargeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Identifier of the charge. Defaults to a new one.")
	f.StringVar(&c.name, "n", "", "Name of the charge (required)")
	f.StringVar(&c.amount, "a", "", "Amount of every occurrence (required)")
	f.StringVar(&c.period, "p", "monthly", "Period of the charge: monthly or yearly")
	f.StringVar(&c.anchor, "anchor", "0d", "Day of the first occurrence. See the user manual for supported date formats.")
	f.StringVar(&c.category, "c", "", "Category of the recorded expenses. Defaults to "+pocket.DefaultChargeCategory)
	f.StringVar(&c.icon, "i", "", "Icon of the recorded expenses")
	f.BoolVar(&c.shared, "shared", false, "Apply the charge to any owner signed in on this device")
}

func (c *chargeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -n and -a flags are required.")
		return subcommands.ExitUsageError
	}
	amount, err := pocket.ParseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	period, err := date.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}
	anchor, err := date.Parse(c.anchor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing anchor: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	charge := pocket.ScheduledCharge{
		ID:       c.id,
		Name:     c.name,
		Amount:   amount,
		Category: c.category,
		Icon:     c.icon,
		Period:   period,
		Anchor:   anchor,
	}
	if !c.shared {
		charge.OwnerID = s.owner
	}
	if charge.ID == "" {
		charge.ID = uuid.NewString()[:8]
	} else if old, err := s.charges.Get(ctx, charge.ID); err == nil {
		charge.LastMaterialized = old.LastMaterialized
	} else if !errors.Is(err, pocket.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error reading charge %q: %v\n", charge.ID, err)
		return subcommands.ExitFailure
	}

	if err := charge.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := s.charges.Put(ctx, charge); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving charge: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("✅ Charge %s: %s %s every %s from %s\n", charge.ID, charge.Name, renderer.Money(charge.Amount, s.cfg.Currency), period, anchor)
	return subcommands.ExitSuccess
}

type unchargeCmd struct{}

func (*unchargeCmd) Name() string     { return "uncharge" }
func (*unchargeCmd) Synopsis() string { return "stop recurring charges" }
func (*unchargeCmd) Usage() string {
	return `pocket uncharge <id>...

  Stops recurring charges. Expenses already recorded are kept.
`
}

func (*unchargeCmd) SetFlags(f *flag.FlagSet) {}

func (*unchargeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one charge id is required.")
		return subcommands.ExitUsageError
	}
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	status = subcommands.ExitSuccess
	for _, id := range f.Args() {
		c, err := s.charges.Get(ctx, id)
		if err == nil && !c.BelongsTo(s.owner) {
			err = pocket.ErrNotFound
		}
		if err == nil {
			err = s.charges.Delete(ctx, id)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot stop charge %q: %v\n", id, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("🗑 Stopped charge %s\n", id)
	}
	return status
}

type chargesCmd struct{}

func (*chargesCmd) Name() string     { return "charges" }
func (*chargesCmd) Synopsis() string { return "list the recurring charges" }
func (*chargesCmd) Usage() string {
	return `pocket charges

  Lists the recurring charges of the owner, with their next occurrence.
`
}

func (*chargesCmd) SetFlags(f *flag.FlagSet) {}

func (*chargesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	charges, err := s.charges.ListAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing charges: %v\n", err)
		return subcommands.ExitFailure
	}
	charges = slices.DeleteFunc(charges, func(c pocket.ScheduledCharge) bool { return !c.BelongsTo(s.owner) })
	printMarkdown(renderer.ChargesMarkdown(charges, s.cfg.Currency, date.Of(s.now())))
	return subcommands.ExitSuccess
}
