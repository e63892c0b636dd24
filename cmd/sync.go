package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/pocket"
	"github.com/google/subcommands"
)

type syncCmd struct {
	createsOnly bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "reconcile the local ledger with the remote store" }
func (*syncCmd) Usage() string {
	return `pocket sync [-creates-only]

  Pushes local deletions and creations to the remote store, replaces the local
  copy with the remote one, and records the due occurrences of recurring
  charges. Does nothing when the remote store is unreachable.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.createsOnly, "creates-only", false, "Only push the entries created locally")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	online := s.online(ctx)
	if !online {
		fmt.Fprintf(os.Stderr, "Remote store %s is unreachable, changes stay local.\n", s.cfg.Remote.URL)
	}

	var err error
	if c.createsOnly {
		err = s.engine.SynchronizeCreatesOnly(ctx, s.owner, online)
	} else {
		err = s.engine.Reconcile(ctx, s.owner, online)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error synchronizing: %v\n", err)
		return subcommands.ExitFailure
	}
	if online {
		fmt.Println("✅ Synchronized")
	}
	return subcommands.ExitSuccess
}

type watchCmd struct{}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "keep the local ledger synchronized until interrupted" }
func (*watchCmd) Usage() string {
	return `pocket watch

  Watches the reachability of the remote store and reconciles the local ledger
  every time it comes back online, and every sync.interval while online.
  SIGHUP requests an immediate reconciliation.
`
}

func (*watchCmd) SetFlags(f *flag.FlagSet) {}

func (*watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, s.engine, s.remote, s.owner, s.cfg.Sync.Interval, s.cfg.Remote.Timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// watch drives engine from the reachability of pinger and from SIGHUP until ctx
// is done.
func watch(ctx context.Context, engine *pocket.Engine, pinger pocket.Pinger, owner string, interval, timeout time.Duration) error {
	events := make(chan pocket.Event)
	probe := &pocket.Probe{Pinger: pinger, Interval: interval, Timeout: timeout}
	go probe.Run(ctx, events)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case events <- pocket.Event{Trigger: pocket.Manual}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	scheduler := pocket.NewScheduler(engine, owner, false)
	scheduler.Interval = interval
	scheduler.OnResult = func(ev pocket.Event, err error) {
		if err == nil {
			log.Printf("%s: ledger of %q synchronized", ev.Trigger, owner)
		}
	}
	log.Printf("watching the ledger of %q, every %v", owner, interval)
	if err := scheduler.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type forgetCmd struct {
	force bool
}

func (*forgetCmd) Name() string     { return "forget" }
func (*forgetCmd) Synopsis() string { return "drop the local copy of the ledger" }
func (*forgetCmd) Usage() string {
	return `pocket forget [-f]

  Drops the local copy of the owner's ledger, as when signing out of a device.
  Refuses when some changes were never pushed, unless -f is set.
`
}

func (c *forgetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "f", false, "Drop the changes that were never pushed too")
}

func (c *forgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, status := begin()
	if s == nil {
		return status
	}
	defer s.Close()

	if err := s.engine.Forget(ctx, s.owner, c.force); err != nil {
		if errors.Is(err, pocket.ErrPendingChanges) {
			fmt.Fprintf(os.Stderr, "Error: %v. Run 'pocket sync' first, or use -f.\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return subcommands.ExitFailure
	}
	fmt.Printf("✅ Local ledger of %s dropped\n", s.owner)
	return subcommands.ExitSuccess
}
