// Package cmd implements the CLI application to keep a personal ledger.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/pocket"
	"github.com/etnz/pocket/config"
	"github.com/etnz/pocket/jsonl"
	"github.com/etnz/pocket/localdb"
	"github.com/etnz/pocket/remote"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&addCmd{}, "entries")
	c.Register(&rmCmd{}, "entries")
	c.Register(&lsCmd{}, "entries")
	c.Register(&summaryCmd{}, "entries")

	c.Register(&chargeCmd{}, "charges")
	c.Register(&unchargeCmd{}, "charges")
	c.Register(&chargesCmd{}, "charges")

	c.Register(&syncCmd{}, "sync")
	c.Register(&watchCmd{}, "sync")
	c.Register(&forgetCmd{}, "sync")

	c.Register(&migrateCmd{}, "local")
	c.Register(&topicCmd{}, "manual")

	c.Register(&serveCmd{}, "server")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the configuration file. Defaults to pocket.yaml in the working directory or the user config directory.")
var ownerID = flag.String("owner", "", "Owner of the ledger. Overrides the configured owner.")

// session is everything a command needs to work on the ledger of the owner.
type session struct {
	cfg     *config.Config
	owner   string
	loc     *time.Location
	local   pocket.LocalStore
	charges pocket.ChargeRegistry
	remote  *remote.Client
	engine  *pocket.Engine
	close   func() error
}

// openSession loads the configuration and opens the local stores.
func openSession() (*session, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, owner: cfg.Owner}
	if *ownerID != "" {
		s.owner = *ownerID
	}
	if s.loc, err = cfg.Location(); err != nil {
		return nil, err
	}

	if s.local, s.charges, s.close, err = openLocal(cfg.Local.Driver, cfg.Local.Path, cfg.Database.LogMode); err != nil {
		return nil, err
	}

	s.remote = remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout)
	s.engine = pocket.NewEngine(s.local, s.remote, s.charges,
		pocket.WithLocation(s.loc),
	)
	return s, nil
}

// openLocal opens the local stores of driver at path, and the function
// releasing them.
func openLocal(driver, path string, logMode bool) (pocket.LocalStore, pocket.ChargeRegistry, func() error, error) {
	switch driver {
	case "sqlite":
		db, err := localdb.Open(localdb.Config{Path: path, LogMode: logMode})
		if err != nil {
			return nil, nil, nil, err
		}
		return localdb.NewStore(db), localdb.NewRegistry(db), func() error { return localdb.Close(db) }, nil
	case "jsonl":
		store, registry, err := jsonl.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, registry, func() error { return nil }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown local driver %q, want jsonl or sqlite", driver)
	}
}

// Close releases the local stores.
func (s *session) Close() {
	if err := s.close(); err != nil {
		log.Printf("cannot close the local store: %v", err)
	}
}

// requireOwner fails when no owner is signed in.
func (s *session) requireOwner() error {
	if s.owner == "" {
		return errors.New("no owner: set 'owner' in the configuration or use -owner")
	}
	return nil
}

// online reports whether the remote store answers now.
func (s *session) online(ctx context.Context) bool {
	p := &pocket.Probe{Pinger: s.remote, Timeout: s.cfg.Remote.Timeout}
	return p.Online(ctx)
}

// now is the current time in the configured location.
func (s *session) now() time.Time { return time.Now().In(s.loc) }

// begin opens a session for a command that works on the owner's ledger, and
// reports failures on stderr.
func begin() (*session, subcommands.ExitStatus) {
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the ledger: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	if err := s.requireOwner(); err != nil {
		s.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, subcommands.ExitUsageError
	}
	return s, subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it raw when stdout is
// not a terminal.
func printMarkdown(md string) {
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
