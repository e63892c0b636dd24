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

	"github.com/etnz/pocket/config"
	"github.com/etnz/pocket/postgres"
	"github.com/etnz/pocket/remote"
	"github.com/google/subcommands"
)

type serveCmd struct {
	address string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the remote ledger store over HTTP" }
func (*serveCmd) Usage() string {
	return `pocket serve [-address <host:port>]

  Serves the ledgers stored in the PostgreSQL database of server.database_url
  to pocket clients. The schema is created when missing.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.address, "address", "", "Address to listen on. Overrides server.address.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.address != "" {
		cfg.Server.Address = c.address
	}
	if cfg.Server.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: server.database_url is required (or POCKET_SERVER_DATABASE_URL).")
		return subcommands.ExitUsageError
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.Connect(ctx, cfg.Server.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	router := remote.NewRouter(postgres.NewStore(db), remote.ServerConfig{
		Mode:         cfg.Server.Mode,
		AllowOrigins: cfg.Server.AllowOrigins,
	})
	srv := &http.Server{Addr: cfg.Server.Address, Handler: router}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("serving ledgers on %s", cfg.Server.Address)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
