/*
main.go - Application entry point

PURPOSE:
  The mattilda command. Starts the billing API server and runs the
  maintenance tasks that share its configuration.

COMMANDS:
  serve                      Start the HTTP server (default when no command
                             is given)
  migrate up|down            Apply or roll back the database schema
  seed <scenario>            Reset the database and load a demo scenario
  statement student|school <id> [--from YYYY-MM-DD] [--to YYYY-MM-DD]
                             Print an account statement as JSON

STARTUP SEQUENCE (serve):
  1. Load configuration (config package: defaults, config.yaml, .env, env)
  2. Build the zap logger
  3. Open and migrate the SQLite store
  4. Build cache tiers (memory or redis) and Prometheus metrics
  5. Create auth service and API handler
  6. Configure HTTP router and start the cache sweeper
  7. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (http.shutdown_timeout)
  3. Stop the cache sweeper
  4. Close redis and database connections
  5. Exit

EXAMPLES:
  # Run with file database
  mattilda serve --config ./config/config.yaml

  # Run with in-memory database on another port
  MATTILDA_DATABASE_PATH=":memory:" MATTILDA_HTTP_PORT=3000 mattilda serve

  # Load demo data, then print a school statement
  mattilda seed demo-district
  mattilda statement school 1 --from 2024-01-01

SEE ALSO:
  - config/config.go: Every setting and its environment variable
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattilda/school-ledger/config"
	"github.com/mattilda/school-ledger/logging"
	"github.com/mattilda/school-ledger/store/sqlite"
)

// app carries what every command needs after configuration is loaded.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "mattilda",
		Short:         "School billing ledger: invoices, payments and account statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./config.yaml or ./config/config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newStatementCmd(a),
	)
	return root
}

// openStore opens the configured database. migrate controls whether the
// schema is brought up to date first.
func (a *app) openStore(migrate bool) (*sqlite.Store, error) {
	open := sqlite.Open
	if migrate {
		open = sqlite.New
	}
	store, err := open(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return store, nil
}
