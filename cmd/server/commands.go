package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattilda/school-ledger/api"
	"github.com/mattilda/school-ledger/ledger"
)

// =============================================================================
// MIGRATE
// =============================================================================

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(args[0]); err != nil {
				return err
			}
			a.logger.Info("migrations applied", zap.String("direction", args[0]), zap.String("database", a.cfg.Database.Path))
			return nil
		},
	}
}

// =============================================================================
// SEED
// =============================================================================

func newSeedCmd(a *app) *cobra.Command {
	ids := make([]string, 0, 3)
	for _, s := range api.Scenarios() {
		ids = append(ids, s.ID)
	}

	return &cobra.Command{
		Use:       "seed <scenario>",
		Short:     "Reset the database and load a demo scenario",
		Long:      "Reset the database and load a demo scenario. Available: " + strings.Join(ids, ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: ids,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.IsProduction() {
				return fmt.Errorf("refusing to seed in %s", a.cfg.App.Env)
			}
			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := api.Seed(cmd.Context(), store, args[0], ledger.Today()); err != nil {
				return err
			}
			a.logger.Info("scenario loaded", zap.String("scenario_id", args[0]))
			return nil
		},
	}
}

// =============================================================================
// STATEMENT
// =============================================================================

func newStatementCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:       "statement student|school <id>",
		Short:     "Print an account statement as JSON",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"student", "school"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			fromDate, err := optionalDate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate, err := optionalDate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := ledger.NewStatementEngine(store, a.logger.Named("statement"))
			engine.PageSize = a.cfg.Statement.PageSize
			engine.Concurrency = a.cfg.Statement.Concurrency

			var out any
			switch args[0] {
			case "student":
				stmt, err := engine.StudentStatement(cmd.Context(), ledger.StudentID(id), fromDate, toDate)
				if err != nil {
					return err
				}
				if stmt == nil {
					return fmt.Errorf("student %d not found", id)
				}
				out = api.NewStudentStatementDTO(stmt)
			case "school":
				stmt, err := engine.SchoolStatement(cmd.Context(), ledger.SchoolID(id), fromDate, toDate)
				if err != nil {
					return err
				}
				if stmt == nil {
					return fmt.Errorf("school %d not found", id)
				}
				out = api.NewSchoolStatementDTO(stmt)
			default:
				return fmt.Errorf("unknown statement kind %q, want student or school", args[0])
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD), default January 1")
	cmd.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD), default today")
	return cmd
}

func optionalDate(s string) (*ledger.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
