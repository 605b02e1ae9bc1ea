// backofficectl is the command-line companion to the API server: it ingests
// export files, prints the summary report and runs deposit reconciliation
// against the same database.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brokerops/backoffice/internal/config"
	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/ingest"
	"github.com/brokerops/backoffice/internal/logging"
	"github.com/brokerops/backoffice/internal/reconcile"
	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/report"
	"github.com/brokerops/backoffice/internal/store"
)

var (
	ownerFlag string
	startFlag string
	endFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "backofficectl",
	Short:         "Ingest broker export files and run back-office reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest one export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFlag, _ := cmd.Flags().GetString("type")
		formatFlag, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		owner, err := parseOwner()
		if err != nil {
			return err
		}
		typ, ok := record.ParseType(typeFlag)
		if !ok {
			return fmt.Errorf("unknown record type %q", typeFlag)
		}

		var st ingest.Store
		if dryRun {
			st = store.NewMemory()
		} else {
			pg, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			st = pg
		}

		svc := ingest.NewService(st, 0)
		var res ingest.Result
		if formatFlag != "" {
			format, ok := decode.ParseFormat(formatFlag)
			if !ok {
				return fmt.Errorf("unknown format %q", formatFlag)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err = svc.IngestBytes(cmd.Context(), owner, typ, data, format)
			if err != nil {
				return err
			}
		} else {
			res, err = svc.IngestFile(cmd.Context(), owner, typ, args[0])
			if err != nil {
				return err
			}
		}

		label := "ingested"
		if dryRun {
			label = "dry run"
		}
		fmt.Printf("%s: %d rows, %d added, %d skipped\n", label, res.TotalRows, res.Added, res.Skipped)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the aggregated summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner()
		if err != nil {
			return err
		}
		start, end, err := parseWindow()
		if err != nil {
			return err
		}

		pg, cleanup, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := report.NewAggregator(pg).Summarize(cmd.Context(), owner, start, end)
		if err != nil {
			return err
		}
		for _, line := range summary.Lines {
			fmt.Printf("%-28s %s\n", line.Metric, line.Value)
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare CRM deposits against gateway payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		asCSV, _ := cmd.Flags().GetBool("csv")

		owner, err := parseOwner()
		if err != nil {
			return err
		}
		start, end, err := parseWindow()
		if err != nil {
			return err
		}

		pg, cleanup, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := reconcile.NewMatcher(pg).Compare(cmd.Context(), owner, start, end)
		if err != nil {
			return err
		}

		if asCSV {
			cw := csv.NewWriter(os.Stdout)
			if err := cw.Write(rep.Headers); err != nil {
				return err
			}
			for _, row := range rep.Rows {
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			cw.Flush()
			return cw.Error()
		}

		fmt.Printf("%d discrepancies\n", rep.TotalDiscrepancies)
		for _, row := range rep.Rows {
			fmt.Printf("  %-12s %-10s client=%-10s account=%-12s amount=%s\n",
				row[0], row[1], row[2], row[3], row[4])
		}
		return nil
	},
}

func parseOwner() (uuid.UUID, error) {
	id, err := uuid.Parse(ownerFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --owner: %w", err)
	}
	return id, nil
}

func parseWindow() (start, end *time.Time, err error) {
	if startFlag != "" {
		t, err := time.Parse("2006-01-02", startFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --start: %w", err)
		}
		start = &t
	}
	if endFlag != "" {
		t, err := time.Parse("2006-01-02", endFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --end: %w", err)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		end = &t
	}
	if (start == nil) != (end == nil) {
		return nil, nil, errors.New("--start and --end must be given together")
	}
	return start, end, nil
}

// openStore connects to the configured database and makes sure the schema
// exists. The returned cleanup closes the pool.
func openStore(ctx context.Context) (*store.Postgres, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func main() {
	_ = godotenv.Overload()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "owner UUID the records belong to")
	rootCmd.PersistentFlags().StringVar(&startFlag, "start", "", "window start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&endFlag, "end", "", "window end date (YYYY-MM-DD)")

	ingestCmd.Flags().String("type", "", "record type: payment, rebate, crm-withdrawal, crm-deposit, account-list")
	ingestCmd.Flags().String("format", "", "file format: csv or xlsx (inferred from extension when unset)")
	ingestCmd.Flags().Bool("dry-run", false, "validate and count rows without writing to the database")
	_ = ingestCmd.MarkFlagRequired("type")

	reconcileCmd.Flags().Bool("csv", false, "write discrepancies as CSV to stdout")

	rootCmd.AddCommand(ingestCmd, reportCmd, reconcileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
