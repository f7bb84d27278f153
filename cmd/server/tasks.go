package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/clock"
	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/database/migrations"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/seed"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

type loader func() (config.Config, error)

func newMigrateCommand(load loader, logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := load()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(ctx context.Context, db *sql.DB) error {
				if err := migrations.Apply(ctx, db); err != nil {
					return err
				}
				logger.Info("migrate.done")
				return nil
			})
		},
	}
}

func newSeedCommand(load loader, logger pslog.Logger) *cobra.Command {
	var plan seed.Plan
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo clubs, events and tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := load()
			if err != nil {
				return err
			}
			plan.Start = seed.DefaultPlan(time.Now()).Start
			return withDB(cmd.Context(), cfg, func(ctx context.Context, db *sql.DB) error {
				return seed.Apply(ctx, seedWriter{
					clubs:  repository.NewClubRepo(db),
					events: repository.NewEventRepo(db),
					tables: repository.NewTableRepo(db),
				}, seed.Generate(plan), logger)
			})
		},
	}
	def := seed.DefaultPlan(time.Time{})
	cmd.Flags().IntVar(&plan.Clubs, "clubs", def.Clubs, "number of clubs")
	cmd.Flags().IntVar(&plan.EventsPerClub, "events", def.EventsPerClub, "events per club")
	cmd.Flags().IntVar(&plan.TablesPerEvent, "tables", def.TablesPerEvent, "tables per event")
	return cmd
}

type seedWriter struct {
	clubs  *repository.ClubRepo
	events *repository.EventRepo
	tables *repository.TableRepo
}

func (w seedWriter) UpsertClub(ctx context.Context, c model.Club) error { return w.clubs.Upsert(ctx, c) }

func (w seedWriter) UpsertEvent(ctx context.Context, e model.Event) error {
	return w.events.Upsert(ctx, e)
}

func (w seedWriter) CreateTables(ctx context.Context, tables []model.Table) error {
	return w.tables.CreateBulk(ctx, tables)
}

func newReportCommand(load loader, logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Generate one DAILY_STATS report and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := load()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(ctx context.Context, db *sql.DB) error {
				tickets := repository.NewTicketRepo(db)
				r := service.NewReporter(repository.NewReservationRepo(db), tickets, repository.NewReportRepo(db),
					cfg.Report.TicketPrice, clock.NewSystem(), logger)
				rep, err := r.RunOnce(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			})
		},
	}
}
