package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/clock"
	"github.com/iliyamo/club-table-reservation/internal/model"
)

// Counter counts rows in one table.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// ReportSink stores generated reports.
type ReportSink interface {
	Insert(ctx context.Context, rep model.Report) error
}

// Reporter periodically aggregates ledger and ticket totals into a
// DAILY_STATS report.
type Reporter struct {
	reservations Counter
	tickets      Counter
	sink         ReportSink
	clock        clock.Clock
	logger       pslog.Logger
	price        int64
}

// NewReporter wires a Reporter.  price is the flat ticket price used for
// the revenue estimate.
func NewReporter(reservations, tickets Counter, sink ReportSink, price int64, clk clock.Clock, logger pslog.Logger) *Reporter {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Reporter{reservations: reservations, tickets: tickets, sink: sink, clock: clk, logger: logger, price: price}
}

// RunOnce computes and stores a single report.
func (r *Reporter) RunOnce(ctx context.Context) (model.Report, error) {
	res, err := r.reservations.Count(ctx)
	if err != nil {
		return model.Report{}, err
	}
	sold, err := r.tickets.Count(ctx)
	if err != nil {
		return model.Report{}, err
	}
	rep := model.Report{
		ID:                uuid.NewString(),
		Type:              model.ReportTypeDailyStats,
		CreatedAt:         r.clock.Now(),
		TotalReservations: res,
		TotalTicketsSold:  sold,
		RevenueEstimate:   sold * r.price,
	}
	if err := r.sink.Insert(ctx, rep); err != nil {
		return model.Report{}, err
	}
	r.logger.Info("report.generated", "id", rep.ID, "reservations", res, "tickets", sold, "revenue", rep.RevenueEstimate)
	return rep, nil
}

// Run calls RunOnce every interval until ctx is done.  Failures are logged
// and the next tick retries.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("report.failed", "error", err)
			}
		}
	}
}
