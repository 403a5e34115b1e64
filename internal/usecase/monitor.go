package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// Monitor runs the fetch, filter, format and dispatch pipeline for one watchlist.
type Monitor struct {
	name      string
	source    ports.Source
	ledger    ports.Ledger
	formatter ports.Formatter
	notifier  ports.Notifier
	clock     ports.Clock
	logger    ports.Logger
	metrics   ports.Metrics
	dryRun    bool
	newRunID  func() string
}

// MonitorConfig controls optional behaviours of a run.
type MonitorConfig struct {
	// DryRun formats and logs unseen records without sending or marking them.
	DryRun bool
}

// NewMonitor constructs a Monitor use case. metrics may be nil.
func NewMonitor(
	name string,
	source ports.Source,
	ledger ports.Ledger,
	formatter ports.Formatter,
	notifier ports.Notifier,
	clock ports.Clock,
	logger ports.Logger,
	metrics ports.Metrics,
	cfg MonitorConfig,
) *Monitor {
	return &Monitor{
		name:      name,
		source:    source,
		ledger:    ledger,
		formatter: formatter,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		dryRun:    cfg.DryRun,
		newRunID:  uuid.NewString,
	}
}

func (m *Monitor) Name() string { return m.name }

// Run executes one batch. Fetch and ledger failures abort the run; a failed
// dispatch only skips its record, which stays unseen for the next run.
func (m *Monitor) Run(ctx context.Context) (report model.RunReport, err error) {
	report = model.RunReport{Monitor: m.name, RunID: m.newRunID(), Started: m.clock.Now()}
	log := m.logger.With("monitor", m.name, "run_id", report.RunID)

	defer func() {
		report.Finished = m.clock.Now()
		if m.metrics != nil {
			m.metrics.ObserveRun(report, err)
		}
	}()

	log.Info(ctx, "starting monitor run", "source", m.source.Name(), "dry_run", m.dryRun)

	records, err := m.source.Fetch(ctx)
	if err != nil {
		err = asFetchError(m.source.Name(), err)
		log.Error(ctx, "failed to fetch feed", "error", err)
		return report, err
	}
	report.Fetched = len(records)

	known, err := m.ledger.Load(ctx)
	if err != nil {
		err = asLedgerError(m.name, err)
		log.Error(ctx, "failed to load ledger", "error", err)
		return report, err
	}

	unseen := model.FilterUnseen(records, known)
	report.Unseen = len(unseen)
	log.Info(ctx, "feed fetched", "fetched", report.Fetched, "unseen", report.Unseen)

	for _, record := range unseen {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, "run interrupted")
			log.Warn(ctx, "stopping run", "error", err, "delivered", report.Delivered)
			return report, err
		}

		if idErr := model.ValidateID(record.ID); idErr != nil {
			report.Skipped++
			log.Warn(ctx, "skipping record with unusable id", "id", record.ID, "error", idErr)
			continue
		}

		notification := m.formatter.Build(record)
		if m.dryRun {
			log.Info(ctx, "dry run: would notify", "id", record.ID, "title", notification.Title,
				"severity", notification.Severity.String())
			continue
		}

		if sendErr := m.notifier.Send(ctx, notification); sendErr != nil {
			report.Failed++
			var de *errors.DispatchError
			retryable := errors.As(sendErr, &de) && de.Retryable
			log.Error(ctx, "failed to send notification", "id", record.ID, "retryable", retryable, "error", sendErr)
			continue
		}

		if markErr := m.ledger.MarkSeen(ctx, record.ID); markErr != nil {
			err = asLedgerError(m.name, markErr)
			log.Error(ctx, "delivered but failed to mark seen", "id", record.ID, "error", err)
			return report, err
		}
		report.Delivered++
		log.Debug(ctx, "notification delivered", "id", record.ID)
	}

	log.Info(ctx, "monitor run completed",
		"delivered", report.Delivered,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", m.clock.Now().Sub(report.Started).String(),
	)
	return report, nil
}

func asFetchError(source string, err error) error {
	var fe *errors.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return errors.Fetch(source, err)
}

func asLedgerError(path string, err error) error {
	var le *errors.LedgerError
	if errors.As(err, &le) {
		return err
	}
	return errors.Ledger(path, err)
}
