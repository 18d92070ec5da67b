package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/domain/model/shipment"

	"github.com/robfig/cron/v3"
)

const (
	DefaultRetrySchedule    = "0 * * * * *"
	DefaultRetryMaxAttempts = 6
	DefaultRetryBatch       = 50
	DefaultRetryBaseBackoff = time.Minute
	DefaultRetryMaxBackoff  = time.Hour
	DefaultRetryGrace       = 2 * time.Minute
)

// BookedShipmentFinder is the query the job needs from the store.
type BookedShipmentFinder interface {
	FindDocumentRetries(ctx context.Context, maxAttempts, limit int) ([]*shipment.Shipment, error)
}

// DocumentRetrier re-runs the document steps of one shipment.
type DocumentRetrier interface {
	Handle(ctx context.Context, cmd commands.RetryDocumentsCommand) (*shipment.Shipment, error)
}

type DocumentRetryConfig struct {
	Schedule    string
	MaxAttempts int
	Batch       int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Grace keeps the job away from shipments whose booking may still be
	// running its first document attempt.
	Grace time.Duration
}

func (c DocumentRetryConfig) withDefaults() DocumentRetryConfig {
	if c.Schedule == "" {
		c.Schedule = DefaultRetrySchedule
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryMaxAttempts
	}
	if c.Batch <= 0 {
		c.Batch = DefaultRetryBatch
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultRetryBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultRetryMaxBackoff
	}
	if c.Grace <= 0 {
		c.Grace = DefaultRetryGrace
	}
	return c
}

// DocumentRetryJob finds booked shipments whose documents are not complete
// and re-runs the missing steps. A shipment is retried once its backoff since
// the last attempt has passed, until it reaches MaxAttempts.
type DocumentRetryJob struct {
	finder  BookedShipmentFinder
	retrier DocumentRetrier
	config  DocumentRetryConfig
	cron    *cron.Cron
	logger  *slog.Logger
	now     func() time.Time
}

func NewDocumentRetryJob(
	finder BookedShipmentFinder,
	retrier DocumentRetrier,
	config DocumentRetryConfig,
	logger *slog.Logger,
) *DocumentRetryJob {
	return &DocumentRetryJob{
		finder:  finder,
		retrier: retrier,
		config:  config.withDefaults(),
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger.With("component", "document_retry_job"),
		now:     time.Now,
	}
}

func (j *DocumentRetryJob) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		ctx := context.Background()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Document retry run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", j.config.Schedule, err)
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Document retry job started", "schedule", j.config.Schedule)
	return nil
}

func (j *DocumentRetryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Document retry job stopped")
}

// RunOnce performs a single sweep and returns how many shipments were retried.
// Shipments that used up MaxAttempts are never loaded, and the ones waiting
// longest are loaded first, so a batch cannot be filled by records that will
// never be retried. A failure on one shipment does not stop the sweep.
func (j *DocumentRetryJob) RunOnce(ctx context.Context) (int, error) {
	found, err := j.finder.FindDocumentRetries(ctx, j.config.MaxAttempts, j.config.Batch)
	if err != nil {
		return 0, fmt.Errorf("find shipments with missing documents: %w", err)
	}

	var (
		retried int
		errs    []error
	)
	now := j.now()
	for _, s := range found {
		if !j.isDue(s, now) {
			continue
		}
		if err = j.retry(ctx, s); err != nil {
			errs = append(errs, err)
			continue
		}
		retried++
	}

	return retried, errors.Join(errs...)
}

func (j *DocumentRetryJob) isDue(s *shipment.Shipment, now time.Time) bool {
	d := s.Documents()
	if d.Attempts >= j.config.MaxAttempts {
		return false
	}
	if d.LastAttemptAt == nil {
		return s.BookedAt() == nil || !now.Before(s.BookedAt().Add(j.config.Grace))
	}
	return !now.Before(d.LastAttemptAt.Add(backoff(d.Attempts, j.config.BaseBackoff, j.config.MaxBackoff)))
}

func (j *DocumentRetryJob) retry(ctx context.Context, s *shipment.Shipment) error {
	cmd, err := commands.NewRetryDocumentsCommand(s.Key())
	if err != nil {
		return err
	}

	updated, err := j.retrier.Handle(ctx, cmd)
	if err != nil {
		return fmt.Errorf("retry documents of %s: %w", s.ShipmentID().String(), err)
	}

	j.logger.InfoContext(ctx, "Documents retried",
		"shipment_id", updated.ShipmentID().String(),
		"documents_state", updated.DocumentsState(),
		"attempts", updated.Documents().Attempts)
	return nil
}
