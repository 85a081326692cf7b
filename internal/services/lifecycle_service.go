package services

import (
	"context"
	"fmt"
	"time"

	"eboto/config"
	"eboto/internal/domain/election"
	"eboto/internal/events"
	"eboto/internal/observability"
	"eboto/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LifecycleReport summarizes one hourly run.
type LifecycleReport struct {
	Started int `json:"started"`
	Frozen  int `json:"frozen"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// LifecycleService opens elections at their start and freezes results at
// their end. Both transitions are idempotent and catch up missed runs.
type LifecycleService struct {
	store   repository.Store
	tally   *TallyService
	loc     *time.Location
	baseURL string
}

func NewLifecycleService(store repository.Store, tally *TallyService, cfg *config.Config, loc *time.Location) *LifecycleService {
	return &LifecycleService{store: store, tally: tally, loc: loc, baseURL: cfg.BaseURL}
}

type sweepOutcome string

const (
	outcomeApplied sweepOutcome = "applied"
	outcomeSkipped sweepOutcome = "skipped"
	outcomeFailed  sweepOutcome = "failed"
)

// RunHourly runs the start and end sweeps concurrently. A failing election
// is logged and counted; it never stops the others. The returned error is
// only set when a candidate list could not be loaded.
func (s *LifecycleService) RunHourly(ctx context.Context, now time.Time) (LifecycleReport, error) {
	began := time.Now()
	defer func() { observability.ObserveSweep(time.Since(began)) }()

	// Plain group: a failed sweep must not cancel the other one.
	var started, frozen LifecycleReport
	var g errgroup.Group
	g.Go(func() error {
		var err error
		started, err = s.startSweep(ctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		frozen, err = s.endSweep(ctx, now)
		return err
	})
	err := g.Wait()

	report := LifecycleReport{
		Started: started.Started,
		Frozen:  frozen.Frozen,
		Skipped: started.Skipped + frozen.Skipped,
		Failed:  started.Failed + frozen.Failed,
	}
	logFor(ctx).Logger.Info("lifecycle run finished",
		zap.Time("now", now),
		zap.Int("started", report.Started),
		zap.Int("frozen", report.Frozen),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, err
}

func (s *LifecycleService) startSweep(ctx context.Context, now time.Time) (LifecycleReport, error) {
	var report LifecycleReport
	candidates, err := s.store.Elections().ListStartCandidates(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list start candidates: %w", err)
	}
	for _, e := range candidates {
		if now.Before(e.OpensAt(s.loc)) || e.HasEnded(now, s.loc) {
			continue
		}
		outcome, err := s.openElection(ctx, e, now)
		s.record(ctx, "start", e, outcome, err, &report, &report.Started)
	}
	return report, nil
}

func (s *LifecycleService) openElection(ctx context.Context, e election.Election, now time.Time) (sweepOutcome, error) {
	outcome := outcomeSkipped
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		opened, err := tx.Elections().MarkOpened(ctx, e.ID, now)
		if err != nil || !opened {
			return err
		}
		to, err := recipients(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		note := notification(events.NotificationStart, e, to, electionLink(s.baseURL, e.Slug, ""))
		if err := createOutboxEvent(ctx, tx.Outbox(), events.AggregateElection, events.EventTypeElectionStarted, e.ID, note, now); err != nil {
			return err
		}
		outcome = outcomeApplied
		return nil
	})
	if err != nil {
		return outcomeFailed, err
	}
	return outcome, nil
}

func (s *LifecycleService) endSweep(ctx context.Context, now time.Time) (LifecycleReport, error) {
	var report LifecycleReport
	candidates, err := s.store.Elections().ListEndCandidates(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list end candidates: %w", err)
	}
	for _, e := range candidates {
		if !e.HasEnded(now, s.loc) {
			continue
		}
		outcome, err := s.closeElection(ctx, e, now)
		s.record(ctx, "end", e, outcome, err, &report, &report.Frozen)
	}
	return report, nil
}

func (s *LifecycleService) closeElection(ctx context.Context, e election.Election, now time.Time) (sweepOutcome, error) {
	_, created, err := s.tally.FreezeResult(ctx, e.ID, now)
	if err != nil {
		return outcomeFailed, err
	}
	if !created {
		return outcomeSkipped, nil
	}
	return outcomeApplied, nil
}

func (s *LifecycleService) record(ctx context.Context, transition string, e election.Election, outcome sweepOutcome, err error, report *LifecycleReport, applied *int) {
	observability.LifecycleTransition(transition, string(outcome))
	log := logFor(ctx).With(zap.String("transition", transition), zap.String("election_id", e.ID.String()), zap.String("slug", e.Slug))
	switch outcome {
	case outcomeApplied:
		*applied++
		log.Logger.Info("election transitioned")
	case outcomeSkipped:
		report.Skipped++
		log.Logger.Debug("election already transitioned")
	default:
		report.Failed++
		log.Logger.Error("election transition failed", zap.Error(err))
	}
}
