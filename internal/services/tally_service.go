package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/domain/result"
	"eboto/internal/events"
	"eboto/internal/observability"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TallyCache is the short-lived tally cache; a nil cache disables caching.
// Set must drop the write when Invalidate ran after generation was read.
type TallyCache interface {
	Get(ctx context.Context, electionID uuid.UUID) (*result.Tally, error)
	Generation(ctx context.Context, electionID uuid.UUID) (int64, error)
	Set(ctx context.Context, t result.Tally, generation int64) error
	Invalidate(ctx context.Context, electionID uuid.UUID) error
}

type TallyService struct {
	store   repository.Store
	cache   TallyCache
	loc     *time.Location
	baseURL string
	clock   func() time.Time
}

func NewTallyService(store repository.Store, cache TallyCache, loc *time.Location) *TallyService {
	return &TallyService{store: store, cache: cache, loc: loc, clock: time.Now}
}

// WithBaseURL sets the site root used for links in result notifications.
func (s *TallyService) WithBaseURL(baseURL string) *TallyService {
	s.baseURL = baseURL
	return s
}

// Tally counts committed votes at read time without taking locks.
func (s *TallyService) Tally(ctx context.Context, electionID uuid.UUID) (result.Tally, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, electionID)
		if err != nil {
			logFor(ctx).Logger.Warn("tally cache read failed", zap.String("election_id", electionID.String()), zap.Error(err))
		}
		observability.TallyCacheHit(cached != nil)
		if cached != nil {
			return *cached, nil
		}
		if generation, err = s.cache.Generation(ctx, electionID); err == nil {
			cacheable = true
		}
	}

	e, err := s.store.Elections().GetByID(ctx, electionID)
	if err != nil {
		return result.Tally{}, err
	}
	t, err := computeTally(ctx, s.store, e, s.clock())
	if err != nil {
		return result.Tally{}, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, t, generation); err != nil {
			logFor(ctx).Logger.Warn("tally cache write failed", zap.String("election_id", electionID.String()), zap.Error(err))
		}
	}
	return t, nil
}

func computeTally(ctx context.Context, st repository.Store, e election.Election, at time.Time) (result.Tally, error) {
	positions, err := st.Positions().ListForTally(ctx, e.ID)
	if err != nil {
		return result.Tally{}, err
	}
	candidates, err := st.Candidates().ListForTally(ctx, e.ID)
	if err != nil {
		return result.Tally{}, err
	}
	partylists, err := st.Partylists().ListByElection(ctx, e.ID)
	if err != nil {
		return result.Tally{}, err
	}
	counts, err := st.Votes().CountsByElection(ctx, e.ID)
	if err != nil {
		return result.Tally{}, err
	}
	total, voted, err := st.Voters().Counts(ctx, e.ID)
	if err != nil {
		return result.Tally{}, err
	}
	return result.Build(result.Inputs{
		Election:    e,
		Positions:   positions,
		Candidates:  candidates,
		Partylists:  partylists,
		Counts:      counts,
		TotalVoters: total,
		VotedCount:  voted,
	}, at), nil
}

// Present applies the display policy: anonymized until the election ends.
func (s *TallyService) Present(t result.Tally, e election.Election, now time.Time) result.View {
	return result.PresentTally(t, !e.HasEnded(now, s.loc))
}

// Realtime is the presented live tally for a viewer allowed to see the election.
func (s *TallyService) Realtime(ctx context.Context, p access.Principal, slug string) (result.View, error) {
	now := s.clock()
	subject, err := loadElectionForEligibility(ctx, s.store, p, slug, now, s.loc)
	if err != nil {
		return result.View{}, err
	}
	if d := access.CanView(p, subject); !d.Allowed() {
		return result.View{}, d.Err()
	}
	t, err := s.Tally(ctx, subject.Election.ID)
	if err != nil {
		return result.View{}, err
	}
	return s.Present(t, *subject.Election, now), nil
}

// FreezeResult stores the immutable snapshot for the election's end
// boundary and queues the results-available notification in the same
// transaction. It is idempotent: a second call returns the stored row with
// created=false and queues nothing.
func (s *TallyService) FreezeResult(ctx context.Context, electionID uuid.UUID, now time.Time) (result.Generated, bool, error) {
	var g result.Generated
	var created bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		g, created, err = s.freezeInTx(ctx, tx, electionID, now)
		return err
	})
	return g, created, err
}

func (s *TallyService) freezeInTx(ctx context.Context, tx repository.Store, electionID uuid.UUID, now time.Time) (result.Generated, bool, error) {
	e, err := tx.Elections().LockByID(ctx, electionID)
	if err != nil {
		return result.Generated{}, false, err
	}
	if !e.HasEnded(now, s.loc) {
		return result.Generated{}, false, eboto_errors.ErrElectionNotEnded
	}
	closesAt := e.ClosesAt(s.loc)

	existing, err := tx.Results().GetForBoundary(ctx, e.ID, closesAt)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, eboto_errors.ErrNotFound) {
		return result.Generated{}, false, err
	}

	t, err := computeTally(ctx, tx, e, now)
	if err != nil {
		return result.Generated{}, false, err
	}
	payload, err := json.Marshal(result.Freeze(e, t, closesAt))
	if err != nil {
		return result.Generated{}, false, err
	}
	g := result.Generated{
		ID:         uuid.New(),
		ElectionID: e.ID,
		ClosesAt:   closesAt,
		Payload:    payload,
		CreatedAt:  now,
	}
	if err := tx.Results().Create(ctx, &g); err != nil {
		return result.Generated{}, false, err
	}

	to, err := recipients(ctx, tx, e.ID)
	if err != nil {
		return result.Generated{}, false, err
	}
	note := notification(events.NotificationResult, e, to, electionLink(s.baseURL, e.Slug, "result"))
	if err := createOutboxEvent(ctx, tx.Outbox(), events.AggregateElection, events.EventTypeElectionResultReady, e.ID, note, now); err != nil {
		return result.Generated{}, false, err
	}
	return g, true, nil
}

// GetResult returns the latest frozen result, presented with real names.
func (s *TallyService) GetResult(ctx context.Context, p access.Principal, slug string) (result.View, error) {
	subject, err := loadElectionForEligibility(ctx, s.store, p, slug, s.clock(), s.loc)
	if err != nil {
		return result.View{}, err
	}
	if d := access.CanView(p, subject); !d.Allowed() {
		return result.View{}, d.Err()
	}
	g, err := s.store.Results().Latest(ctx, subject.Election.ID)
	if err != nil {
		return result.View{}, err
	}
	snapshot, err := g.Snapshot()
	if err != nil {
		return result.View{}, err
	}
	return result.PresentSnapshot(snapshot, g.CreatedAt), nil
}
