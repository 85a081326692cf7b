package services

import (
	"context"
	"errors"
	"time"

	"eboto/config"
	"eboto/internal/access"
	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	"eboto/internal/events"
	"eboto/internal/observability"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BallotService struct {
	store   repository.Store
	cache   TallyCache
	loc     *time.Location
	baseURL string
	clock   func() time.Time
}

func NewBallotService(store repository.Store, cache TallyCache, cfg *config.Config, loc *time.Location) *BallotService {
	return &BallotService{
		store:   store,
		cache:   cache,
		loc:     loc,
		baseURL: cfg.BaseURL,
		clock:   time.Now,
	}
}

type BallotInput struct {
	ElectionID uuid.UUID
	VoterID    uuid.UUID
	Selections ballot.Selections
}

// CastForPrincipal resolves the caller's voter row for an election slug and
// casts the ballot. Hidden and missing elections are both ErrNotFound.
func (s *BallotService) CastForPrincipal(ctx context.Context, p access.Principal, slug string, sels ballot.Selections) (ballot.Receipt, error) {
	if !p.Authenticated {
		return ballot.Receipt{}, eboto_errors.ErrUnauthorized
	}
	subject, err := loadElectionForEligibility(ctx, s.store, p, slug, s.clock(), s.loc)
	if err != nil {
		return ballot.Receipt{}, err
	}
	if d := access.CanView(p, subject); !d.Allowed() {
		return ballot.Receipt{}, d.Err()
	}
	if subject.Voter == nil {
		s.rejected(eboto_errors.NotAVoter())
		return ballot.Receipt{}, eboto_errors.NotAVoter()
	}
	return s.CastBallot(ctx, BallotInput{
		ElectionID: subject.Election.ID,
		VoterID:    subject.Voter.ID,
		Selections: sels,
	})
}

// CastBallot accepts one ballot atomically. Guards are re-read under row
// locks inside the transaction; any failure leaves no trace.
func (s *BallotService) CastBallot(ctx context.Context, in BallotInput) (ballot.Receipt, error) {
	var receipt ballot.Receipt
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		now := s.clock()

		e, err := tx.Elections().LockByID(ctx, in.ElectionID)
		if errors.Is(err, eboto_errors.ErrNotFound) {
			return eboto_errors.ElectionNotOpen()
		}
		if err != nil {
			return err
		}
		if e.Publicity == election.PublicityPrivate || !e.IsOpen(now, s.loc) {
			return eboto_errors.ElectionNotOpen()
		}

		v, err := tx.Voters().LockByID(ctx, e.ID, in.VoterID)
		if errors.Is(err, eboto_errors.ErrNotFound) {
			return eboto_errors.NotAVoter()
		}
		if err != nil {
			return err
		}
		if v.HasVoted() {
			return eboto_errors.AlreadyVoted()
		}
		cast, err := tx.Votes().CountByVoter(ctx, e.ID, v.ID)
		if err != nil {
			return err
		}
		if cast > 0 {
			return eboto_errors.AlreadyVoted()
		}

		positions, err := tx.Positions().ListByElection(ctx, e.ID)
		if err != nil {
			return err
		}
		candidates, err := tx.Candidates().ListByElection(ctx, e.ID)
		if err != nil {
			return err
		}
		votes, r, err := ballot.Plan(e.ID, v.ID, positions, candidates, in.Selections, now)
		if err != nil {
			return err
		}

		if err := tx.Votes().InsertBatch(ctx, votes); err != nil {
			if errors.Is(err, eboto_errors.ErrAlreadyExists) {
				return eboto_errors.AlreadyVoted()
			}
			return err
		}
		if err := tx.Voters().MarkVoted(ctx, v.ID, now); err != nil {
			if errors.Is(err, eboto_errors.ErrNotFound) {
				return eboto_errors.AlreadyVoted()
			}
			return err
		}

		note := notification(events.NotificationReceipt, e, []string{v.Email}, electionLink(s.baseURL, e.Slug, "realtime"))
		note.Receipt = r
		if err := createOutboxEvent(ctx, tx.Outbox(), events.AggregateBallot, events.EventTypeBallotCast, v.ID, note, now); err != nil {
			return err
		}
		update := events.TallyUpdate{ElectionID: e.ID.String(), At: now}
		if err := createOutboxEvent(ctx, tx.Outbox(), events.AggregateElection, events.EventTypeTallyUpdated, e.ID, update, now); err != nil {
			return err
		}

		receipt = r
		return nil
	})
	if err != nil {
		s.rejected(err)
		return ballot.Receipt{}, err
	}

	observability.BallotAccepted()
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, in.ElectionID); err != nil {
			logFor(ctx).Logger.Warn("tally cache invalidate failed", zap.String("election_id", in.ElectionID.String()), zap.Error(err))
		}
	}
	return receipt, nil
}

func (s *BallotService) rejected(err error) {
	if be, ok := eboto_errors.AsBallotError(err); ok {
		observability.BallotRejected(string(be.Kind))
	}
}
