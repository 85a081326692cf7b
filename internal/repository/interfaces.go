package repository

import (
	"context"
	"time"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	"eboto/internal/domain/outbox"
	"eboto/internal/domain/result"
	"eboto/internal/domain/voter"

	"github.com/google/uuid"
)

// Store groups the repositories over one connection or transaction.
// WithTx runs fn against a transactional Store; nested calls reuse it.
type Store interface {
	Elections() ElectionRepository
	Commissioners() CommissionerRepository
	Positions() PositionRepository
	Partylists() PartylistRepository
	Candidates() CandidateRepository
	Voters() VoterRepository
	Votes() VoteRepository
	Results() ResultRepository
	Outbox() OutboxRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Getters return eboto_errors.ErrNotFound for missing or soft-deleted rows.
// Creates return eboto_errors.ErrAlreadyExists on unique violations.

type ElectionRepository interface {
	Create(ctx context.Context, e *election.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (election.Election, error)
	GetBySlug(ctx context.Context, slug string) (election.Election, error)
	// LockByID reads the election with a row lock held until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (election.Election, error)
	Update(ctx context.Context, e *election.Election) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkOpened promotes PRIVATE to VOTER once; false means another
	// invocation already did it.
	MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// ListStartCandidates returns live PRIVATE, never-opened elections with
	// start_date <= now < end_date; callers refine with the hour window.
	ListStartCandidates(ctx context.Context, now time.Time) ([]election.Election, error)
	// ListEndCandidates returns live elections whose end_date falls before
	// now plus one day and that have no generated result yet.
	ListEndCandidates(ctx context.Context, now time.Time) ([]election.Election, error)
}

type CommissionerRepository interface {
	Add(ctx context.Context, c *election.Commissioner) error
	IsCommissioner(ctx context.Context, electionID, userID uuid.UUID) (bool, error)
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Commissioner, error)
}

type PositionRepository interface {
	Create(ctx context.Context, p *election.Position) error
	GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Position, error)
	Update(ctx context.Context, p *election.Position) error
	SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error
	// ListByElection returns live positions ordered by "order".
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Position, error)
	// ListForTally also returns soft-deleted positions that hold vote rows.
	ListForTally(ctx context.Context, electionID uuid.UUID) ([]election.Position, error)
}

type PartylistRepository interface {
	Create(ctx context.Context, p *election.Partylist) error
	GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Partylist, error)
	GetByAcronym(ctx context.Context, electionID uuid.UUID, acronym string) (election.Partylist, error)
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Partylist, error)
}

type CandidateRepository interface {
	Create(ctx context.Context, c *election.Candidate) error
	GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Candidate, error)
	Update(ctx context.Context, c *election.Candidate) error
	SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Candidate, error)
	// ListForTally also returns soft-deleted candidates that hold vote rows.
	ListForTally(ctx context.Context, electionID uuid.UUID) ([]election.Candidate, error)
}

type VoterRepository interface {
	Create(ctx context.Context, v *voter.Voter) error
	GetByID(ctx context.Context, electionID, id uuid.UUID) (voter.Voter, error)
	// FindForPrincipal matches on user id or case-insensitive email.
	FindForPrincipal(ctx context.Context, electionID, userID uuid.UUID, email string) (voter.Voter, error)
	// LockByID reads the voter with a row lock held until the transaction ends.
	LockByID(ctx context.Context, electionID, id uuid.UUID) (voter.Voter, error)
	MarkVoted(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]voter.Voter, error)
	// Counts returns live voters and how many of them have voted.
	Counts(ctx context.Context, electionID uuid.UUID) (total int, voted int, err error)
	AddField(ctx context.Context, f *voter.Field) error
	ListFields(ctx context.Context, electionID uuid.UUID) ([]voter.Field, error)
}

type VoteRepository interface {
	InsertBatch(ctx context.Context, votes []ballot.Vote) error
	CountByVoter(ctx context.Context, electionID, voterID uuid.UUID) (int, error)
	// CountsByElection groups vote rows by (position, candidate); abstain
	// markers group under a null candidate.
	CountsByElection(ctx context.Context, electionID uuid.UUID) ([]result.VoteCount, error)
}

type ResultRepository interface {
	Create(ctx context.Context, g *result.Generated) error
	GetForBoundary(ctx context.Context, electionID uuid.UUID, closesAt time.Time) (result.Generated, error)
	Latest(ctx context.Context, electionID uuid.UUID) (result.Generated, error)
	CountByElection(ctx context.Context, electionID uuid.UUID) (int, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMsg string) error
	CountByType(ctx context.Context, aggregateID, eventType string) (int, error)
}
