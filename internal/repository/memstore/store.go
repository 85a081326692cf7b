// Package memstore is an in-process repository.Store used by tests and the
// dev seed. Transactions are serialized by one mutex and applied on commit.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	"eboto/internal/domain/outbox"
	"eboto/internal/domain/result"
	"eboto/internal/domain/voter"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

type state struct {
	elections     map[uuid.UUID]election.Election
	commissioners []election.Commissioner
	positions     map[uuid.UUID]election.Position
	partylists    map[uuid.UUID]election.Partylist
	candidates    map[uuid.UUID]election.Candidate
	voters        map[uuid.UUID]voter.Voter
	fields        []voter.Field
	votes         []ballot.Vote
	results       []result.Generated
	outbox        []outbox.OutboxEvent
}

func newState() *state {
	return &state{
		elections:  make(map[uuid.UUID]election.Election),
		positions:  make(map[uuid.UUID]election.Position),
		partylists: make(map[uuid.UUID]election.Partylist),
		candidates: make(map[uuid.UUID]election.Candidate),
		voters:     make(map[uuid.UUID]voter.Voter),
	}
}

func (s *state) hasVote(match func(ballot.Vote) bool) bool {
	for _, v := range s.votes {
		if match(v) {
			return true
		}
	}
	return false
}

func (s *state) clone() *state {
	c := &state{
		elections:     make(map[uuid.UUID]election.Election, len(s.elections)),
		commissioners: append([]election.Commissioner(nil), s.commissioners...),
		positions:     make(map[uuid.UUID]election.Position, len(s.positions)),
		partylists:    make(map[uuid.UUID]election.Partylist, len(s.partylists)),
		candidates:    make(map[uuid.UUID]election.Candidate, len(s.candidates)),
		voters:        make(map[uuid.UUID]voter.Voter, len(s.voters)),
		fields:        append([]voter.Field(nil), s.fields...),
		votes:         append([]ballot.Vote(nil), s.votes...),
		results:       append([]result.Generated(nil), s.results...),
		outbox:        append([]outbox.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.elections {
		c.elections[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.partylists {
		c.partylists[k] = v
	}
	for k, v := range s.candidates {
		c.candidates[k] = v
	}
	for k, v := range s.voters {
		c.voters[k] = v
	}
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

// do runs fn against the current state, locking unless already inside a
// transaction that holds the lock.
func (s *Store) do(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Store{mu: s.mu, st: s.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.st = *tx.st
	return nil
}

func (s *Store) Elections() repository.ElectionRepository         { return electionRepo{s} }
func (s *Store) Commissioners() repository.CommissionerRepository { return commissionerRepo{s} }
func (s *Store) Positions() repository.PositionRepository         { return positionRepo{s} }
func (s *Store) Partylists() repository.PartylistRepository       { return partylistRepo{s} }
func (s *Store) Candidates() repository.CandidateRepository       { return candidateRepo{s} }
func (s *Store) Voters() repository.VoterRepository               { return voterRepo{s} }
func (s *Store) Votes() repository.VoteRepository                 { return voteRepo{s} }
func (s *Store) Results() repository.ResultRepository             { return resultRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }

func alreadyExists(what string) error {
	return fmt.Errorf("%w: %s", eboto_errors.ErrAlreadyExists, what)
}
