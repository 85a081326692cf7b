package services

import (
	"context"
	"strings"

	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/domain/voter"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Positions and candidates shape the ballot, so they may only change before
// voting starts or once the result for the end boundary is frozen.
func (s *ElectionService) ensureBallotEditable(ctx context.Context, tx repository.Store, e election.Election) error {
	if !e.HasStarted(s.clock(), s.loc) {
		return nil
	}
	_, err := tx.Results().GetForBoundary(ctx, e.ID, e.ClosesAt(s.loc))
	if isNotFound(err) {
		return eboto_errors.ErrVotingStarted
	}
	return err
}

// WithTallyCache drops cached tallies after roster writes.
func (s *ElectionService) WithTallyCache(c TallyCache) *ElectionService {
	s.cache = c
	return s
}

func (s *ElectionService) mutate(ctx context.Context, electionID uuid.UUID, fn func(tx repository.Store) error) error {
	if err := s.store.WithTx(ctx, fn); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, electionID); err != nil {
			logFor(ctx).Logger.Warn("tally cache invalidation failed", zap.String("election_id", electionID.String()), zap.Error(err))
		}
	}
	return nil
}

type PositionInput struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"max=2000"`
	Min         int    `validate:"gte=0"`
	Max         int    `validate:"gte=1"`
}

func (s *ElectionService) AddPosition(ctx context.Context, p access.Principal, electionID uuid.UUID, in PositionInput) (election.Position, error) {
	if err := s.check(in); err != nil {
		return election.Position{}, err
	}
	var out election.Position
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		existing, err := tx.Positions().ListByElection(ctx, e.ID)
		if err != nil {
			return err
		}
		pos := election.Position{
			ID:          uuid.New(),
			ElectionID:  e.ID,
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Order:       len(existing),
			Min:         in.Min,
			Max:         in.Max,
			CreatedAt:   s.clock(),
		}
		if err := pos.Validate(); err != nil {
			return err
		}
		if err := tx.Positions().Create(ctx, &pos); err != nil {
			return err
		}
		out = pos
		return nil
	})
	return out, err
}

type UpdatePositionInput struct {
	PositionInput
	Order *int `validate:"omitempty,gte=0"`
}

func (s *ElectionService) UpdatePosition(ctx context.Context, p access.Principal, electionID, positionID uuid.UUID, in UpdatePositionInput) (election.Position, error) {
	if err := s.check(in); err != nil {
		return election.Position{}, err
	}
	var out election.Position
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		pos, err := tx.Positions().GetByID(ctx, e.ID, positionID)
		if err != nil {
			return err
		}
		pos.Name = strings.TrimSpace(in.Name)
		pos.Description = in.Description
		pos.Min, pos.Max = in.Min, in.Max
		if in.Order != nil {
			pos.Order = *in.Order
		}
		if err := pos.Validate(); err != nil {
			return err
		}
		if err := tx.Positions().Update(ctx, &pos); err != nil {
			return err
		}
		out = pos
		return nil
	})
	return out, err
}

func (s *ElectionService) DeletePosition(ctx context.Context, p access.Principal, electionID, positionID uuid.UUID) error {
	return s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		return tx.Positions().SoftDelete(ctx, e.ID, positionID, s.clock())
	})
}

type PartylistInput struct {
	Name    string `validate:"required,max=255"`
	Acronym string `validate:"required,max=24,alphanum"`
}

func (s *ElectionService) AddPartylist(ctx context.Context, p access.Principal, electionID uuid.UUID, in PartylistInput) (election.Partylist, error) {
	in.Acronym = strings.ToUpper(strings.TrimSpace(in.Acronym))
	if err := s.check(in); err != nil {
		return election.Partylist{}, err
	}
	if in.Acronym == election.IndependentAcronym {
		return election.Partylist{}, eboto_errors.ErrInvalidInput
	}
	var out election.Partylist
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, false)
		if err != nil {
			return err
		}
		pl := election.Partylist{
			ID:         uuid.New(),
			ElectionID: e.ID,
			Name:       strings.TrimSpace(in.Name),
			Acronym:    in.Acronym,
			CreatedAt:  s.clock(),
		}
		if err := tx.Partylists().Create(ctx, &pl); err != nil {
			return err
		}
		out = pl
		return nil
	})
	return out, err
}

// ListPartylists omits the reserved independent partylist.
func (s *ElectionService) ListPartylists(ctx context.Context, p access.Principal, electionID uuid.UUID) ([]election.Partylist, error) {
	if _, err := requireCommissioner(ctx, s.store, p, electionID, false); err != nil {
		return nil, err
	}
	all, err := s.store.Partylists().ListByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	out := make([]election.Partylist, 0, len(all))
	for _, pl := range all {
		if !pl.IsIndependent() {
			out = append(out, pl)
		}
	}
	return out, nil
}

type CandidateInput struct {
	PositionID  uuid.UUID  `validate:"required"`
	PartylistID *uuid.UUID `validate:"omitempty"`
	Slug        string     `validate:"required,min=3,max=64,slug"`
	FirstName   string     `validate:"required,max=255"`
	MiddleName  string     `validate:"max=255"`
	LastName    string     `validate:"required,max=255"`
	ImageKey    string     `validate:"max=512"`
	Platform    election.Platform
}

func (s *ElectionService) AddCandidate(ctx context.Context, p access.Principal, electionID uuid.UUID, in CandidateInput) (election.Candidate, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if err := s.check(in); err != nil {
		return election.Candidate{}, err
	}
	var out election.Candidate
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		c := election.Candidate{ID: uuid.New(), ElectionID: e.ID, CreatedAt: s.clock()}
		if err := applyCandidateInput(ctx, tx, &c, in); err != nil {
			return err
		}
		if err := tx.Candidates().Create(ctx, &c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *ElectionService) UpdateCandidate(ctx context.Context, p access.Principal, electionID, candidateID uuid.UUID, in CandidateInput) (election.Candidate, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if err := s.check(in); err != nil {
		return election.Candidate{}, err
	}
	var out election.Candidate
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		c, err := tx.Candidates().GetByID(ctx, e.ID, candidateID)
		if err != nil {
			return err
		}
		if err := applyCandidateInput(ctx, tx, &c, in); err != nil {
			return err
		}
		if err := tx.Candidates().Update(ctx, &c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// applyCandidateInput resolves the position and partylist inside the
// election, defaulting to the independent partylist.
func applyCandidateInput(ctx context.Context, tx repository.Store, c *election.Candidate, in CandidateInput) error {
	if _, err := tx.Positions().GetByID(ctx, c.ElectionID, in.PositionID); err != nil {
		if isNotFound(err) {
			return eboto_errors.ErrInvalidInput
		}
		return err
	}
	var pl election.Partylist
	var err error
	if in.PartylistID != nil {
		pl, err = tx.Partylists().GetByID(ctx, c.ElectionID, *in.PartylistID)
	} else {
		pl, err = tx.Partylists().GetByAcronym(ctx, c.ElectionID, election.IndependentAcronym)
	}
	if err != nil {
		if isNotFound(err) {
			return eboto_errors.ErrInvalidInput
		}
		return err
	}
	c.PositionID = in.PositionID
	c.PartylistID = pl.ID
	c.Slug = in.Slug
	c.FirstName = strings.TrimSpace(in.FirstName)
	c.MiddleName = strings.TrimSpace(in.MiddleName)
	c.LastName = strings.TrimSpace(in.LastName)
	c.ImageKey = in.ImageKey
	c.Platform = in.Platform
	return nil
}

func (s *ElectionService) DeleteCandidate(ctx context.Context, p access.Principal, electionID, candidateID uuid.UUID) error {
	return s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		if err := s.ensureBallotEditable(ctx, tx, e); err != nil {
			return err
		}
		return tx.Candidates().SoftDelete(ctx, e.ID, candidateID, s.clock())
	})
}

type VoterInput struct {
	Email  string            `validate:"required,email,max=320"`
	UserID *uuid.UUID        `validate:"omitempty"`
	Field  map[string]string `validate:"omitempty,dive,keys,required,max=64,endkeys,max=255"`
}

func (s *ElectionService) AddVoter(ctx context.Context, p access.Principal, electionID uuid.UUID, in VoterInput) (voter.Voter, error) {
	in.Email = voter.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return voter.Voter{}, err
	}
	var out voter.Voter
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, false)
		if err != nil {
			return err
		}
		v := voter.Voter{
			ID:         uuid.New(),
			ElectionID: e.ID,
			Email:      in.Email,
			Field:      in.Field,
			CreatedAt:  s.clock(),
		}
		if in.UserID != nil {
			v.UserID = uuid.NullUUID{UUID: *in.UserID, Valid: true}
		}
		if err := tx.Voters().Create(ctx, &v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// RemoveVoter soft-deletes a voter who has not voted. Voters with a cast
// ballot stay so the tally and turnout remain consistent.
func (s *ElectionService) RemoveVoter(ctx context.Context, p access.Principal, electionID, voterID uuid.UUID) error {
	return s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, false)
		if err != nil {
			return err
		}
		v, err := tx.Voters().LockByID(ctx, e.ID, voterID)
		if err != nil {
			return err
		}
		if v.HasVoted() {
			return eboto_errors.ErrConflict
		}
		return tx.Voters().SoftDelete(ctx, e.ID, v.ID, s.clock())
	})
}

func (s *ElectionService) ListVoters(ctx context.Context, p access.Principal, electionID uuid.UUID) ([]voter.Voter, error) {
	if _, err := requireCommissioner(ctx, s.store, p, electionID, false); err != nil {
		return nil, err
	}
	return s.store.Voters().ListByElection(ctx, electionID)
}

type VoterFieldInput struct {
	Name string `validate:"required,max=64"`
}

func (s *ElectionService) AddVoterField(ctx context.Context, p access.Principal, electionID uuid.UUID, in VoterFieldInput) (voter.Field, error) {
	if err := s.check(in); err != nil {
		return voter.Field{}, err
	}
	if _, err := requireCommissioner(ctx, s.store, p, electionID, false); err != nil {
		return voter.Field{}, err
	}
	f := voter.Field{ID: uuid.New(), ElectionID: electionID, Name: strings.TrimSpace(in.Name), CreatedAt: s.clock()}
	if err := s.store.Voters().AddField(ctx, &f); err != nil {
		return voter.Field{}, err
	}
	return f, nil
}

type CommissionerInput struct {
	UserID uuid.UUID `validate:"required"`
	Email  string    `validate:"required,email,max=320"`
}

func (s *ElectionService) AddCommissioner(ctx context.Context, p access.Principal, electionID uuid.UUID, in CommissionerInput) (election.Commissioner, error) {
	in.Email = voter.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return election.Commissioner{}, err
	}
	var out election.Commissioner
	err := s.mutate(ctx, electionID, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, false)
		if err != nil {
			return err
		}
		c := election.Commissioner{ID: uuid.New(), ElectionID: e.ID, UserID: in.UserID, Email: in.Email, CreatedAt: s.clock()}
		if err := tx.Commissioners().Add(ctx, &c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}
