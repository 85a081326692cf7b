package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/domain/voter"
	"eboto/internal/repository"
	eboto_errors "eboto/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// ElectionService serves election pages and the commissioner dashboard.
type ElectionService struct {
	store    repository.Store
	loc      *time.Location
	validate *validator.Validate
	media    MediaSigner
	cache    TallyCache
	clock    func() time.Time
}

func NewElectionService(store repository.Store, loc *time.Location) *ElectionService {
	return &ElectionService{store: store, loc: loc, validate: newValidator(), clock: time.Now}
}

func (s *ElectionService) check(in interface{}) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", eboto_errors.ErrInvalidInput, err)
	}
	return nil
}

// LoadSubject exposes the eligibility loader to the HTTP and websocket layers.
func (s *ElectionService) LoadSubject(ctx context.Context, p access.Principal, slug string) (access.Subject, error) {
	return loadElectionForEligibility(ctx, s.store, p, slug, s.clock(), s.loc)
}

// ElectionView is what a permitted viewer sees on the election page.
type ElectionView struct {
	Election       election.Election
	Positions      []election.Position
	Candidates     []election.Candidate
	Partylists     []election.Partylist
	IsCommissioner bool
	IsVoter        bool
	HasVoted       bool
	CanVote        access.Decision
	OpensAt        time.Time
	ClosesAt       time.Time
	Ongoing        bool
	Ended          bool
}

func (s *ElectionService) View(ctx context.Context, p access.Principal, slug string) (ElectionView, error) {
	subject, err := s.LoadSubject(ctx, p, slug)
	if err != nil {
		return ElectionView{}, err
	}
	if d := access.CanView(p, subject); !d.Allowed() {
		return ElectionView{}, d.Err()
	}
	e := *subject.Election
	view := ElectionView{
		Election:       e,
		IsCommissioner: subject.IsCommissioner,
		IsVoter:        subject.Voter != nil,
		HasVoted:       subject.Voter != nil && subject.Voter.HasVoted(),
		CanVote:        access.CanVote(p, subject),
		OpensAt:        e.OpensAt(s.loc),
		ClosesAt:       e.ClosesAt(s.loc),
		Ongoing:        e.Ongoing(subject.Now, s.loc),
		Ended:          e.HasEnded(subject.Now, s.loc),
	}
	if err := s.loadRoster(ctx, s.store, e.ID, &view); err != nil {
		return ElectionView{}, err
	}
	return view, nil
}

// BallotForm returns the positions and candidates for a voter allowed to vote.
func (s *ElectionService) BallotForm(ctx context.Context, p access.Principal, slug string) (ElectionView, error) {
	subject, err := s.LoadSubject(ctx, p, slug)
	if err != nil {
		return ElectionView{}, err
	}
	if d := access.CanVote(p, subject); !d.Allowed() {
		return ElectionView{}, d.Err()
	}
	view := ElectionView{Election: *subject.Election, IsVoter: true, CanVote: access.Allow}
	if err := s.loadRoster(ctx, s.store, subject.Election.ID, &view); err != nil {
		return ElectionView{}, err
	}
	return view, nil
}

func (s *ElectionService) loadRoster(ctx context.Context, st repository.Store, electionID uuid.UUID, view *ElectionView) error {
	var err error
	if view.Positions, err = st.Positions().ListByElection(ctx, electionID); err != nil {
		return err
	}
	if view.Candidates, err = st.Candidates().ListByElection(ctx, electionID); err != nil {
		return err
	}
	view.Partylists, err = st.Partylists().ListByElection(ctx, electionID)
	return err
}

type CreateElectionInput struct {
	Name            string `validate:"required,max=255"`
	Slug            string `validate:"required,min=3,max=64,slug"`
	Description     string `validate:"max=2000"`
	StartDate       time.Time
	EndDate         time.Time
	VotingHourStart int                `validate:"gte=0,lte=23"`
	VotingHourEnd   int                `validate:"gte=1,lte=24"`
	Publicity       election.Publicity `validate:"omitempty,oneof=PRIVATE VOTER PUBLIC"`
	CreatorEmail    string             `validate:"omitempty,email"`
}

// Create makes the caller the first commissioner and seeds the reserved
// independent partylist. New elections are PRIVATE unless stated otherwise.
func (s *ElectionService) Create(ctx context.Context, p access.Principal, in CreateElectionInput) (election.Election, error) {
	if !p.Authenticated {
		return election.Election{}, eboto_errors.ErrUnauthorized
	}
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if err := s.check(in); err != nil {
		return election.Election{}, err
	}
	now := s.clock()
	publicity := in.Publicity
	if publicity == "" {
		publicity = election.PublicityPrivate
	}
	e := election.Election{
		ID:              uuid.New(),
		Slug:            in.Slug,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		VotingHourStart: in.VotingHourStart,
		VotingHourEnd:   in.VotingHourEnd,
		Publicity:       publicity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Validate(); err != nil {
		return election.Election{}, err
	}
	email := p.Email
	if email == "" {
		email = voter.NormalizeEmail(in.CreatorEmail)
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Elections().Create(ctx, &e); err != nil {
			return err
		}
		if err := tx.Partylists().Create(ctx, &election.Partylist{
			ID:         uuid.New(),
			ElectionID: e.ID,
			Name:       "Independent",
			Acronym:    election.IndependentAcronym,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		return tx.Commissioners().Add(ctx, &election.Commissioner{
			ID:         uuid.New(),
			ElectionID: e.ID,
			UserID:     p.UserID,
			Email:      email,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return election.Election{}, err
	}
	return e, nil
}

type UpdateElectionInput struct {
	Name            *string             `validate:"omitempty,min=1,max=255"`
	Slug            *string             `validate:"omitempty,min=3,max=64,slug"`
	Description     *string             `validate:"omitempty,max=2000"`
	LogoKey         *string             `validate:"omitempty,max=512"`
	StartDate       *time.Time          `validate:"omitempty"`
	EndDate         *time.Time          `validate:"omitempty"`
	VotingHourStart *int                `validate:"omitempty,gte=0,lte=23"`
	VotingHourEnd   *int                `validate:"omitempty,gte=1,lte=24"`
	Publicity       *election.Publicity `validate:"omitempty,oneof=PRIVATE VOTER PUBLIC"`
}

func (in UpdateElectionInput) touchesSchedule() bool {
	return in.Slug != nil || in.StartDate != nil || in.EndDate != nil || in.VotingHourStart != nil || in.VotingHourEnd != nil
}

// Update edits an election. The schedule and slug are locked once voting
// has started.
func (s *ElectionService) Update(ctx context.Context, p access.Principal, electionID uuid.UUID, in UpdateElectionInput) (election.Election, error) {
	if err := s.check(in); err != nil {
		return election.Election{}, err
	}
	var out election.Election
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		e, err := requireCommissioner(ctx, tx, p, electionID, true)
		if err != nil {
			return err
		}
		now := s.clock()
		if in.touchesSchedule() && e.HasStarted(now, s.loc) {
			return eboto_errors.ErrVotingStarted
		}
		if in.Name != nil {
			e.Name = strings.TrimSpace(*in.Name)
		}
		if in.Slug != nil {
			e.Slug = strings.ToLower(*in.Slug)
		}
		if in.Description != nil {
			e.Description = *in.Description
		}
		if in.LogoKey != nil {
			e.LogoKey = *in.LogoKey
		}
		if in.StartDate != nil {
			e.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			e.EndDate = *in.EndDate
		}
		if in.VotingHourStart != nil {
			e.VotingHourStart = *in.VotingHourStart
		}
		if in.VotingHourEnd != nil {
			e.VotingHourEnd = *in.VotingHourEnd
		}
		if in.Publicity != nil {
			e.Publicity = *in.Publicity
		}
		if err := e.Validate(); err != nil {
			return err
		}
		e.UpdatedAt = now
		if err := tx.Elections().Update(ctx, &e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

func (s *ElectionService) Delete(ctx context.Context, p access.Principal, electionID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := requireCommissioner(ctx, tx, p, electionID, true); err != nil {
			return err
		}
		return tx.Elections().SoftDelete(ctx, electionID, s.clock())
	})
}

// requireCommissioner loads the election for a management operation. Non
// commissioners get ErrNotFound, the same as for a missing election.
func requireCommissioner(ctx context.Context, st repository.Store, p access.Principal, electionID uuid.UUID, lock bool) (election.Election, error) {
	if !p.Authenticated {
		return election.Election{}, eboto_errors.ErrUnauthorized
	}
	var e election.Election
	var err error
	if lock {
		e, err = st.Elections().LockByID(ctx, electionID)
	} else {
		e, err = st.Elections().GetByID(ctx, electionID)
	}
	if err != nil {
		return election.Election{}, err
	}
	ok, err := st.Commissioners().IsCommissioner(ctx, e.ID, p.UserID)
	if err != nil {
		return election.Election{}, err
	}
	if !ok {
		return election.Election{}, eboto_errors.ErrNotFound
	}
	return e, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, eboto_errors.ErrNotFound)
}
