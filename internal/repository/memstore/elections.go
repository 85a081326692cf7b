package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

type electionRepo struct{ s *Store }

func (r electionRepo) Create(_ context.Context, e *election.Election) error {
	return r.s.do(func(st *state) error {
		for _, other := range st.elections {
			if !other.IsDeleted() && other.Slug == e.Slug {
				return alreadyExists("election slug")
			}
		}
		if _, ok := st.elections[e.ID]; ok {
			return alreadyExists("election id")
		}
		st.elections[e.ID] = *e
		return nil
	})
}

func (r electionRepo) GetByID(_ context.Context, id uuid.UUID) (election.Election, error) {
	var out election.Election
	err := r.s.do(func(st *state) error {
		e, ok := st.elections[id]
		if !ok || e.IsDeleted() {
			return eboto_errors.ErrNotFound
		}
		out = e
		return nil
	})
	return out, err
}

func (r electionRepo) GetBySlug(_ context.Context, slug string) (election.Election, error) {
	var out election.Election
	err := r.s.do(func(st *state) error {
		for _, e := range st.elections {
			if !e.IsDeleted() && e.Slug == slug {
				out = e
				return nil
			}
		}
		return eboto_errors.ErrNotFound
	})
	return out, err
}

// LockByID is GetByID; WithTx already serializes writers.
func (r electionRepo) LockByID(ctx context.Context, id uuid.UUID) (election.Election, error) {
	return r.GetByID(ctx, id)
}

func (r electionRepo) Update(_ context.Context, e *election.Election) error {
	return r.s.do(func(st *state) error {
		cur, ok := st.elections[e.ID]
		if !ok || cur.IsDeleted() {
			return eboto_errors.ErrNotFound
		}
		for id, other := range st.elections {
			if id != e.ID && !other.IsDeleted() && other.Slug == e.Slug {
				return alreadyExists("election slug")
			}
		}
		next := *e
		next.OpenedAt = cur.OpenedAt
		next.CreatedAt = cur.CreatedAt
		next.DeletedAt = nil
		st.elections[e.ID] = next
		return nil
	})
}

func (r electionRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.s.do(func(st *state) error {
		e, ok := st.elections[id]
		if !ok || e.IsDeleted() {
			return eboto_errors.ErrNotFound
		}
		e.DeletedAt = &at
		e.UpdatedAt = at
		st.elections[id] = e
		return nil
	})
}

func (r electionRepo) MarkOpened(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var opened bool
	err := r.s.do(func(st *state) error {
		e, ok := st.elections[id]
		if !ok || e.IsDeleted() || e.Publicity != election.PublicityPrivate || e.OpenedAt != nil {
			return nil
		}
		e.Publicity = election.PublicityVoter
		e.OpenedAt = &at
		e.UpdatedAt = at
		st.elections[id] = e
		opened = true
		return nil
	})
	return opened, err
}

func (r electionRepo) ListStartCandidates(_ context.Context, now time.Time) ([]election.Election, error) {
	return r.filter(func(_ *state, e election.Election) bool {
		return e.Publicity == election.PublicityPrivate && e.OpenedAt == nil &&
			!e.StartDate.After(now) && e.EndDate.After(now)
	}, func(a, b election.Election) bool { return a.StartDate.Before(b.StartDate) })
}

func (r electionRepo) ListEndCandidates(_ context.Context, now time.Time) ([]election.Election, error) {
	horizon := now.Add(24 * time.Hour)
	return r.filter(func(st *state, e election.Election) bool {
		if e.EndDate.After(horizon) {
			return false
		}
		for _, g := range st.results {
			if g.ElectionID == e.ID {
				return false
			}
		}
		return true
	}, func(a, b election.Election) bool { return a.EndDate.Before(b.EndDate) })
}

func (r electionRepo) filter(keep func(*state, election.Election) bool, less func(a, b election.Election) bool) ([]election.Election, error) {
	var out []election.Election
	err := r.s.do(func(st *state) error {
		for _, e := range st.elections {
			if !e.IsDeleted() && keep(st, e) {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, err
}

type commissionerRepo struct{ s *Store }

func (r commissionerRepo) Add(_ context.Context, c *election.Commissioner) error {
	return r.s.do(func(st *state) error {
		for _, other := range st.commissioners {
			if other.DeletedAt == nil && other.ElectionID == c.ElectionID && other.UserID == c.UserID {
				return alreadyExists("commissioner")
			}
		}
		st.commissioners = append(st.commissioners, *c)
		return nil
	})
}

func (r commissionerRepo) IsCommissioner(_ context.Context, electionID, userID uuid.UUID) (bool, error) {
	var found bool
	err := r.s.do(func(st *state) error {
		for _, c := range st.commissioners {
			if c.DeletedAt == nil && c.ElectionID == electionID && c.UserID == userID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r commissionerRepo) ListByElection(_ context.Context, electionID uuid.UUID) ([]election.Commissioner, error) {
	var out []election.Commissioner
	err := r.s.do(func(st *state) error {
		for _, c := range st.commissioners {
			if c.DeletedAt == nil && c.ElectionID == electionID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

type positionRepo struct{ s *Store }

func (r positionRepo) Create(_ context.Context, p *election.Position) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.positions[p.ID]; ok {
			return alreadyExists("position id")
		}
		st.positions[p.ID] = *p
		return nil
	})
}

func (r positionRepo) GetByID(_ context.Context, electionID, id uuid.UUID) (election.Position, error) {
	var out election.Position
	err := r.s.do(func(st *state) error {
		p, ok := st.positions[id]
		if !ok || p.DeletedAt != nil || p.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r positionRepo) Update(_ context.Context, p *election.Position) error {
	return r.s.do(func(st *state) error {
		cur, ok := st.positions[p.ID]
		if !ok || cur.DeletedAt != nil || cur.ElectionID != p.ElectionID {
			return eboto_errors.ErrNotFound
		}
		cur.Name, cur.Description, cur.Order, cur.Min, cur.Max = p.Name, p.Description, p.Order, p.Min, p.Max
		st.positions[p.ID] = cur
		return nil
	})
}

func (r positionRepo) SoftDelete(_ context.Context, electionID, id uuid.UUID, at time.Time) error {
	return r.s.do(func(st *state) error {
		p, ok := st.positions[id]
		if !ok || p.DeletedAt != nil || p.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		p.DeletedAt = &at
		st.positions[id] = p
		return nil
	})
}

func (r positionRepo) ListByElection(_ context.Context, electionID uuid.UUID) ([]election.Position, error) {
	return r.list(electionID, false)
}

func (r positionRepo) ListForTally(_ context.Context, electionID uuid.UUID) ([]election.Position, error) {
	return r.list(electionID, true)
}

func (r positionRepo) list(electionID uuid.UUID, withVoted bool) ([]election.Position, error) {
	var out []election.Position
	err := r.s.do(func(st *state) error {
		for _, p := range st.positions {
			if p.ElectionID != electionID {
				continue
			}
			if p.DeletedAt == nil || (withVoted && st.hasVote(func(v ballot.Vote) bool { return v.PositionID == p.ID })) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

type partylistRepo struct{ s *Store }

func (r partylistRepo) Create(_ context.Context, p *election.Partylist) error {
	return r.s.do(func(st *state) error {
		for _, other := range st.partylists {
			if other.DeletedAt == nil && other.ElectionID == p.ElectionID && other.Acronym == p.Acronym {
				return alreadyExists("partylist acronym")
			}
		}
		st.partylists[p.ID] = *p
		return nil
	})
}

func (r partylistRepo) GetByID(_ context.Context, electionID, id uuid.UUID) (election.Partylist, error) {
	var out election.Partylist
	err := r.s.do(func(st *state) error {
		p, ok := st.partylists[id]
		if !ok || p.DeletedAt != nil || p.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r partylistRepo) GetByAcronym(_ context.Context, electionID uuid.UUID, acronym string) (election.Partylist, error) {
	var out election.Partylist
	err := r.s.do(func(st *state) error {
		for _, p := range st.partylists {
			if p.DeletedAt == nil && p.ElectionID == electionID && strings.EqualFold(p.Acronym, acronym) {
				out = p
				return nil
			}
		}
		return eboto_errors.ErrNotFound
	})
	return out, err
}

func (r partylistRepo) ListByElection(_ context.Context, electionID uuid.UUID) ([]election.Partylist, error) {
	var out []election.Partylist
	err := r.s.do(func(st *state) error {
		for _, p := range st.partylists {
			if p.DeletedAt == nil && p.ElectionID == electionID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type candidateRepo struct{ s *Store }

func (r candidateRepo) Create(_ context.Context, c *election.Candidate) error {
	return r.s.do(func(st *state) error {
		for _, other := range st.candidates {
			if other.DeletedAt == nil && other.ElectionID == c.ElectionID && other.Slug == c.Slug {
				return alreadyExists("candidate slug")
			}
		}
		st.candidates[c.ID] = *c
		return nil
	})
}

func (r candidateRepo) GetByID(_ context.Context, electionID, id uuid.UUID) (election.Candidate, error) {
	var out election.Candidate
	err := r.s.do(func(st *state) error {
		c, ok := st.candidates[id]
		if !ok || c.DeletedAt != nil || c.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		out = c
		return nil
	})
	return out, err
}

func (r candidateRepo) Update(_ context.Context, c *election.Candidate) error {
	return r.s.do(func(st *state) error {
		cur, ok := st.candidates[c.ID]
		if !ok || cur.DeletedAt != nil || cur.ElectionID != c.ElectionID {
			return eboto_errors.ErrNotFound
		}
		for id, other := range st.candidates {
			if id != c.ID && other.DeletedAt == nil && other.ElectionID == c.ElectionID && other.Slug == c.Slug {
				return alreadyExists("candidate slug")
			}
		}
		next := *c
		next.CreatedAt = cur.CreatedAt
		next.DeletedAt = nil
		st.candidates[c.ID] = next
		return nil
	})
}

func (r candidateRepo) SoftDelete(_ context.Context, electionID, id uuid.UUID, at time.Time) error {
	return r.s.do(func(st *state) error {
		c, ok := st.candidates[id]
		if !ok || c.DeletedAt != nil || c.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		c.DeletedAt = &at
		st.candidates[id] = c
		return nil
	})
}

func (r candidateRepo) ListByElection(_ context.Context, electionID uuid.UUID) ([]election.Candidate, error) {
	return r.list(electionID, false)
}

func (r candidateRepo) ListForTally(_ context.Context, electionID uuid.UUID) ([]election.Candidate, error) {
	return r.list(electionID, true)
}

func (r candidateRepo) list(electionID uuid.UUID, withVoted bool) ([]election.Candidate, error) {
	var out []election.Candidate
	err := r.s.do(func(st *state) error {
		for _, c := range st.candidates {
			if c.ElectionID != electionID {
				continue
			}
			if c.DeletedAt == nil || (withVoted && st.hasVote(func(v ballot.Vote) bool { return v.CandidateID.Valid && v.CandidateID.UUID == c.ID })) {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, err
}
