package memstore

import (
	"context"
	"sort"
	"time"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/outbox"
	"eboto/internal/domain/result"
	"eboto/internal/domain/voter"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

type voterRepo struct{ s *Store }

func (r voterRepo) Create(_ context.Context, v *voter.Voter) error {
	return r.s.do(func(st *state) error {
		email := voter.NormalizeEmail(v.Email)
		for _, other := range st.voters {
			if other.DeletedAt == nil && other.ElectionID == v.ElectionID && voter.NormalizeEmail(other.Email) == email {
				return alreadyExists("voter email")
			}
		}
		next := *v
		next.Email = email
		st.voters[v.ID] = next
		return nil
	})
}

func (r voterRepo) GetByID(_ context.Context, electionID, id uuid.UUID) (voter.Voter, error) {
	var out voter.Voter
	err := r.s.do(func(st *state) error {
		v, ok := st.voters[id]
		if !ok || v.DeletedAt != nil || v.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func (r voterRepo) FindForPrincipal(_ context.Context, electionID, userID uuid.UUID, email string) (voter.Voter, error) {
	var out voter.Voter
	err := r.s.do(func(st *state) error {
		var byEmail *voter.Voter
		for _, v := range st.voters {
			if v.DeletedAt != nil || v.ElectionID != electionID {
				continue
			}
			if v.UserID.Valid && v.UserID.UUID == userID {
				out = v
				return nil
			}
			if byEmail == nil && v.Matches(uuid.Nil, email) {
				match := v
				byEmail = &match
			}
		}
		if byEmail == nil {
			return eboto_errors.ErrNotFound
		}
		out = *byEmail
		return nil
	})
	return out, err
}

func (r voterRepo) LockByID(ctx context.Context, electionID, id uuid.UUID) (voter.Voter, error) {
	return r.GetByID(ctx, electionID, id)
}

func (r voterRepo) MarkVoted(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.s.do(func(st *state) error {
		v, ok := st.voters[id]
		if !ok || v.DeletedAt != nil || v.VotedAt != nil {
			return eboto_errors.ErrNotFound
		}
		v.VotedAt = &at
		st.voters[id] = v
		return nil
	})
}

func (r voterRepo) SoftDelete(_ context.Context, electionID, id uuid.UUID, at time.Time) error {
	return r.s.do(func(st *state) error {
		v, ok := st.voters[id]
		if !ok || v.DeletedAt != nil || v.ElectionID != electionID {
			return eboto_errors.ErrNotFound
		}
		v.DeletedAt = &at
		st.voters[id] = v
		return nil
	})
}

func (r voterRepo) ListByElection(_ context.Context, electionID uuid.UUID) ([]voter.Voter, error) {
	var out []voter.Voter
	err := r.s.do(func(st *state) error {
		for _, v := range st.voters {
			if v.DeletedAt == nil && v.ElectionID == electionID {
				out = append(out, v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, err
}

func (r voterRepo) Counts(_ context.Context, electionID uuid.UUID) (int, int, error) {
	var total, voted int
	err := r.s.do(func(st *state) error {
		for _, v := range st.voters {
			if v.DeletedAt != nil || v.ElectionID != electionID {
				continue
			}
			total++
			if v.HasVoted() {
				voted++
			}
		}
		return nil
	})
	return total, voted, err
}

func (r voterRepo) AddField(_ context.Context, f *voter.Field) error {
	return r.s.do(func(st *state) error {
		st.fields = append(st.fields, *f)
		return nil
	})
}

func (r voterRepo) ListFields(_ context.Context, electionID uuid.UUID) ([]voter.Field, error) {
	var out []voter.Field
	err := r.s.do(func(st *state) error {
		for _, f := range st.fields {
			if f.ElectionID == electionID {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

type voteRepo struct{ s *Store }

type voteKey struct {
	voter, position uuid.UUID
	candidate       uuid.NullUUID
}

func (r voteRepo) InsertBatch(_ context.Context, votes []ballot.Vote) error {
	return r.s.do(func(st *state) error {
		seen := make(map[voteKey]struct{}, len(st.votes)+len(votes))
		for _, v := range st.votes {
			seen[voteKey{v.VoterID, v.PositionID, v.CandidateID}] = struct{}{}
		}
		for _, v := range votes {
			k := voteKey{v.VoterID, v.PositionID, v.CandidateID}
			if _, dup := seen[k]; dup {
				return alreadyExists("vote")
			}
			seen[k] = struct{}{}
		}
		st.votes = append(st.votes, votes...)
		return nil
	})
}

func (r voteRepo) CountByVoter(_ context.Context, electionID, voterID uuid.UUID) (int, error) {
	var n int
	err := r.s.do(func(st *state) error {
		for _, v := range st.votes {
			if v.ElectionID == electionID && v.VoterID == voterID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r voteRepo) CountsByElection(_ context.Context, electionID uuid.UUID) ([]result.VoteCount, error) {
	type key struct {
		position  uuid.UUID
		candidate uuid.NullUUID
	}
	counts := make(map[key]int)
	var order []key
	err := r.s.do(func(st *state) error {
		for _, v := range st.votes {
			if v.ElectionID != electionID {
				continue
			}
			k := key{v.PositionID, v.CandidateID}
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
		return nil
	})
	out := make([]result.VoteCount, 0, len(order))
	for _, k := range order {
		out = append(out, result.VoteCount{PositionID: k.position, CandidateID: k.candidate, Count: counts[k]})
	}
	return out, err
}

type resultRepo struct{ s *Store }

func (r resultRepo) Create(_ context.Context, g *result.Generated) error {
	return r.s.do(func(st *state) error {
		for _, other := range st.results {
			if other.ElectionID == g.ElectionID && other.ClosesAt.Equal(g.ClosesAt) {
				return alreadyExists("generated result")
			}
		}
		next := *g
		next.Payload = append([]byte(nil), g.Payload...)
		st.results = append(st.results, next)
		return nil
	})
}

func (r resultRepo) GetForBoundary(_ context.Context, electionID uuid.UUID, closesAt time.Time) (result.Generated, error) {
	var out result.Generated
	err := r.s.do(func(st *state) error {
		for _, g := range st.results {
			if g.ElectionID == electionID && g.ClosesAt.Equal(closesAt) {
				out = g
				return nil
			}
		}
		return eboto_errors.ErrNotFound
	})
	return out, err
}

func (r resultRepo) Latest(_ context.Context, electionID uuid.UUID) (result.Generated, error) {
	var out result.Generated
	err := r.s.do(func(st *state) error {
		found := false
		for _, g := range st.results {
			if g.ElectionID == electionID && (!found || g.ClosesAt.After(out.ClosesAt)) {
				out = g
				found = true
			}
		}
		if !found {
			return eboto_errors.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r resultRepo) CountByElection(_ context.Context, electionID uuid.UUID) (int, error) {
	var n int
	err := r.s.do(func(st *state) error {
		for _, g := range st.results {
			if g.ElectionID == electionID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type outboxRepo struct{ s *Store }

const maxRetries = 10

func (r outboxRepo) Create(_ context.Context, event *outbox.OutboxEvent) error {
	return r.s.do(func(st *state) error {
		st.outbox = append(st.outbox, *event)
		return nil
	})
}

func (r outboxRepo) GetPending(_ context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var out []outbox.OutboxEvent
	err := r.s.do(func(st *state) error {
		for _, e := range st.outbox {
			if e.Status == outbox.StatusPending && e.RetryCount < maxRetries {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r outboxRepo) update(id uuid.UUID, fn func(e *outbox.OutboxEvent)) error {
	return r.s.do(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return nil
	})
}

func (r outboxRepo) MarkCompleted(_ context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.update(id, func(e *outbox.OutboxEvent) {
		e.Status = outbox.StatusCompleted
		e.ProcessedAt = &now
		e.UpdatedAt = now
	})
}

func (r outboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(id, func(e *outbox.OutboxEvent) {
		e.Status = outbox.StatusFailed
		e.Error = errorMsg
		e.UpdatedAt = time.Now()
	})
}

func (r outboxRepo) IncrementRetry(_ context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(id, func(e *outbox.OutboxEvent) {
		e.RetryCount++
		e.Error = errorMsg
		e.UpdatedAt = time.Now()
	})
}

func (r outboxRepo) CountByType(_ context.Context, aggregateID, eventType string) (int, error) {
	var n int
	err := r.s.do(func(st *state) error {
		for _, e := range st.outbox {
			if e.AggregateID == aggregateID && e.EventType == eventType {
				n++
			}
		}
		return nil
	})
	return n, err
}
