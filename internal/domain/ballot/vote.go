package ballot

import (
	"sort"
	"time"

	"eboto/internal/domain/election"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

// Vote is one insert-only row. A null CandidateID is the abstain marker for
// its position.
type Vote struct {
	ID          uuid.UUID
	ElectionID  uuid.UUID
	VoterID     uuid.UUID
	PositionID  uuid.UUID
	CandidateID uuid.NullUUID
	CreatedAt   time.Time
}

func (v Vote) IsAbstain() bool {
	return !v.CandidateID.Valid
}

// Receipt echoes an accepted ballot for the confirmation email.
type Receipt struct {
	ElectionID uuid.UUID     `json:"election_id"`
	VoterID    uuid.UUID     `json:"voter_id"`
	CastAt     time.Time     `json:"cast_at"`
	Lines      []ReceiptLine `json:"lines"`
}

type ReceiptLine struct {
	PositionID   uuid.UUID   `json:"position_id"`
	PositionName string      `json:"position_name"`
	CandidateIDs []uuid.UUID `json:"candidate_ids,omitempty"`
	Candidates   []string    `json:"candidates,omitempty"`
	Abstained    bool        `json:"abstained"`
}

// Plan validates sels against the election's live positions and candidates
// and returns the rows to insert. It enforces full coverage, the [min, max]
// bound per position and candidate membership.
func Plan(electionID, voterID uuid.UUID, positions []election.Position, candidates []election.Candidate, sels Selections, at time.Time) ([]Vote, Receipt, error) {
	byID := make(map[uuid.UUID]election.Candidate, len(candidates))
	for _, c := range candidates {
		if c.DeletedAt == nil && c.ElectionID == electionID {
			byID[c.ID] = c
		}
	}

	ordered := make([]election.Position, 0, len(positions))
	live := make(map[uuid.UUID]struct{}, len(positions))
	for _, p := range positions {
		if p.DeletedAt != nil || p.ElectionID != electionID {
			continue
		}
		ordered = append(ordered, p)
		live[p.ID] = struct{}{}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for posID := range sels {
		if _, ok := live[posID]; !ok {
			return nil, Receipt{}, eboto_errors.InvalidSelectionCount(posID)
		}
	}

	receipt := Receipt{ElectionID: electionID, VoterID: voterID, CastAt: at}
	var votes []Vote
	for _, p := range ordered {
		sel, ok := sels[p.ID]
		if !ok {
			return nil, Receipt{}, eboto_errors.InvalidSelectionCount(p.ID)
		}
		ids := CandidatesOf(sel)
		if len(ids) < p.Min || len(ids) > p.Max {
			return nil, Receipt{}, eboto_errors.InvalidSelectionCount(p.ID)
		}

		line := ReceiptLine{PositionID: p.ID, PositionName: p.Name}
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			c, ok := byID[id]
			if !ok || c.PositionID != p.ID {
				return nil, Receipt{}, eboto_errors.InvalidCandidate(p.ID, id)
			}
			if _, dup := seen[id]; dup {
				return nil, Receipt{}, eboto_errors.InvalidCandidate(p.ID, id)
			}
			seen[id] = struct{}{}
			votes = append(votes, Vote{
				ID:          uuid.New(),
				ElectionID:  electionID,
				VoterID:     voterID,
				PositionID:  p.ID,
				CandidateID: uuid.NullUUID{UUID: id, Valid: true},
				CreatedAt:   at,
			})
			line.CandidateIDs = append(line.CandidateIDs, id)
			line.Candidates = append(line.Candidates, c.FullName())
		}
		if len(ids) == 0 {
			line.Abstained = true
			votes = append(votes, Vote{
				ID:         uuid.New(),
				ElectionID: electionID,
				VoterID:    voterID,
				PositionID: p.ID,
				CreatedAt:  at,
			})
		}
		receipt.Lines = append(receipt.Lines, line)
	}
	return votes, receipt, nil
}
