package result

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tally is the live count of committed votes for one election.
type Tally struct {
	ElectionID  uuid.UUID       `json:"election_id"`
	Positions   []PositionTally `json:"positions"`
	TotalVoters int             `json:"total_voters"`
	VotedCount  int             `json:"voted_count"`
	ComputedAt  time.Time       `json:"computed_at"`
}

type PositionTally struct {
	PositionID   uuid.UUID        `json:"position_id"`
	Name         string           `json:"name"`
	Order        int              `json:"order"`
	Min          int              `json:"min"`
	Max          int              `json:"max"`
	Candidates   []CandidateTally `json:"candidates"`
	AbstainCount int              `json:"abstain_count"`
}

type CandidateTally struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	Partylist   string    `json:"partylist"`
	VoteCount   int       `json:"vote_count"`
}

// Counts returns candidate id -> votes for a position, or nil if absent.
func (t Tally) Counts(positionID uuid.UUID) map[uuid.UUID]int {
	for _, p := range t.Positions {
		if p.PositionID != positionID {
			continue
		}
		out := make(map[uuid.UUID]int, len(p.Candidates))
		for _, c := range p.Candidates {
			out[c.CandidateID] = c.VoteCount
		}
		return out
	}
	return nil
}

// Snapshot is the denormalized payload stored in a generated result. It
// carries names and bounds so it stays meaningful after live rows change.
type Snapshot struct {
	ElectionID   uuid.UUID       `json:"election_id"`
	ElectionSlug string          `json:"election_slug"`
	ElectionName string          `json:"election_name"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	ClosesAt     time.Time       `json:"closes_at"`
	Positions    []PositionTally `json:"positions"`
	TotalVoters  int             `json:"total_voters"`
	VotedCount   int             `json:"voted_count"`
	Turnout      float64         `json:"turnout"`
	Provisional  bool            `json:"provisional,omitempty"`
}

// Generated is an immutable frozen result, unique per (election, closes_at).
type Generated struct {
	ID         uuid.UUID
	ElectionID uuid.UUID
	ClosesAt   time.Time
	Payload    json.RawMessage
	CreatedAt  time.Time
}

func (g Generated) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(g.Payload, &s)
	return s, err
}
