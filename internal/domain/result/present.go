package result

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// View is a tally prepared for display.
type View struct {
	ElectionID uuid.UUID      `json:"election_id"`
	Anonymized bool           `json:"anonymized"`
	Final      bool           `json:"final"`
	Positions  []PositionView `json:"positions"`
	VotedCount int            `json:"voted_count"`
	AsOf       time.Time      `json:"as_of"`
}

type PositionView struct {
	PositionID   uuid.UUID       `json:"position_id"`
	Name         string          `json:"name"`
	Candidates   []CandidateView `json:"candidates"`
	AbstainCount int             `json:"abstain_count"`
}

type CandidateView struct {
	CandidateID *uuid.UUID `json:"candidate_id,omitempty"`
	Label       string     `json:"label"`
	Partylist   string     `json:"partylist,omitempty"`
	VoteCount   int        `json:"vote_count"`
}

// Present applies the display policy. While the election is still running,
// candidates are ranked by votes and shown as "Candidate N" with ids and
// partylists hidden; counts are never altered.
func Present(positions []PositionTally, electionID uuid.UUID, ongoing bool, asOf time.Time) View {
	v := View{ElectionID: electionID, Anonymized: ongoing, Final: !ongoing, AsOf: asOf}
	for _, p := range positions {
		pv := PositionView{PositionID: p.PositionID, Name: p.Name, AbstainCount: p.AbstainCount}

		cands := append([]CandidateTally(nil), p.Candidates...)
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].VoteCount > cands[j].VoteCount })

		for i, c := range cands {
			cv := CandidateView{VoteCount: c.VoteCount}
			if ongoing {
				cv.Label = fmt.Sprintf("Candidate %d", i+1)
			} else {
				id := c.CandidateID
				cv.CandidateID = &id
				cv.Label = c.Name
				cv.Partylist = c.Partylist
			}
			pv.Candidates = append(pv.Candidates, cv)
		}
		v.Positions = append(v.Positions, pv)
	}
	return v
}

// PresentTally is Present over a live tally.
func PresentTally(t Tally, ongoing bool) View {
	v := Present(t.Positions, t.ElectionID, ongoing, t.ComputedAt)
	v.VotedCount = t.VotedCount
	return v
}

// PresentSnapshot renders a frozen result; snapshots are always final.
func PresentSnapshot(s Snapshot, generatedAt time.Time) View {
	v := Present(s.Positions, s.ElectionID, false, generatedAt)
	v.VotedCount = s.VotedCount
	v.Final = !s.Provisional
	return v
}
