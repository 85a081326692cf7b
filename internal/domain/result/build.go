package result

import (
	"sort"
	"time"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

// VoteCount is one (position, candidate) group of vote rows. A null
// CandidateID groups the abstain markers.
type VoteCount struct {
	PositionID  uuid.UUID
	CandidateID uuid.NullUUID
	Count       int
}

// Inputs is everything a tally is computed from, loaded by explicit queries.
type Inputs struct {
	Election    election.Election
	Positions   []election.Position
	Candidates  []election.Candidate
	Partylists  []election.Partylist
	Counts      []VoteCount
	TotalVoters int
	VotedCount  int
}

// Build assembles a tally. Every live position and candidate appears, with
// zero counts included, ordered by position order then candidate name.
// Removed positions and candidates stay in while they hold vote rows, so a
// tally always accounts for every committed vote.
func Build(in Inputs, at time.Time) Tally {
	acronyms := make(map[uuid.UUID]string, len(in.Partylists))
	for _, p := range in.Partylists {
		acronyms[p.ID] = p.Acronym
	}

	byCandidate := make(map[uuid.UUID]int)
	abstains := make(map[uuid.UUID]int)
	voted := make(map[uuid.UUID]bool)
	for _, vc := range in.Counts {
		if vc.Count > 0 {
			voted[vc.PositionID] = true
		}
		if vc.CandidateID.Valid {
			byCandidate[vc.CandidateID.UUID] += vc.Count
		} else {
			abstains[vc.PositionID] += vc.Count
		}
	}

	positions := make([]election.Position, 0, len(in.Positions))
	for _, p := range in.Positions {
		if p.DeletedAt == nil || voted[p.ID] {
			positions = append(positions, p)
		}
	}
	sort.SliceStable(positions, func(i, j int) bool { return positions[i].Order < positions[j].Order })

	t := Tally{
		ElectionID:  in.Election.ID,
		TotalVoters: in.TotalVoters,
		VotedCount:  in.VotedCount,
		ComputedAt:  at,
	}
	for _, p := range positions {
		pt := PositionTally{
			PositionID:   p.ID,
			Name:         p.Name,
			Order:        p.Order,
			Min:          p.Min,
			Max:          p.Max,
			AbstainCount: abstains[p.ID],
			Candidates:   []CandidateTally{},
		}
		for _, c := range in.Candidates {
			if c.PositionID != p.ID || (c.DeletedAt != nil && byCandidate[c.ID] == 0) {
				continue
			}
			pt.Candidates = append(pt.Candidates, CandidateTally{
				CandidateID: c.ID,
				Name:        c.FullName(),
				Partylist:   acronyms[c.PartylistID],
				VoteCount:   byCandidate[c.ID],
			})
		}
		sort.SliceStable(pt.Candidates, func(i, j int) bool { return pt.Candidates[i].Name < pt.Candidates[j].Name })
		t.Positions = append(t.Positions, pt)
	}
	return t
}

// Freeze deep-copies a tally into a snapshot for the given end boundary.
func Freeze(e election.Election, t Tally, closesAt time.Time) Snapshot {
	s := Snapshot{
		ElectionID:   e.ID,
		ElectionSlug: e.Slug,
		ElectionName: e.Name,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		ClosesAt:     closesAt,
		TotalVoters:  t.TotalVoters,
		VotedCount:   t.VotedCount,
	}
	if t.TotalVoters > 0 {
		s.Turnout = float64(t.VotedCount) / float64(t.TotalVoters)
	}
	for _, p := range t.Positions {
		cp := p
		cp.Candidates = append([]CandidateTally(nil), p.Candidates...)
		s.Positions = append(s.Positions, cp)
	}
	return s
}
