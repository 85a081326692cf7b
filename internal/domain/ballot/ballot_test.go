package ballot

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eboto/internal/domain/election"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	electionID uuid.UUID
	president  election.Position
	senators   election.Position
	positions  []election.Position
	candidates []election.Candidate
	alice      election.Candidate
	bob        election.Candidate
	carol      election.Candidate
	dan        election.Candidate
}

func newFixture() fixture {
	f := fixture{electionID: uuid.New()}
	f.president = election.Position{ID: uuid.New(), ElectionID: f.electionID, Name: "President", Order: 0, Min: 1, Max: 1}
	f.senators = election.Position{ID: uuid.New(), ElectionID: f.electionID, Name: "Senator", Order: 1, Min: 0, Max: 2}
	f.positions = []election.Position{f.senators, f.president}

	mk := func(pos election.Position, first string) election.Candidate {
		return election.Candidate{ID: uuid.New(), ElectionID: f.electionID, PositionID: pos.ID, FirstName: first, LastName: "Santos"}
	}
	f.alice = mk(f.president, "Alice")
	f.bob = mk(f.president, "Bob")
	f.carol = mk(f.senators, "Carol")
	f.dan = mk(f.senators, "Dan")
	f.candidates = []election.Candidate{f.alice, f.bob, f.carol, f.dan}
	return f
}

func TestPlanSingleChoiceBounds(t *testing.T) {
	f := newFixture()
	voterID := uuid.New()
	now := time.Now()

	cases := []struct {
		name string
		sel  Selection
		ok   bool
	}{
		{"zero candidates", Multi{}, false},
		{"abstain on required position", Abstain{}, false},
		{"two candidates", Multi{CandidateIDs: []uuid.UUID{f.alice.ID, f.bob.ID}}, false},
		{"exactly one", Single{CandidateID: f.alice.ID}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sels := Selections{f.president.ID: tc.sel, f.senators.ID: Abstain{}}
			_, _, err := Plan(f.electionID, voterID, f.positions, f.candidates, sels, now)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, eboto_errors.ErrInvalidSelectionCount))
			be, _ := eboto_errors.AsBallotError(err)
			assert.Equal(t, f.president.ID, be.PositionID)
		})
	}
}

func TestPlanWritesAbstainMarker(t *testing.T) {
	f := newFixture()
	voterID := uuid.New()

	votes, receipt, err := Plan(f.electionID, voterID, f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.bob.ID},
		f.senators.ID:  Abstain{},
	}, time.Now())
	require.NoError(t, err)
	require.Len(t, votes, 2)

	var abstains int
	for _, v := range votes {
		if v.IsAbstain() {
			abstains++
			assert.Equal(t, f.senators.ID, v.PositionID)
		}
	}
	assert.Equal(t, 1, abstains)

	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, "President", receipt.Lines[0].PositionName)
	assert.Equal(t, []string{"Bob Santos"}, receipt.Lines[0].Candidates)
	assert.True(t, receipt.Lines[1].Abstained)
}

func TestPlanMultiChoice(t *testing.T) {
	f := newFixture()
	votes, _, err := Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
		f.senators.ID:  Multi{CandidateIDs: []uuid.UUID{f.carol.ID, f.dan.ID}},
	}, time.Now())
	require.NoError(t, err)
	assert.Len(t, votes, 3)
}

func TestPlanRejectsForeignAndDuplicateCandidates(t *testing.T) {
	f := newFixture()

	_, _, err := Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.carol.ID},
		f.senators.ID:  Abstain{},
	}, time.Now())
	be, ok := eboto_errors.AsBallotError(err)
	require.True(t, ok)
	assert.Equal(t, eboto_errors.KindInvalidCandidate, be.Kind)
	assert.Equal(t, f.carol.ID, be.CandidateID)

	_, _, err = Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
		f.senators.ID:  Multi{CandidateIDs: []uuid.UUID{f.dan.ID, f.dan.ID}},
	}, time.Now())
	assert.True(t, errors.Is(err, eboto_errors.ErrInvalidCandidate))

	deleted := time.Now()
	f.candidates[0].DeletedAt = &deleted // alice
	_, _, err = Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
		f.senators.ID:  Abstain{},
	}, time.Now())
	assert.True(t, errors.Is(err, eboto_errors.ErrInvalidCandidate))
}

func TestPlanRequiresFullCoverage(t *testing.T) {
	f := newFixture()

	_, _, err := Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
	}, time.Now())
	be, ok := eboto_errors.AsBallotError(err)
	require.True(t, ok)
	assert.Equal(t, eboto_errors.KindInvalidSelectionCount, be.Kind)
	assert.Equal(t, f.senators.ID, be.PositionID)

	unknown := uuid.New()
	_, _, err = Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
		f.senators.ID:  Abstain{},
		unknown:        Abstain{},
	}, time.Now())
	be, ok = eboto_errors.AsBallotError(err)
	require.True(t, ok)
	assert.Equal(t, unknown, be.PositionID)
}

func TestPlanIgnoresDeletedPositions(t *testing.T) {
	f := newFixture()
	deleted := time.Now()
	f.positions[0].DeletedAt = &deleted // senators

	votes, _, err := Plan(f.electionID, uuid.New(), f.positions, f.candidates, Selections{
		f.president.ID: Single{CandidateID: f.alice.ID},
	}, time.Now())
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func TestSelectionsJSONShapes(t *testing.T) {
	pos := uuid.New()
	cand := uuid.New()

	t.Run("single", func(t *testing.T) {
		var s Selections
		require.NoError(t, json.Unmarshal([]byte(`{"`+pos.String()+`":{"candidate_id":"`+cand.String()+`"}}`), &s))
		assert.Equal(t, Single{CandidateID: cand}, s[pos])
	})

	t.Run("multi", func(t *testing.T) {
		var s Selections
		require.NoError(t, json.Unmarshal([]byte(`{"`+pos.String()+`":{"candidate_ids":["`+cand.String()+`"]}}`), &s))
		assert.Equal(t, Multi{CandidateIDs: []uuid.UUID{cand}}, s[pos])
	})

	t.Run("abstain", func(t *testing.T) {
		var s Selections
		require.NoError(t, json.Unmarshal([]byte(`{"`+pos.String()+`":{"abstain":true}}`), &s))
		assert.Equal(t, Abstain{}, s[pos])
	})

	rejected := map[string]string{
		"two shapes":      `{"` + pos.String() + `":{"candidate_id":"` + cand.String() + `","abstain":true}}`,
		"empty object":    `{"` + pos.String() + `":{}}`,
		"abstain false":   `{"` + pos.String() + `":{"abstain":false}}`,
		"unknown field":   `{"` + pos.String() + `":{"candidate":"` + cand.String() + `"}}`,
		"bad position id": `{"president":{"abstain":true}}`,
		"bare candidate":  `{"` + pos.String() + `":"` + cand.String() + `"}`,
	}
	for name, body := range rejected {
		t.Run(name, func(t *testing.T) {
			var s Selections
			assert.Error(t, json.Unmarshal([]byte(body), &s))
		})
	}
}

func TestSelectionsJSONRoundTrip(t *testing.T) {
	pos := uuid.New()
	cand := uuid.New()
	in := Selections{pos: Single{CandidateID: cand}}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Selections
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
