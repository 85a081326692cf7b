package ballot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Selection is what a voter chose for one position. The concrete types are
// Single, Multi and Abstain; no other implementation exists.
type Selection interface {
	candidateIDs() []uuid.UUID
}

// Single picks exactly one candidate.
type Single struct {
	CandidateID uuid.UUID
}

// Multi picks a set of candidates for positions that allow more than one.
type Multi struct {
	CandidateIDs []uuid.UUID
}

// Abstain records an explicit choice of no candidate.
type Abstain struct{}

func (s Single) candidateIDs() []uuid.UUID { return []uuid.UUID{s.CandidateID} }
func (m Multi) candidateIDs() []uuid.UUID  { return m.CandidateIDs }
func (Abstain) candidateIDs() []uuid.UUID  { return nil }

// CandidatesOf returns the candidate ids a selection names.
func CandidatesOf(s Selection) []uuid.UUID {
	if s == nil {
		return nil
	}
	return s.candidateIDs()
}

// Selections maps position id to the voter's choice.
type Selections map[uuid.UUID]Selection

var ErrInvalidShape = errors.New("selection must contain exactly one of candidate_id, candidate_ids or abstain")

type wireSelection struct {
	CandidateID  *uuid.UUID   `json:"candidate_id,omitempty"`
	CandidateIDs *[]uuid.UUID `json:"candidate_ids,omitempty"`
	Abstain      *bool        `json:"abstain,omitempty"`
}

func (s Selections) MarshalJSON() ([]byte, error) {
	out := make(map[string]wireSelection, len(s))
	for pos, sel := range s {
		var w wireSelection
		switch v := sel.(type) {
		case Single:
			id := v.CandidateID
			w.CandidateID = &id
		case Multi:
			ids := append([]uuid.UUID{}, v.CandidateIDs...)
			w.CandidateIDs = &ids
		case Abstain:
			yes := true
			w.Abstain = &yes
		default:
			return nil, fmt.Errorf("position %s: unsupported selection %T", pos, sel)
		}
		out[pos.String()] = w
	}
	return json.Marshal(out)
}

func (s *Selections) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(Selections, len(raw))
	for key, body := range raw {
		pos, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("invalid position id %q: %w", key, err)
		}
		sel, err := decodeSelection(body)
		if err != nil {
			return fmt.Errorf("position %s: %w", pos, err)
		}
		parsed[pos] = sel
	}
	*s = parsed
	return nil
}

func decodeSelection(body []byte) (Selection, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var w wireSelection
	if err := dec.Decode(&w); err != nil {
		return nil, err
	}

	set := 0
	for _, present := range []bool{w.CandidateID != nil, w.CandidateIDs != nil, w.Abstain != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, ErrInvalidShape
	}

	switch {
	case w.CandidateID != nil:
		return Single{CandidateID: *w.CandidateID}, nil
	case w.CandidateIDs != nil:
		return Multi{CandidateIDs: *w.CandidateIDs}, nil
	default:
		if !*w.Abstain {
			return nil, ErrInvalidShape
		}
		return Abstain{}, nil
	}
}
