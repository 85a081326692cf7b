package httpdto

import (
	"eboto/internal/domain/ballot"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

// CastBallotRequest maps position ids to {candidate_id}, {candidate_ids}
// or {abstain: true}.
type CastBallotRequest struct {
	Selections ballot.Selections `json:"selections" binding:"required"`
}

type BallotFormResponse struct {
	Election   ElectionDTO    `json:"election"`
	Positions  []PositionDTO  `json:"positions"`
	Candidates []CandidateDTO `json:"candidates"`
	Partylists []PartylistDTO `json:"partylists"`
}

// BallotErrorResponse is the body of a rejected ballot.
type BallotErrorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Code        string `json:"code"`
	PositionID  string `json:"position_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

func FromBallotError(be *eboto_errors.BallotError) BallotErrorResponse {
	out := BallotErrorResponse{Success: false, Error: be.Error(), Code: string(be.Kind)}
	if be.PositionID != uuid.Nil {
		out.PositionID = be.PositionID.String()
	}
	if be.CandidateID != uuid.Nil {
		out.CandidateID = be.CandidateID.String()
	}
	return out
}

// RedirectResponse tells the frontend where to send a caller who may see
// the election but not use the page they asked for.
type RedirectResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
}
