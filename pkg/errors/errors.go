package eboto_errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
	ErrVotingStarted      = errors.New("election schedule is locked once voting starts")
	ErrElectionNotEnded   = errors.New("election has not ended")
)

// Ballot rejection kinds. Each is terminal and never retried.
var (
	ErrElectionNotOpen       = errors.New("voting is not open")
	ErrNotAVoter             = errors.New("not a voter of this election")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrInvalidSelectionCount = errors.New("invalid selection count")
	ErrInvalidCandidate      = errors.New("invalid candidate")
)

type BallotErrorKind string

const (
	KindElectionNotOpen       BallotErrorKind = "ELECTION_NOT_OPEN"
	KindNotAVoter             BallotErrorKind = "NOT_A_VOTER"
	KindAlreadyVoted          BallotErrorKind = "ALREADY_VOTED"
	KindInvalidSelectionCount BallotErrorKind = "INVALID_SELECTION_COUNT"
	KindInvalidCandidate      BallotErrorKind = "INVALID_CANDIDATE"
)

var kindSentinels = map[BallotErrorKind]error{
	KindElectionNotOpen:       ErrElectionNotOpen,
	KindNotAVoter:             ErrNotAVoter,
	KindAlreadyVoted:          ErrAlreadyVoted,
	KindInvalidSelectionCount: ErrInvalidSelectionCount,
	KindInvalidCandidate:      ErrInvalidCandidate,
}

// BallotError is returned when a ballot is rejected. PositionID and
// CandidateID are set for the selection kinds.
type BallotError struct {
	Kind        BallotErrorKind
	PositionID  uuid.UUID
	CandidateID uuid.UUID
}

func (e *BallotError) Error() string {
	msg := kindSentinels[e.Kind].Error()
	switch {
	case e.CandidateID != uuid.Nil:
		return fmt.Sprintf("%s: position %s candidate %s", msg, e.PositionID, e.CandidateID)
	case e.PositionID != uuid.Nil:
		return fmt.Sprintf("%s: position %s", msg, e.PositionID)
	default:
		return msg
	}
}

func (e *BallotError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func ElectionNotOpen() *BallotError { return &BallotError{Kind: KindElectionNotOpen} }

func NotAVoter() *BallotError { return &BallotError{Kind: KindNotAVoter} }

func AlreadyVoted() *BallotError { return &BallotError{Kind: KindAlreadyVoted} }

func InvalidSelectionCount(positionID uuid.UUID) *BallotError {
	return &BallotError{Kind: KindInvalidSelectionCount, PositionID: positionID}
}

func InvalidCandidate(positionID, candidateID uuid.UUID) *BallotError {
	return &BallotError{Kind: KindInvalidCandidate, PositionID: positionID, CandidateID: candidateID}
}

// AsBallotError unwraps err into a *BallotError when it is one.
func AsBallotError(err error) (*BallotError, bool) {
	var be *BallotError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
