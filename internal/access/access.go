// Package access decides who may view an election and who may vote in it.
// Every function here is pure; callers load a Subject first.
package access

import (
	"fmt"
	"time"

	"eboto/internal/domain/election"
	"eboto/internal/domain/voter"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

// Principal is the caller. The zero value is anonymous.
type Principal struct {
	UserID        uuid.UUID
	Email         string
	Authenticated bool
}

func Anonymous() Principal {
	return Principal{}
}

func Authenticated(userID uuid.UUID, email string) Principal {
	return Principal{UserID: userID, Email: voter.NormalizeEmail(email), Authenticated: true}
}

// Subject is the flat view of an election relative to one principal.
// Election is nil when the slug or id did not resolve.
type Subject struct {
	Election       *election.Election
	IsCommissioner bool
	Voter          *voter.Voter
	Now            time.Time
	Location       *time.Location
}

func (s Subject) isVoter() bool {
	return s.Voter != nil && s.Voter.DeletedAt == nil
}

type Outcome int

const (
	OutcomeAllowed Outcome = iota
	OutcomeNotFound
	OutcomeRedirect
)

type Reason string

const (
	ReasonSignIn       Reason = "sign_in"
	ReasonNotAVoter    Reason = "not_a_voter"
	ReasonAlreadyVoted Reason = "already_voted"
	ReasonNotOpen      Reason = "not_open"
)

type Decision struct {
	Outcome Outcome
	Reason  Reason
}

var (
	Allow    = Decision{Outcome: OutcomeAllowed}
	NotFound = Decision{Outcome: OutcomeNotFound}
)

func Redirect(reason Reason) Decision {
	return Decision{Outcome: OutcomeRedirect, Reason: reason}
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Err converts a denial into an error the HTTP layer understands.
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeAllowed:
		return nil
	case OutcomeRedirect:
		return &RedirectError{Reason: d.Reason}
	default:
		return eboto_errors.ErrNotFound
	}
}

// RedirectError tells the client where to go instead. Sign-in redirects
// unwrap to ErrUnauthorized, the rest to ErrForbidden.
type RedirectError struct {
	Reason Reason
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect: %s", e.Reason)
}

func (e *RedirectError) Unwrap() error {
	if e.Reason == ReasonSignIn {
		return eboto_errors.ErrUnauthorized
	}
	return eboto_errors.ErrForbidden
}

// CanView applies the publicity rules. Missing, deleted and hidden
// elections all produce the same NotFound.
func CanView(p Principal, s Subject) Decision {
	if s.Election == nil || s.Election.IsDeleted() {
		return NotFound
	}
	switch s.Election.Publicity {
	case election.PublicityPublic:
		return Allow
	case election.PublicityVoter:
		if !p.Authenticated {
			return Redirect(ReasonSignIn)
		}
		if s.IsCommissioner || s.isVoter() {
			return Allow
		}
		return NotFound
	default:
		if p.Authenticated && s.IsCommissioner {
			return Allow
		}
		return NotFound
	}
}

// CanVote allows a registered voter who has not voted yet into an open,
// non-private election. Everyone else is redirected away from the ballot.
func CanVote(p Principal, s Subject) Decision {
	if d := CanView(p, s); !d.Allowed() {
		return d
	}
	if !p.Authenticated {
		return Redirect(ReasonSignIn)
	}
	if !s.isVoter() {
		return Redirect(ReasonNotAVoter)
	}
	if s.Voter.HasVoted() {
		return Redirect(ReasonAlreadyVoted)
	}
	if s.Election.Publicity == election.PublicityPrivate || !s.Election.IsOpen(s.Now, s.Location) {
		return Redirect(ReasonNotOpen)
	}
	return Allow
}
