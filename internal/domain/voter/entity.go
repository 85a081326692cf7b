package voter

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Voter struct {
	ID         uuid.UUID
	ElectionID uuid.UUID
	Email      string
	UserID     uuid.NullUUID
	Field      map[string]string
	VotedAt    *time.Time
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

func (v Voter) HasVoted() bool {
	return v.VotedAt != nil
}

// Matches reports whether an authenticated identity is this voter.
func (v Voter) Matches(userID uuid.UUID, email string) bool {
	if v.UserID.Valid && v.UserID.UUID == userID {
		return true
	}
	return email != "" && strings.EqualFold(v.Email, email)
}

// Field is a per-election custom attribute collected from voters.
type Field struct {
	ID         uuid.UUID
	ElectionID uuid.UUID
	Name       string
	CreatedAt  time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
