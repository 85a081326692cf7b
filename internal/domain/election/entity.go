package election

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Publicity controls who can see an election.
type Publicity string

const (
	PublicityPrivate Publicity = "PRIVATE"
	PublicityVoter   Publicity = "VOTER"
	PublicityPublic  Publicity = "PUBLIC"
)

func (p Publicity) Valid() bool {
	switch p {
	case PublicityPrivate, PublicityVoter, PublicityPublic:
		return true
	}
	return false
}

// IndependentAcronym is the reserved partylist every election is created with.
const IndependentAcronym = "IND"

type Election struct {
	ID              uuid.UUID
	Slug            string
	Name            string
	Description     string
	LogoKey         string
	StartDate       time.Time
	EndDate         time.Time
	VotingHourStart int
	VotingHourEnd   int
	Publicity       Publicity
	OpenedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

func (e Election) IsDeleted() bool {
	return e.DeletedAt != nil
}

type Position struct {
	ID          uuid.UUID
	ElectionID  uuid.UUID
	Name        string
	Description string
	Order       int
	Min         int
	Max         int
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

type Partylist struct {
	ID         uuid.UUID
	ElectionID uuid.UUID
	Name       string
	Acronym    string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

func (p Partylist) IsIndependent() bool {
	return strings.EqualFold(p.Acronym, IndependentAcronym)
}

type Candidate struct {
	ID          uuid.UUID
	ElectionID  uuid.UUID
	PositionID  uuid.UUID
	PartylistID uuid.UUID
	Slug        string
	FirstName   string
	MiddleName  string
	LastName    string
	ImageKey    string
	Platform    Platform
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

func (c Candidate) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.MiddleName, c.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Platform holds the candidate's optional platform and credential records.
type Platform struct {
	Platforms    []PlatformEntry   `json:"platforms,omitempty"`
	Achievements []CredentialEntry `json:"achievements,omitempty"`
	Affiliations []CredentialEntry `json:"affiliations,omitempty"`
	Events       []CredentialEntry `json:"events,omitempty"`
}

type PlatformEntry struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type CredentialEntry struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`
}

type Commissioner struct {
	ID         uuid.UUID
	ElectionID uuid.UUID
	UserID     uuid.UUID
	Email      string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}
