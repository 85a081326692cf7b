package httpdto

import (
	"time"

	"eboto/internal/domain/election"
	"eboto/internal/domain/voter"

	"github.com/google/uuid"
)

type CreateElectionRequest struct {
	Name            string    `json:"name" binding:"required"`
	Slug            string    `json:"slug" binding:"required"`
	Description     string    `json:"description"`
	StartDate       time.Time `json:"start_date" binding:"required"`
	EndDate         time.Time `json:"end_date" binding:"required"`
	VotingHourStart int       `json:"voting_hour_start"`
	VotingHourEnd   *int      `json:"voting_hour_end"`
	Publicity       string    `json:"publicity"`
}

type UpdateElectionRequest struct {
	Name            *string    `json:"name"`
	Slug            *string    `json:"slug"`
	Description     *string    `json:"description"`
	LogoKey         *string    `json:"logo_key"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	VotingHourStart *int       `json:"voting_hour_start"`
	VotingHourEnd   *int       `json:"voting_hour_end"`
	Publicity       *string    `json:"publicity"`
}

type ElectionDTO struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	LogoKey         string    `json:"logo_key,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	VotingHourStart int       `json:"voting_hour_start"`
	VotingHourEnd   int       `json:"voting_hour_end"`
	Publicity       string    `json:"publicity"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromElection(e election.Election) ElectionDTO {
	return ElectionDTO{
		ID:              e.ID.String(),
		Slug:            e.Slug,
		Name:            e.Name,
		Description:     e.Description,
		LogoKey:         e.LogoKey,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
		VotingHourStart: e.VotingHourStart,
		VotingHourEnd:   e.VotingHourEnd,
		Publicity:       string(e.Publicity),
		CreatedAt:       e.CreatedAt,
	}
}

type PositionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
}

func FromPosition(p election.Position) PositionDTO {
	return PositionDTO{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Order:       p.Order,
		Min:         p.Min,
		Max:         p.Max,
	}
}

type PartylistDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

func FromPartylist(p election.Partylist) PartylistDTO {
	return PartylistDTO{ID: p.ID.String(), Name: p.Name, Acronym: p.Acronym}
}

type CandidateDTO struct {
	ID          string             `json:"id"`
	PositionID  string             `json:"position_id"`
	PartylistID string             `json:"partylist_id"`
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	FirstName   string             `json:"first_name"`
	MiddleName  string             `json:"middle_name,omitempty"`
	LastName    string             `json:"last_name"`
	ImageKey    string             `json:"image_key,omitempty"`
	Platform    election.Platform  `json:"platform"`
}

func FromCandidate(c election.Candidate) CandidateDTO {
	return CandidateDTO{
		ID:          c.ID.String(),
		PositionID:  c.PositionID.String(),
		PartylistID: c.PartylistID.String(),
		Slug:        c.Slug,
		Name:        c.FullName(),
		FirstName:   c.FirstName,
		MiddleName:  c.MiddleName,
		LastName:    c.LastName,
		ImageKey:    c.ImageKey,
		Platform:    c.Platform,
	}
}

type ElectionPageResponse struct {
	Election       ElectionDTO    `json:"election"`
	Positions      []PositionDTO  `json:"positions"`
	Candidates     []CandidateDTO `json:"candidates"`
	Partylists     []PartylistDTO `json:"partylists"`
	IsCommissioner bool           `json:"is_commissioner"`
	IsVoter        bool           `json:"is_voter"`
	HasVoted       bool           `json:"has_voted"`
	CanVote        bool           `json:"can_vote"`
	VoteRedirect   string         `json:"vote_redirect,omitempty"`
	OpensAt        time.Time      `json:"opens_at"`
	ClosesAt       time.Time      `json:"closes_at"`
	Ongoing        bool           `json:"ongoing"`
	Ended          bool           `json:"ended"`
}

func MapPositions(items []election.Position) []PositionDTO {
	out := make([]PositionDTO, 0, len(items))
	for _, p := range items {
		out = append(out, FromPosition(p))
	}
	return out
}

func MapCandidates(items []election.Candidate) []CandidateDTO {
	out := make([]CandidateDTO, 0, len(items))
	for _, c := range items {
		out = append(out, FromCandidate(c))
	}
	return out
}

func MapPartylists(items []election.Partylist) []PartylistDTO {
	out := make([]PartylistDTO, 0, len(items))
	for _, p := range items {
		out = append(out, FromPartylist(p))
	}
	return out
}

type VoterDTO struct {
	ID      string            `json:"id"`
	Email   string            `json:"email"`
	UserID  *uuid.UUID        `json:"user_id,omitempty"`
	Field   map[string]string `json:"field,omitempty"`
	VotedAt *time.Time        `json:"voted_at,omitempty"`
}

func FromVoter(v voter.Voter) VoterDTO {
	dto := VoterDTO{ID: v.ID.String(), Email: v.Email, Field: v.Field, VotedAt: v.VotedAt}
	if v.UserID.Valid {
		id := v.UserID.UUID
		dto.UserID = &id
	}
	return dto
}
