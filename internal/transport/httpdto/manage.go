package httpdto

import (
	"time"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type PositionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Min         int    `json:"min"`
	Max         int    `json:"max" binding:"required"`
}

type UpdatePositionRequest struct {
	PositionRequest
	Order *int `json:"order"`
}

type PartylistRequest struct {
	Name    string `json:"name" binding:"required"`
	Acronym string `json:"acronym" binding:"required"`
}

type CandidateRequest struct {
	PositionID  uuid.UUID         `json:"position_id" binding:"required"`
	PartylistID *uuid.UUID        `json:"partylist_id"`
	Slug        string            `json:"slug" binding:"required"`
	FirstName   string            `json:"first_name" binding:"required"`
	MiddleName  string            `json:"middle_name"`
	LastName    string            `json:"last_name" binding:"required"`
	ImageKey    string            `json:"image_key"`
	Platform    election.Platform `json:"platform"`
}

type VoterRequest struct {
	Email  string            `json:"email" binding:"required"`
	UserID *uuid.UUID        `json:"user_id"`
	Field  map[string]string `json:"field"`
}

type VoterFieldRequest struct {
	Name string `json:"name" binding:"required"`
}

type VoterFieldDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CommissionerRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Email  string    `json:"email" binding:"required"`
}

type CommissionerDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func FromCommissioner(c election.Commissioner) CommissionerDTO {
	return CommissionerDTO{ID: c.ID.String(), UserID: c.UserID.String(), Email: c.Email, CreatedAt: c.CreatedAt}
}

type LogoUploadRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

type ListVotersResponse struct {
	Voters []VoterDTO `json:"voters"`
	Total  int        `json:"total"`
	Voted  int        `json:"voted"`
}
