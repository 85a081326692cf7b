package services

import (
	"context"
	"path"
	"strings"

	"eboto/internal/access"
	"eboto/internal/storage"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

const maxLogoBytes = 2 << 20

// MediaSigner presigns direct uploads to object storage.
type MediaSigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
}

// WithMedia enables logo uploads.
func (s *ElectionService) WithMedia(m MediaSigner) *ElectionService {
	s.media = m
	return s
}

type LogoUpload struct {
	Key     string            `json:"key"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// PresignLogo returns an upload URL for an election logo. The client sets
// the returned key on the election once the upload succeeds.
func (s *ElectionService) PresignLogo(ctx context.Context, p access.Principal, electionID uuid.UUID, fileName, contentType string, sizeBytes int64) (LogoUpload, error) {
	if s.media == nil {
		return LogoUpload{}, eboto_errors.ErrServiceUnavailable
	}
	if sizeBytes <= 0 || sizeBytes > maxLogoBytes {
		return LogoUpload{}, eboto_errors.ErrInvalidInput
	}
	if err := storage.ValidateImageType(contentType); err != nil {
		return LogoUpload{}, eboto_errors.ErrInvalidInput
	}
	e, err := requireCommissioner(ctx, s.store, p, electionID, false)
	if err != nil {
		return LogoUpload{}, err
	}

	key := storage.LogoKey(e.ID.String(), uuid.New().String()+strings.ToLower(path.Ext(fileName)))
	url, headers, err := s.media.PresignPut(ctx, key, contentType, sizeBytes)
	if err != nil {
		return LogoUpload{}, err
	}
	return LogoUpload{Key: key, URL: url, Headers: headers}, nil
}
