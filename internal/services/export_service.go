package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eboto/internal/access"
	"eboto/internal/domain/result"
	"eboto/internal/storage"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
)

// ResultArchive is where exported snapshots go for the PDF renderer.
type ResultArchive interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

type ExportService struct {
	tally   *TallyService
	archive ResultArchive
}

func NewExportService(tally *TallyService, archive ResultArchive) *ExportService {
	return &ExportService{tally: tally, archive: archive}
}

type ExportResult struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Provisional bool      `json:"provisional"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Export uploads the election's result snapshot and returns a download
// link. Ended elections are frozen first; running ones get an unsaved
// provisional snapshot.
func (s *ExportService) Export(ctx context.Context, p access.Principal, electionID uuid.UUID) (ExportResult, error) {
	if s.archive == nil {
		return ExportResult{}, eboto_errors.ErrServiceUnavailable
	}
	st := s.tally.store
	e, err := requireCommissioner(ctx, st, p, electionID, false)
	if err != nil {
		return ExportResult{}, err
	}
	now := s.tally.clock()

	var payload []byte
	var key string
	provisional := !e.HasEnded(now, s.tally.loc)
	if provisional {
		t, err := computeTally(ctx, st, e, now)
		if err != nil {
			return ExportResult{}, err
		}
		snapshot := result.Freeze(e, t, e.ClosesAt(s.tally.loc))
		snapshot.Provisional = true
		if payload, err = json.Marshal(snapshot); err != nil {
			return ExportResult{}, err
		}
		key = storage.ResultKey(e.ID.String(), fmt.Sprintf("provisional-%d", now.Unix()))
	} else {
		g, _, err := s.tally.FreezeResult(ctx, e.ID, now)
		if err != nil {
			return ExportResult{}, err
		}
		payload = g.Payload
		key = storage.ResultKey(e.ID.String(), g.ID.String())
	}

	if err := s.archive.PutObject(ctx, key, "application/json", payload); err != nil {
		return ExportResult{}, err
	}
	url, err := s.archive.PresignGet(ctx, key)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Key: key, URL: url, Provisional: provisional, GeneratedAt: now}, nil
}
