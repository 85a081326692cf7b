package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type candidateRepository struct {
	db DBTX
}

func NewCandidateRepository(db DBTX) CandidateRepository {
	return &candidateRepository{db: db}
}

const candidateColumns = `id, election_id, position_id, partylist_id, slug, first_name, middle_name, last_name,
        image_key, platform, created_at, deleted_at`

func scanCandidate(row rowScanner) (election.Candidate, error) {
	var c election.Candidate
	var platform []byte
	var deletedAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.ElectionID,
		&c.PositionID,
		&c.PartylistID,
		&c.Slug,
		&c.FirstName,
		&c.MiddleName,
		&c.LastName,
		&c.ImageKey,
		&platform,
		&c.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return election.Candidate{}, err
	}
	if len(platform) > 0 {
		if err := json.Unmarshal(platform, &c.Platform); err != nil {
			return election.Candidate{}, err
		}
	}
	c.DeletedAt = timePtr(deletedAt)
	return c, nil
}

func (r *candidateRepository) Create(ctx context.Context, c *election.Candidate) error {
	platform, err := json.Marshal(c.Platform)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO candidates (id, election_id, position_id, partylist_id, slug, first_name, middle_name,
            last_name, image_key, platform, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `,
		c.ID,
		c.ElectionID,
		c.PositionID,
		c.PartylistID,
		c.Slug,
		c.FirstName,
		c.MiddleName,
		c.LastName,
		c.ImageKey,
		platform,
		c.CreatedAt,
	)
	return mapWriteErr(err)
}

func (r *candidateRepository) GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+candidateColumns+` FROM candidates
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id)
	c, err := scanCandidate(row)
	return c, mapReadErr(err)
}

func (r *candidateRepository) Update(ctx context.Context, c *election.Candidate) error {
	platform, err := json.Marshal(c.Platform)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE candidates
        SET position_id = $3, partylist_id = $4, slug = $5, first_name = $6, middle_name = $7,
            last_name = $8, image_key = $9, platform = $10
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `,
		c.ElectionID,
		c.ID,
		c.PositionID,
		c.PartylistID,
		c.Slug,
		c.FirstName,
		c.MiddleName,
		c.LastName,
		c.ImageKey,
		platform,
	)
	return requireAffected(res, mapWriteErr(err))
}

func (r *candidateRepository) SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE candidates SET deleted_at = $3
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id, at)
	return requireAffected(res, err)
}

func (r *candidateRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Candidate, error) {
	return r.list(ctx, `
        SELECT `+candidateColumns+` FROM candidates
        WHERE election_id = $1 AND deleted_at IS NULL
        ORDER BY last_name ASC, first_name ASC
    `, electionID)
}

func (r *candidateRepository) ListForTally(ctx context.Context, electionID uuid.UUID) ([]election.Candidate, error) {
	return r.list(ctx, `
        SELECT `+candidateColumns+` FROM candidates c
        WHERE c.election_id = $1
            AND (c.deleted_at IS NULL OR EXISTS (SELECT 1 FROM votes v WHERE v.candidate_id = c.id))
        ORDER BY c.last_name ASC, c.first_name ASC
    `, electionID)
}

func (r *candidateRepository) list(ctx context.Context, query string, args ...interface{}) ([]election.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []election.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
