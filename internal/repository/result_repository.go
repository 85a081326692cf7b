package repository

import (
	"context"
	"time"

	"eboto/internal/domain/result"

	"github.com/google/uuid"
)

type resultRepository struct {
	db DBTX
}

func NewResultRepository(db DBTX) ResultRepository {
	return &resultRepository{db: db}
}

func scanGenerated(row rowScanner) (result.Generated, error) {
	var g result.Generated
	var payload []byte
	if err := row.Scan(&g.ID, &g.ElectionID, &g.ClosesAt, &payload, &g.CreatedAt); err != nil {
		return result.Generated{}, err
	}
	g.Payload = payload
	return g, nil
}

func (r *resultRepository) Create(ctx context.Context, g *result.Generated) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO generated_election_results (id, election_id, closes_at, payload, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, g.ID, g.ElectionID, g.ClosesAt, []byte(g.Payload), g.CreatedAt)
	return mapWriteErr(err)
}

func (r *resultRepository) GetForBoundary(ctx context.Context, electionID uuid.UUID, closesAt time.Time) (result.Generated, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, election_id, closes_at, payload, created_at
        FROM generated_election_results
        WHERE election_id = $1 AND closes_at = $2
    `, electionID, closesAt)
	g, err := scanGenerated(row)
	return g, mapReadErr(err)
}

func (r *resultRepository) Latest(ctx context.Context, electionID uuid.UUID) (result.Generated, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, election_id, closes_at, payload, created_at
        FROM generated_election_results
        WHERE election_id = $1
        ORDER BY closes_at DESC
        LIMIT 1
    `, electionID)
	g, err := scanGenerated(row)
	return g, mapReadErr(err)
}

func (r *resultRepository) CountByElection(ctx context.Context, electionID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
        SELECT count(*) FROM generated_election_results WHERE election_id = $1
    `, electionID).Scan(&n)
	return n, err
}
