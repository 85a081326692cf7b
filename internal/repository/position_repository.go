package repository

import (
	"context"
	"database/sql"
	"time"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type positionRepository struct {
	db DBTX
}

func NewPositionRepository(db DBTX) PositionRepository {
	return &positionRepository{db: db}
}

const positionColumns = `id, election_id, name, description, "order", min, max, created_at, deleted_at`

func scanPosition(row rowScanner) (election.Position, error) {
	var p election.Position
	var deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.ElectionID, &p.Name, &p.Description, &p.Order, &p.Min, &p.Max, &p.CreatedAt, &deletedAt); err != nil {
		return election.Position{}, err
	}
	p.DeletedAt = timePtr(deletedAt)
	return p, nil
}

func (r *positionRepository) Create(ctx context.Context, p *election.Position) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO positions (id, election_id, name, description, "order", min, max, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, p.ID, p.ElectionID, p.Name, p.Description, p.Order, p.Min, p.Max, p.CreatedAt)
	return mapWriteErr(err)
}

func (r *positionRepository) GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Position, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+positionColumns+` FROM positions
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id)
	p, err := scanPosition(row)
	return p, mapReadErr(err)
}

func (r *positionRepository) Update(ctx context.Context, p *election.Position) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE positions SET name = $3, description = $4, "order" = $5, min = $6, max = $7
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, p.ElectionID, p.ID, p.Name, p.Description, p.Order, p.Min, p.Max)
	return requireAffected(res, err)
}

func (r *positionRepository) SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE positions SET deleted_at = $3
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id, at)
	return requireAffected(res, err)
}

func (r *positionRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Position, error) {
	return r.list(ctx, `
        SELECT `+positionColumns+` FROM positions
        WHERE election_id = $1 AND deleted_at IS NULL
        ORDER BY "order" ASC, created_at ASC
    `, electionID)
}

func (r *positionRepository) ListForTally(ctx context.Context, electionID uuid.UUID) ([]election.Position, error) {
	return r.list(ctx, `
        SELECT `+positionColumns+` FROM positions p
        WHERE p.election_id = $1
            AND (p.deleted_at IS NULL OR EXISTS (SELECT 1 FROM votes v WHERE v.position_id = p.id))
        ORDER BY p."order" ASC, p.created_at ASC
    `, electionID)
}

func (r *positionRepository) list(ctx context.Context, query string, args ...interface{}) ([]election.Position, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []election.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
