package repository

import (
	"context"
	"database/sql"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type commissionerRepository struct {
	db DBTX
}

func NewCommissionerRepository(db DBTX) CommissionerRepository {
	return &commissionerRepository{db: db}
}

func (r *commissionerRepository) Add(ctx context.Context, c *election.Commissioner) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO commissioners (id, election_id, user_id, email, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, c.ID, c.ElectionID, c.UserID, c.Email, c.CreatedAt)
	return mapWriteErr(err)
}

func (r *commissionerRepository) IsCommissioner(ctx context.Context, electionID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM commissioners
            WHERE election_id = $1 AND user_id = $2 AND deleted_at IS NULL
        )
    `, electionID, userID).Scan(&exists)
	return exists, err
}

func (r *commissionerRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Commissioner, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, election_id, user_id, email, created_at, deleted_at
        FROM commissioners
        WHERE election_id = $1 AND deleted_at IS NULL
        ORDER BY created_at ASC
    `, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []election.Commissioner
	for rows.Next() {
		var c election.Commissioner
		var deletedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.UserID, &c.Email, &c.CreatedAt, &deletedAt); err != nil {
			return nil, err
		}
		c.DeletedAt = timePtr(deletedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
