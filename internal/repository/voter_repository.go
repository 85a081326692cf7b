package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"eboto/internal/domain/voter"

	"github.com/google/uuid"
)

type voterRepository struct {
	db DBTX
}

func NewVoterRepository(db DBTX) VoterRepository {
	return &voterRepository{db: db}
}

const voterColumns = `id, election_id, email, user_id, field, voted_at, created_at, deleted_at`

func scanVoter(row rowScanner) (voter.Voter, error) {
	var v voter.Voter
	var field []byte
	var votedAt, deletedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.ElectionID, &v.Email, &v.UserID, &field, &votedAt, &v.CreatedAt, &deletedAt); err != nil {
		return voter.Voter{}, err
	}
	if len(field) > 0 {
		if err := json.Unmarshal(field, &v.Field); err != nil {
			return voter.Voter{}, err
		}
	}
	v.VotedAt = timePtr(votedAt)
	v.DeletedAt = timePtr(deletedAt)
	return v, nil
}

func (r *voterRepository) Create(ctx context.Context, v *voter.Voter) error {
	field := v.Field
	if field == nil {
		field = map[string]string{}
	}
	data, err := json.Marshal(field)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO voters (id, election_id, email, user_id, field, voted_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, v.ID, v.ElectionID, voter.NormalizeEmail(v.Email), v.UserID, data, v.VotedAt, v.CreatedAt)
	return mapWriteErr(err)
}

func (r *voterRepository) GetByID(ctx context.Context, electionID, id uuid.UUID) (voter.Voter, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+voterColumns+` FROM voters
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id)
	v, err := scanVoter(row)
	return v, mapReadErr(err)
}

func (r *voterRepository) FindForPrincipal(ctx context.Context, electionID, userID uuid.UUID, email string) (voter.Voter, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+voterColumns+` FROM voters
        WHERE election_id = $1 AND deleted_at IS NULL
            AND (user_id = $2 OR ($3 <> '' AND lower(email) = lower($3)))
        ORDER BY (user_id = $2) DESC NULLS LAST
        LIMIT 1
    `, electionID, userID, email)
	v, err := scanVoter(row)
	return v, mapReadErr(err)
}

func (r *voterRepository) LockByID(ctx context.Context, electionID, id uuid.UUID) (voter.Voter, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+voterColumns+` FROM voters
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
        FOR UPDATE
    `, electionID, id)
	v, err := scanVoter(row)
	return v, mapReadErr(err)
}

func (r *voterRepository) MarkVoted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE voters SET voted_at = $2
        WHERE id = $1 AND voted_at IS NULL AND deleted_at IS NULL
    `, id, at)
	return requireAffected(res, err)
}

func (r *voterRepository) SoftDelete(ctx context.Context, electionID, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE voters SET deleted_at = $3
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id, at)
	return requireAffected(res, err)
}

func (r *voterRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]voter.Voter, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+voterColumns+` FROM voters
        WHERE election_id = $1 AND deleted_at IS NULL
        ORDER BY email ASC
    `, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []voter.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *voterRepository) Counts(ctx context.Context, electionID uuid.UUID) (int, int, error) {
	var total, voted int
	err := r.db.QueryRowContext(ctx, `
        SELECT count(*), count(voted_at)
        FROM voters
        WHERE election_id = $1 AND deleted_at IS NULL
    `, electionID).Scan(&total, &voted)
	return total, voted, err
}

func (r *voterRepository) AddField(ctx context.Context, f *voter.Field) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO voter_fields (id, election_id, name, created_at)
        VALUES ($1,$2,$3,$4)
    `, f.ID, f.ElectionID, f.Name, f.CreatedAt)
	return mapWriteErr(err)
}

func (r *voterRepository) ListFields(ctx context.Context, electionID uuid.UUID) ([]voter.Field, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, election_id, name, created_at
        FROM voter_fields
        WHERE election_id = $1
        ORDER BY created_at ASC
    `, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []voter.Field
	for rows.Next() {
		var f voter.Field
		if err := rows.Scan(&f.ID, &f.ElectionID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
