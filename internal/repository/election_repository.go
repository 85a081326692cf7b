package repository

import (
	"context"
	"database/sql"
	"time"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type electionRepository struct {
	db DBTX
}

func NewElectionRepository(db DBTX) ElectionRepository {
	return &electionRepository{db: db}
}

const electionColumns = `id, slug, name, description, logo_key, start_date, end_date,
        voting_hour_start, voting_hour_end, publicity, opened_at, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanElection(row rowScanner) (election.Election, error) {
	var e election.Election
	var openedAt, deletedAt sql.NullTime
	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.Name,
		&e.Description,
		&e.LogoKey,
		&e.StartDate,
		&e.EndDate,
		&e.VotingHourStart,
		&e.VotingHourEnd,
		&e.Publicity,
		&openedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return election.Election{}, err
	}
	e.OpenedAt = timePtr(openedAt)
	e.DeletedAt = timePtr(deletedAt)
	return e, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r *electionRepository) Create(ctx context.Context, e *election.Election) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO elections (id, slug, name, description, logo_key, start_date, end_date,
            voting_hour_start, voting_hour_end, publicity, opened_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `,
		e.ID,
		e.Slug,
		e.Name,
		e.Description,
		e.LogoKey,
		e.StartDate,
		e.EndDate,
		e.VotingHourStart,
		e.VotingHourEnd,
		e.Publicity,
		e.OpenedAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return mapWriteErr(err)
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (election.Election, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := scanElection(row)
	return e, mapReadErr(err)
}

func (r *electionRepository) GetBySlug(ctx context.Context, slug string) (election.Election, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM elections WHERE slug = $1 AND deleted_at IS NULL`, slug)
	e, err := scanElection(row)
	return e, mapReadErr(err)
}

func (r *electionRepository) LockByID(ctx context.Context, id uuid.UUID) (election.Election, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	e, err := scanElection(row)
	return e, mapReadErr(err)
}

func (r *electionRepository) Update(ctx context.Context, e *election.Election) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE elections
        SET slug = $2, name = $3, description = $4, logo_key = $5, start_date = $6, end_date = $7,
            voting_hour_start = $8, voting_hour_end = $9, publicity = $10, updated_at = $11
        WHERE id = $1 AND deleted_at IS NULL
    `,
		e.ID,
		e.Slug,
		e.Name,
		e.Description,
		e.LogoKey,
		e.StartDate,
		e.EndDate,
		e.VotingHourStart,
		e.VotingHourEnd,
		e.Publicity,
		e.UpdatedAt,
	)
	return requireAffected(res, mapWriteErr(err))
}

func (r *electionRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE elections SET deleted_at = $2, updated_at = $2
        WHERE id = $1 AND deleted_at IS NULL
    `, id, at)
	return requireAffected(res, err)
}

func (r *electionRepository) MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE elections
        SET publicity = $2, opened_at = $3, updated_at = $3
        WHERE id = $1 AND publicity = $4 AND opened_at IS NULL AND deleted_at IS NULL
    `, id, election.PublicityVoter, at, election.PublicityPrivate)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *electionRepository) ListStartCandidates(ctx context.Context, now time.Time) ([]election.Election, error) {
	return r.list(ctx, `
        SELECT `+electionColumns+`
        FROM elections
        WHERE deleted_at IS NULL AND publicity = $1 AND opened_at IS NULL
            AND start_date <= $2 AND end_date > $2
        ORDER BY start_date ASC
    `, election.PublicityPrivate, now)
}

func (r *electionRepository) ListEndCandidates(ctx context.Context, now time.Time) ([]election.Election, error) {
	return r.list(ctx, `
        SELECT `+electionColumns+`
        FROM elections e
        WHERE e.deleted_at IS NULL AND e.end_date <= $1
            AND NOT EXISTS (SELECT 1 FROM generated_election_results g WHERE g.election_id = e.id)
        ORDER BY e.end_date ASC
    `, now.Add(24*time.Hour))
}

func (r *electionRepository) list(ctx context.Context, query string, args ...interface{}) ([]election.Election, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []election.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
