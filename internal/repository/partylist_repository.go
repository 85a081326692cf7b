package repository

import (
	"context"
	"database/sql"

	"eboto/internal/domain/election"

	"github.com/google/uuid"
)

type partylistRepository struct {
	db DBTX
}

func NewPartylistRepository(db DBTX) PartylistRepository {
	return &partylistRepository{db: db}
}

const partylistColumns = `id, election_id, name, acronym, created_at, deleted_at`

func scanPartylist(row rowScanner) (election.Partylist, error) {
	var p election.Partylist
	var deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.ElectionID, &p.Name, &p.Acronym, &p.CreatedAt, &deletedAt); err != nil {
		return election.Partylist{}, err
	}
	p.DeletedAt = timePtr(deletedAt)
	return p, nil
}

func (r *partylistRepository) Create(ctx context.Context, p *election.Partylist) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO partylists (id, election_id, name, acronym, created_at)
        VALUES ($1,$2,$3,$4,$5)
    `, p.ID, p.ElectionID, p.Name, p.Acronym, p.CreatedAt)
	return mapWriteErr(err)
}

func (r *partylistRepository) GetByID(ctx context.Context, electionID, id uuid.UUID) (election.Partylist, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+partylistColumns+` FROM partylists
        WHERE election_id = $1 AND id = $2 AND deleted_at IS NULL
    `, electionID, id)
	p, err := scanPartylist(row)
	return p, mapReadErr(err)
}

func (r *partylistRepository) GetByAcronym(ctx context.Context, electionID uuid.UUID, acronym string) (election.Partylist, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+partylistColumns+` FROM partylists
        WHERE election_id = $1 AND upper(acronym) = upper($2) AND deleted_at IS NULL
    `, electionID, acronym)
	p, err := scanPartylist(row)
	return p, mapReadErr(err)
}

func (r *partylistRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]election.Partylist, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+partylistColumns+` FROM partylists
        WHERE election_id = $1 AND deleted_at IS NULL
        ORDER BY created_at ASC
    `, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []election.Partylist
	for rows.Next() {
		p, err := scanPartylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
