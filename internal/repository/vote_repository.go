package repository

import (
	"context"
	"strings"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/result"

	"github.com/google/uuid"
)

type voteRepository struct {
	db DBTX
}

func NewVoteRepository(db DBTX) VoteRepository {
	return &voteRepository{db: db}
}

const voteInsertCols = 6

// InsertBatch writes every row of one ballot in a single statement. A unique
// violation surfaces as ErrAlreadyExists.
func (r *voteRepository) InsertBatch(ctx context.Context, votes []ballot.Vote) error {
	if len(votes) == 0 {
		return nil
	}
	values := make([]string, 0, len(votes))
	args := make([]interface{}, 0, len(votes)*voteInsertCols)
	for i, v := range votes {
		values = append(values, "("+buildPlaceholders(i*voteInsertCols+1, voteInsertCols)+")")
		args = append(args, v.ID, v.ElectionID, v.VoterID, v.PositionID, v.CandidateID, v.CreatedAt)
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO votes (id, election_id, voter_id, position_id, candidate_id, created_at)
        VALUES `+strings.Join(values, ","), args...)
	return mapWriteErr(err)
}

func (r *voteRepository) CountByVoter(ctx context.Context, electionID, voterID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
        SELECT count(*) FROM votes WHERE election_id = $1 AND voter_id = $2
    `, electionID, voterID).Scan(&n)
	return n, err
}

func (r *voteRepository) CountsByElection(ctx context.Context, electionID uuid.UUID) ([]result.VoteCount, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT position_id, candidate_id, count(*)
        FROM votes
        WHERE election_id = $1
        GROUP BY position_id, candidate_id
    `, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []result.VoteCount
	for rows.Next() {
		var c result.VoteCount
		if err := rows.Scan(&c.PositionID, &c.CandidateID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
