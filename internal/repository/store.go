package repository

import "context"

type pgStore struct {
	db DBTX
}

// NewStore returns a Postgres-backed Store over db (*sql.DB or *sql.Tx).
func NewStore(db DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Elections() ElectionRepository         { return NewElectionRepository(s.db) }
func (s *pgStore) Commissioners() CommissionerRepository { return NewCommissionerRepository(s.db) }
func (s *pgStore) Positions() PositionRepository         { return NewPositionRepository(s.db) }
func (s *pgStore) Partylists() PartylistRepository       { return NewPartylistRepository(s.db) }
func (s *pgStore) Candidates() CandidateRepository       { return NewCandidateRepository(s.db) }
func (s *pgStore) Voters() VoterRepository               { return NewVoterRepository(s.db) }
func (s *pgStore) Votes() VoteRepository                 { return NewVoteRepository(s.db) }
func (s *pgStore) Results() ResultRepository             { return NewResultRepository(s.db) }
func (s *pgStore) Outbox() OutboxRepository              { return NewOutboxRepository(s.db) }

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return WithTx(ctx, s.db, func(tx DBTX) error {
		return fn(&pgStore{db: tx})
	})
}
