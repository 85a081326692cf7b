package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"eboto/config"
	"eboto/internal/access"
	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	"eboto/internal/events"
	"eboto/internal/repository"
	"eboto/internal/services"
	"eboto/pkg/database"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a real Postgres when EBOTO_TEST_DATABASE_URL is set.
func openStore(t *testing.T) repository.Store {
	t.Helper()
	dsn := os.Getenv("EBOTO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EBOTO_TEST_DATABASE_URL not set")
	}
	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return repository.NewStore(db)
}

type pgElection struct {
	election  election.Election
	position  election.Position
	candidate election.Candidate
	voter     uuid.UUID
}

func seedOngoing(t *testing.T, store repository.Store, elections *services.ElectionService, owner access.Principal) pgElection {
	t.Helper()
	ctx := context.Background()
	start := time.Now().UTC().Add(time.Hour)

	e, err := elections.Create(ctx, owner, services.CreateElectionInput{
		Name:          "Integration",
		Slug:          fmt.Sprintf("it-%s", uuid.NewString()[:8]),
		StartDate:     start,
		EndDate:       start.Add(24 * time.Hour),
		VotingHourEnd: 24,
		Publicity:     election.PublicityVoter,
	})
	require.NoError(t, err)

	pos, err := elections.AddPosition(ctx, owner, e.ID, services.PositionInput{Name: "Chair", Min: 1, Max: 1})
	require.NoError(t, err)
	cand, err := elections.AddCandidate(ctx, owner, e.ID, services.CandidateInput{
		PositionID: pos.ID, Slug: "chair-one", FirstName: "Ana", LastName: "Lim",
	})
	require.NoError(t, err)
	v, err := elections.AddVoter(ctx, owner, e.ID, services.VoterInput{Email: "pg-voter@eboto.test"})
	require.NoError(t, err)

	e.StartDate = time.Now().UTC().Add(-time.Hour)
	e.EndDate = e.StartDate.Add(24 * time.Hour)
	require.NoError(t, store.Elections().Update(ctx, &e))
	return pgElection{election: e, position: pos, candidate: cand, voter: v.ID}
}

func TestPostgresDuplicateSlug(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	e := election.Election{
		ID:            uuid.New(),
		Slug:          fmt.Sprintf("dup-%s", uuid.NewString()[:8]),
		Name:          "Dup",
		StartDate:     time.Now().UTC(),
		EndDate:       time.Now().UTC().Add(time.Hour),
		VotingHourEnd: 24,
		Publicity:     election.PublicityPrivate,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Elections().Create(ctx, &e))

	again := e
	again.ID = uuid.New()
	err := store.Elections().Create(ctx, &again)
	assert.True(t, errors.Is(err, eboto_errors.ErrAlreadyExists), "got %v", err)
}

func TestPostgresExactlyOnceBallot(t *testing.T) {
	store := openStore(t)
	cfg := &config.Config{BaseURL: "https://eboto.test"}
	elections := services.NewElectionService(store, time.UTC)
	ballots := services.NewBallotService(store, nil, cfg, time.UTC)
	owner := access.Authenticated(uuid.New(), "pg-owner@eboto.test")
	s := seedOngoing(t, store, elections, owner)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, already := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ballots.CastBallot(context.Background(), services.BallotInput{
				ElectionID: s.election.ID,
				VoterID:    s.voter,
				Selections: ballot.Selections{s.position.ID: ballot.Single{CandidateID: s.candidate.ID}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, eboto_errors.ErrAlreadyVoted):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, already)
	n, err := store.Votes().CountByVoter(context.Background(), s.election.ID, s.voter)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgresFreezeOnce(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	cfg := &config.Config{BaseURL: "https://eboto.test"}
	elections := services.NewElectionService(store, time.UTC)
	tally := services.NewTallyService(store, nil, time.UTC)
	lifecycle := services.NewLifecycleService(store, tally, cfg, time.UTC)
	owner := access.Authenticated(uuid.New(), "pg-owner@eboto.test")
	s := seedOngoing(t, store, elections, owner)

	e := s.election
	e.StartDate = time.Now().UTC().Add(-48 * time.Hour)
	e.EndDate = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Elections().Update(ctx, &e))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lifecycle.RunHourly(ctx, time.Now().UTC())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := store.Results().CountByElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	notes, err := store.Outbox().CountByType(ctx, e.ID.String(), events.EventTypeElectionResultReady)
	require.NoError(t, err)
	assert.Equal(t, 1, notes)
}
