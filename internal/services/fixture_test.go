package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"eboto/config"
	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/domain/result"
	"eboto/internal/domain/voter"
	"eboto/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	electionStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	electionEnd   = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	beforeStart   = electionStart.Add(-12 * time.Hour)
	duringVoting  = electionStart.Add(36 * time.Hour)
	afterEnd      = electionEnd.Add(12 * time.Hour)
)

type fixture struct {
	store     *memstore.Store
	elections *ElectionService
	ballots   *BallotService
	tally     *TallyService
	lifecycle *LifecycleService
	owner     access.Principal

	mu  sync.RWMutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{BaseURL: "https://eboto.test"}
	store := memstore.New()
	f := &fixture{
		store: store,
		owner: access.Authenticated(uuid.New(), "commissioner@eboto.test"),
		now:   beforeStart,
	}
	f.elections = NewElectionService(store, time.UTC)
	f.elections.clock = f.clock
	f.tally = NewTallyService(store, nil, time.UTC).WithBaseURL(cfg.BaseURL)
	f.tally.clock = f.clock
	f.ballots = NewBallotService(store, nil, cfg, time.UTC)
	f.ballots.clock = f.clock
	f.lifecycle = NewLifecycleService(store, f.tally, cfg, time.UTC)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

func (f *fixture) setNow(at time.Time) {
	f.mu.Lock()
	f.now = at
	f.mu.Unlock()
}

type seeded struct {
	election  election.Election
	president election.Position
	alice     election.Candidate
	bob       election.Candidate
	voters    []voter.Voter
	principal []access.Principal
}

// seed creates an election with one position, two candidates and n voters.
// The clock is left before the start so the roster stays editable.
func (f *fixture) seed(t *testing.T, publicity election.Publicity, lo, hi, n int) seeded {
	t.Helper()
	ctx := context.Background()
	f.setNow(beforeStart)

	e, err := f.elections.Create(ctx, f.owner, CreateElectionInput{
		Name:            "Student Council 2026",
		Slug:            fmt.Sprintf("ssc-%s", uuid.NewString()[:8]),
		StartDate:       electionStart,
		EndDate:         electionEnd,
		VotingHourStart: 0,
		VotingHourEnd:   24,
		Publicity:       publicity,
	})
	require.NoError(t, err)

	pos, err := f.elections.AddPosition(ctx, f.owner, e.ID, PositionInput{Name: "President", Min: lo, Max: hi})
	require.NoError(t, err)

	alice, err := f.elections.AddCandidate(ctx, f.owner, e.ID, CandidateInput{
		PositionID: pos.ID, Slug: "alice-reyes", FirstName: "Alice", LastName: "Reyes",
	})
	require.NoError(t, err)
	bob, err := f.elections.AddCandidate(ctx, f.owner, e.ID, CandidateInput{
		PositionID: pos.ID, Slug: "bob-cruz", FirstName: "Bob", LastName: "Cruz",
	})
	require.NoError(t, err)

	s := seeded{election: e, president: pos, alice: alice, bob: bob}
	for i := 0; i < n; i++ {
		userID := uuid.New()
		email := fmt.Sprintf("voter%d@eboto.test", i)
		v, err := f.elections.AddVoter(ctx, f.owner, e.ID, VoterInput{Email: email, UserID: &userID})
		require.NoError(t, err)
		s.voters = append(s.voters, v)
		s.principal = append(s.principal, access.Authenticated(userID, email))
	}
	return s
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]result.Tally
	generations map[uuid.UUID]int64
	hits        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]result.Tally), generations: make(map[uuid.UUID]int64)}
}

func (c *fakeCache) Get(_ context.Context, electionID uuid.UUID) (*result.Tally, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[electionID]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &t, nil
}

func (c *fakeCache) Generation(_ context.Context, electionID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[electionID], nil
}

func (c *fakeCache) Set(_ context.Context, t result.Tally, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[t.ElectionID] != generation {
		return nil
	}
	c.entries[t.ElectionID] = t
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, electionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[electionID]++
	delete(c.entries, electionID)
	return nil
}
