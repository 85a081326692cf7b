package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"eboto/config"
	"eboto/internal/domain/election"
	"eboto/internal/events"
	"eboto/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// faultyStore fails transitions for one election and, optionally, the
// start candidate query.
type faultyStore struct {
	repository.Store
	failID        uuid.UUID
	failListStart bool
}

func (s faultyStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(faultyStore{Store: tx, failID: s.failID, failListStart: s.failListStart})
	})
}

func (s faultyStore) Elections() repository.ElectionRepository {
	return faultyElections{ElectionRepository: s.Store.Elections(), store: s}
}

type faultyElections struct {
	repository.ElectionRepository
	store faultyStore
}

func (r faultyElections) LockByID(ctx context.Context, id uuid.UUID) (election.Election, error) {
	if id == r.store.failID {
		return election.Election{}, errInjected
	}
	return r.ElectionRepository.LockByID(ctx, id)
}

func (r faultyElections) MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if id == r.store.failID {
		return false, errInjected
	}
	return r.ElectionRepository.MarkOpened(ctx, id, at)
}

func (r faultyElections) ListStartCandidates(ctx context.Context, now time.Time) ([]election.Election, error) {
	if r.store.failListStart {
		return nil, errInjected
	}
	return r.ElectionRepository.ListStartCandidates(ctx, now)
}

func faultyLifecycle(st faultyStore) *LifecycleService {
	cfg := &config.Config{BaseURL: "https://eboto.test"}
	return NewLifecycleService(st, NewTallyService(st, nil, time.UTC), cfg, time.UTC)
}

func TestRunHourlyOpensElectionOnce(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityPrivate, 0, 1, 2)
	ctx := context.Background()

	report, err := f.lifecycle.RunHourly(ctx, beforeStart)
	require.NoError(t, err)
	assert.Zero(t, report.Started)

	report, err = f.lifecycle.RunHourly(ctx, duringVoting)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Started)

	report, err = f.lifecycle.RunHourly(ctx, duringVoting)
	require.NoError(t, err)
	assert.Zero(t, report.Started)

	e, err := f.store.Elections().GetByID(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, election.PublicityVoter, e.Publicity)
	require.NotNil(t, e.OpenedAt)

	n, err := f.store.Outbox().CountByType(ctx, s.election.ID.String(), events.EventTypeElectionStarted)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := f.store.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	var note events.Notification
	require.NoError(t, json.Unmarshal(pending[0].Payload, &note))
	assert.Equal(t, events.NotificationStart, note.Kind)
	assert.Equal(t, []string{"commissioner@eboto.test", "voter0@eboto.test", "voter1@eboto.test"}, note.Recipients)
	assert.Equal(t, "https://eboto.test/"+s.election.Slug, note.Link)
}

func TestRunHourlyFreezesOnceAfterEnd(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 0, 1, 3)
	f.setNow(duringVoting)
	castMix(t, f, s, 2, 1, 0)
	ctx := context.Background()

	report, err := f.lifecycle.RunHourly(ctx, duringVoting)
	require.NoError(t, err)
	assert.Zero(t, report.Frozen)

	report, err = f.lifecycle.RunHourly(ctx, afterEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Frozen)

	report, err = f.lifecycle.RunHourly(ctx, afterEnd)
	require.NoError(t, err)
	assert.Zero(t, report.Frozen)
	assert.Zero(t, report.Failed)

	n, err := f.store.Results().CountByElection(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ready, err := f.store.Outbox().CountByType(ctx, s.election.ID.String(), events.EventTypeElectionResultReady)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
}

func TestRunHourlyConcurrentInvocations(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityPrivate, 0, 1, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.lifecycle.RunHourly(ctx, duringVoting)
			_, _ = f.lifecycle.RunHourly(ctx, afterEnd)
		}()
	}
	wg.Wait()

	started, err := f.store.Outbox().CountByType(ctx, s.election.ID.String(), events.EventTypeElectionStarted)
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	results, err := f.store.Results().CountByElection(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, results)

	ready, err := f.store.Outbox().CountByType(ctx, s.election.ID.String(), events.EventTypeElectionResultReady)
	require.NoError(t, err)
	assert.Equal(t, 1, ready)
}

func TestRunHourlyCatchesUpMissedEnd(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityPrivate, 0, 1, 1)
	ctx := context.Background()

	report, err := f.lifecycle.RunHourly(ctx, afterEnd)
	require.NoError(t, err)
	assert.Zero(t, report.Started)
	assert.Equal(t, 1, report.Frozen)

	n, err := f.store.Results().CountByElection(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunHourlyIsolatesFailedStart(t *testing.T) {
	f := newFixture(t)
	broken := f.seed(t, election.PublicityPrivate, 0, 1, 1)
	healthy := f.seed(t, election.PublicityPrivate, 0, 1, 1)
	ctx := context.Background()

	lifecycle := faultyLifecycle(faultyStore{Store: f.store, failID: broken.election.ID})
	report, err := lifecycle.RunHourly(ctx, duringVoting)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Started)
	assert.Equal(t, 1, report.Failed)

	e, err := f.store.Elections().GetByID(ctx, healthy.election.ID)
	require.NoError(t, err)
	assert.NotNil(t, e.OpenedAt)
	e, err = f.store.Elections().GetByID(ctx, broken.election.ID)
	require.NoError(t, err)
	assert.Nil(t, e.OpenedAt)
}

func TestRunHourlyEndSweepSurvivesStartFailure(t *testing.T) {
	f := newFixture(t)
	broken := f.seed(t, election.PublicityVoter, 0, 1, 1)
	healthy := f.seed(t, election.PublicityVoter, 0, 1, 1)
	ctx := context.Background()

	lifecycle := faultyLifecycle(faultyStore{Store: f.store, failID: broken.election.ID, failListStart: true})
	report, err := lifecycle.RunHourly(ctx, afterEnd)
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, 1, report.Frozen)
	assert.Equal(t, 1, report.Failed)

	n, err := f.store.Results().CountByElection(ctx, healthy.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.store.Results().CountByElection(ctx, broken.election.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
