package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eboto/internal/domain/ballot"
	"eboto/internal/domain/election"
	"eboto/internal/events"
	eboto_errors "eboto/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastBallotAcceptsExactlyOnceUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	f.setNow(duringVoting)
	ctx := context.Background()

	const attempts = 25
	var wg sync.WaitGroup
	var accepted, alreadyVoted, other int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ballots.CastBallot(ctx, BallotInput{
				ElectionID: s.election.ID,
				VoterID:    s.voters[0].ID,
				Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}},
			})
			switch {
			case err == nil:
				atomic.AddInt32(&accepted, 1)
			case errors.Is(err, eboto_errors.ErrAlreadyVoted):
				atomic.AddInt32(&alreadyVoted, 1)
			default:
				atomic.AddInt32(&other, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(attempts-1), alreadyVoted)
	assert.Zero(t, other)

	n, err := f.store.Votes().CountByVoter(ctx, s.election.ID, s.voters[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := f.store.Voters().GetByID(ctx, s.election.ID, s.voters[0].ID)
	require.NoError(t, err)
	assert.True(t, v.HasVoted())

	cast, err := f.store.Outbox().CountByType(ctx, s.voters[0].ID.String(), events.EventTypeBallotCast)
	require.NoError(t, err)
	assert.Equal(t, 1, cast)
}

func TestCastBallotReturnsReceipt(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 0, 1, 1)
	f.setNow(duringVoting)

	r, err := f.ballots.CastBallot(context.Background(), BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.bob.ID}},
	})
	require.NoError(t, err)
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "President", r.Lines[0].PositionName)
	assert.Equal(t, []string{"Bob Cruz"}, r.Lines[0].Candidates)
	assert.False(t, r.Lines[0].Abstained)
	assert.Equal(t, duringVoting, r.CastAt)
}

func TestCastBallotRejectsBadSelections(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	f.setNow(duringVoting)
	ctx := context.Background()

	cases := []struct {
		name string
		sels ballot.Selections
		want error
	}{
		{"missing position", ballot.Selections{}, eboto_errors.ErrInvalidSelectionCount},
		{"below min", ballot.Selections{s.president.ID: ballot.Abstain{}}, eboto_errors.ErrInvalidSelectionCount},
		{"above max", ballot.Selections{s.president.ID: ballot.Multi{CandidateIDs: []uuid.UUID{s.alice.ID, s.bob.ID}}}, eboto_errors.ErrInvalidSelectionCount},
		{"unknown position", ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}, uuid.New(): ballot.Abstain{}}, eboto_errors.ErrInvalidSelectionCount},
		{"unknown candidate", ballot.Selections{s.president.ID: ballot.Single{CandidateID: uuid.New()}}, eboto_errors.ErrInvalidCandidate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ballots.CastBallot(ctx, BallotInput{ElectionID: s.election.ID, VoterID: s.voters[0].ID, Selections: tc.sels})
			require.ErrorIs(t, err, tc.want)
		})
	}

	n, err := f.store.Votes().CountByVoter(ctx, s.election.ID, s.voters[0].ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	v, err := f.store.Voters().GetByID(ctx, s.election.ID, s.voters[0].ID)
	require.NoError(t, err)
	assert.False(t, v.HasVoted())
	pending, err := f.store.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCastBallotCarriesSelectionDetails(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	f.setNow(duringVoting)
	bogus := uuid.New()

	_, err := f.ballots.CastBallot(context.Background(), BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: bogus}},
	})
	be, ok := eboto_errors.AsBallotError(err)
	require.True(t, ok)
	assert.Equal(t, eboto_errors.KindInvalidCandidate, be.Kind)
	assert.Equal(t, s.president.ID, be.PositionID)
	assert.Equal(t, bogus, be.CandidateID)
}

func TestCastBallotOutsideVotingWindow(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	ctx := context.Background()
	in := BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}},
	}

	for _, at := range []time.Time{beforeStart, afterEnd} {
		f.setNow(at)
		_, err := f.ballots.CastBallot(ctx, in)
		require.ErrorIs(t, err, eboto_errors.ErrElectionNotOpen, "at %s", at)
	}

	_, err := f.ballots.CastBallot(ctx, BallotInput{ElectionID: uuid.New(), VoterID: s.voters[0].ID, Selections: in.Selections})
	require.ErrorIs(t, err, eboto_errors.ErrElectionNotOpen)
}

func TestCastBallotOutsideDailyHours(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	ctx := context.Background()

	start, end := 8, 17
	_, err := f.elections.Update(ctx, f.owner, s.election.ID, UpdateElectionInput{VotingHourStart: &start, VotingHourEnd: &end})
	require.NoError(t, err)

	in := BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}},
	}
	f.setNow(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	_, err = f.ballots.CastBallot(ctx, in)
	require.ErrorIs(t, err, eboto_errors.ErrElectionNotOpen)

	f.setNow(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	_, err = f.ballots.CastBallot(ctx, in)
	require.NoError(t, err)
}

func TestCastBallotRejectsPrivateElection(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityPrivate, 1, 1, 1)
	f.setNow(duringVoting)

	_, err := f.ballots.CastBallot(context.Background(), BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}},
	})
	require.ErrorIs(t, err, eboto_errors.ErrElectionNotOpen)
}

func TestCastForPrincipal(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	f.setNow(duringVoting)
	ctx := context.Background()
	sels := ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}}

	_, err := f.ballots.CastForPrincipal(ctx, f.owner, "no-such-election", sels)
	require.ErrorIs(t, err, eboto_errors.ErrNotFound)

	_, err = f.ballots.CastForPrincipal(ctx, f.owner, s.election.Slug, sels)
	require.ErrorIs(t, err, eboto_errors.ErrNotAVoter)

	voterByEmail := s.principal[0]
	voterByEmail.UserID = uuid.New()
	voterByEmail.Email = "VOTER0@eboto.test"
	_, err = f.ballots.CastForPrincipal(ctx, voterByEmail, s.election.Slug, sels)
	require.NoError(t, err)

	_, err = f.ballots.CastForPrincipal(ctx, s.principal[0], s.election.Slug, sels)
	require.ErrorIs(t, err, eboto_errors.ErrAlreadyVoted)
}

func TestCastBallotInvalidatesTallyCache(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t, election.PublicityVoter, 1, 1, 1)
	f.setNow(duringVoting)
	ctx := context.Background()

	cache := newFakeCache()
	f.ballots.cache = cache
	f.tally.cache = cache

	before, err := f.tally.Tally(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, before.VotedCount)

	_, err = f.ballots.CastBallot(ctx, BallotInput{
		ElectionID: s.election.ID,
		VoterID:    s.voters[0].ID,
		Selections: ballot.Selections{s.president.ID: ballot.Single{CandidateID: s.alice.ID}},
	})
	require.NoError(t, err)

	after, err := f.tally.Tally(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.VotedCount)
	assert.Zero(t, cache.hits)

	_, err = f.tally.Tally(ctx, s.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}
