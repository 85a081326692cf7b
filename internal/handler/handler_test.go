package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eboto/config"
	"eboto/internal/middleware"
	"eboto/internal/repository/memstore"
	"eboto/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data"`
	Error       string          `json:"error"`
	Code        string          `json:"code"`
	Reason      string          `json:"reason"`
	PositionID  string          `json:"position_id"`
	CandidateID string          `json:"candidate_id"`
}

type testApp struct {
	router *gin.Engine
	store  *memstore.Store
	auth   *services.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{BaseURL: "https://eboto.test", JWTSecret: "handler-test-secret"}
	store := memstore.New()
	auth := services.NewAuthService(cfg)

	elections := services.NewElectionService(store, time.UTC)
	tally := services.NewTallyService(store, nil, time.UTC)
	ballots := services.NewBallotService(store, nil, cfg, time.UTC)
	lifecycle := services.NewLifecycleService(store, tally, cfg, time.UTC)

	eh := NewElectionHandler(elections)
	bh := NewBallotHandler(elections, ballots)
	rh := NewResultHandler(tally)
	mh := NewManageHandler(elections, services.NewExportService(tally, nil))
	ch := NewCronHandler(lifecycle)

	r := gin.New()
	r.Use(middleware.ErrorHandler(nil))
	required := middleware.AuthMiddleware(auth)
	optional := middleware.OptionalAuthMiddleware(auth)
	r.POST("/v1/elections", required, eh.Create)
	r.GET("/v1/elections/:slug", optional, eh.Get)
	r.GET("/v1/elections/:slug/ballot", required, bh.Form)
	r.POST("/v1/elections/:slug/ballot", required, bh.Cast)
	r.GET("/v1/elections/:slug/realtime", optional, rh.Realtime)
	r.GET("/v1/elections/:slug/result", optional, rh.Result)
	m := r.Group("/v1/manage/elections/:id", required)
	m.PATCH("", eh.Update)
	m.POST("/positions", mh.AddPosition)
	m.POST("/candidates", mh.AddCandidate)
	m.POST("/voters", mh.AddVoter)
	m.GET("/voters", mh.ListVoters)
	m.POST("/export", mh.Export)
	r.POST("/v1/cron/hourly", ch.Hourly)

	return &testApp{router: r, store: store, auth: auth}
}

type user struct {
	id    uuid.UUID
	email string
	token string
}

func (a *testApp) user(t *testing.T, email string) user {
	t.Helper()
	id := uuid.New()
	token, err := a.auth.IssueAccessToken(id, email, time.Now())
	require.NoError(t, err)
	return user{id: id, email: email, token: token}
}

func (a *testApp) do(t *testing.T, method, path string, as *user, body interface{}) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+as.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var res response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res
}

func dataOf[T any](t *testing.T, res response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Data, &out))
	return out
}

type created struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

type electionSetup struct {
	id       uuid.UUID
	slug     string
	position string
	alice    string
	bob      string
	owner    user
	voters   []user
}

// setupElection creates a PUBLIC election through the API that opens in
// two hours, then moves its start into the past so voting is open.
func (a *testApp) setupElection(t *testing.T, voters int) electionSetup {
	t.Helper()
	owner := a.user(t, "commissioner@eboto.test")
	start := time.Now().UTC().Add(2 * time.Hour)

	code, res := a.do(t, http.MethodPost, "/v1/elections", &owner, map[string]interface{}{
		"name":       "Student Council",
		"slug":       fmt.Sprintf("ssc-%s", uuid.NewString()[:8]),
		"start_date": start,
		"end_date":   start.Add(48 * time.Hour),
		"publicity":  "PUBLIC",
	})
	require.Equal(t, http.StatusCreated, code, res.Error)
	e := dataOf[created](t, res)
	s := electionSetup{id: uuid.MustParse(e.ID), slug: e.Slug, owner: owner}
	base := "/v1/manage/elections/" + e.ID

	code, res = a.do(t, http.MethodPost, base+"/positions", &owner, map[string]interface{}{"name": "President", "min": 0, "max": 1})
	require.Equal(t, http.StatusCreated, code, res.Error)
	s.position = dataOf[created](t, res).ID

	for i, name := range [][2]string{{"Alice", "Reyes"}, {"Bob", "Cruz"}} {
		code, res = a.do(t, http.MethodPost, base+"/candidates", &owner, map[string]interface{}{
			"position_id": s.position,
			"slug":        fmt.Sprintf("candidate-%d", i),
			"first_name":  name[0],
			"last_name":   name[1],
		})
		require.Equal(t, http.StatusCreated, code, res.Error)
		if i == 0 {
			s.alice = dataOf[created](t, res).ID
		} else {
			s.bob = dataOf[created](t, res).ID
		}
	}

	for i := 0; i < voters; i++ {
		v := a.user(t, fmt.Sprintf("voter%d@eboto.test", i))
		code, res = a.do(t, http.MethodPost, base+"/voters", &owner, map[string]interface{}{"email": v.email})
		require.Equal(t, http.StatusCreated, code, res.Error)
		s.voters = append(s.voters, v)
	}

	a.reschedule(t, s.id, time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(47*time.Hour))
	return s
}

func (a *testApp) reschedule(t *testing.T, id uuid.UUID, start, end time.Time) {
	t.Helper()
	ctx := context.Background()
	e, err := a.store.Elections().GetByID(ctx, id)
	require.NoError(t, err)
	e.StartDate, e.EndDate = start, end
	require.NoError(t, a.store.Elections().Update(ctx, &e))
}

func TestCreateElectionRequiresSignIn(t *testing.T) {
	app := newTestApp(t)
	code, res := app.do(t, http.MethodPost, "/v1/elections", nil, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", res.Code)
}

func TestCreateElectionValidation(t *testing.T) {
	app := newTestApp(t)
	owner := app.user(t, "owner@eboto.test")
	start := time.Now().Add(time.Hour)

	code, res := app.do(t, http.MethodPost, "/v1/elections", &owner, map[string]interface{}{
		"name":       "Backwards",
		"slug":       "backwards",
		"start_date": start,
		"end_date":   start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", res.Code)
}

func TestElectionPage(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 1)

	code, res := app.do(t, http.MethodGet, "/v1/elections/"+s.slug, nil, nil)
	require.Equal(t, http.StatusOK, code)
	page := dataOf[struct {
		CanVote      bool   `json:"can_vote"`
		VoteRedirect string `json:"vote_redirect"`
		Ongoing      bool   `json:"ongoing"`
		Candidates   []any  `json:"candidates"`
	}](t, res)
	assert.False(t, page.CanVote)
	assert.Equal(t, "sign_in", page.VoteRedirect)
	assert.True(t, page.Ongoing)
	assert.Len(t, page.Candidates, 2)

	code, res = app.do(t, http.MethodGet, "/v1/elections/"+s.slug, &s.voters[0], nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, dataOf[struct {
		CanVote bool `json:"can_vote"`
	}](t, res).CanVote)

	code, res = app.do(t, http.MethodGet, "/v1/elections/no-such-election", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", res.Code)
}

func TestBallotFormRedirectsNonVoters(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 1)
	stranger := app.user(t, "stranger@eboto.test")

	code, res := app.do(t, http.MethodGet, "/v1/elections/"+s.slug+"/ballot", &stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not_a_voter", res.Reason)

	code, _ = app.do(t, http.MethodGet, "/v1/elections/"+s.slug+"/ballot", &s.voters[0], nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCastBallot(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 2)
	path := "/v1/elections/" + s.slug + "/ballot"

	code, res := app.do(t, http.MethodPost, path, &s.voters[0], map[string]interface{}{
		"selections": map[string]interface{}{s.position: map[string]string{"candidate_id": s.alice}},
	})
	require.Equal(t, http.StatusCreated, code, res.Error)
	receipt := dataOf[struct {
		Lines []struct {
			Candidates []string `json:"candidates"`
		} `json:"lines"`
	}](t, res)
	require.Len(t, receipt.Lines, 1)
	assert.Equal(t, []string{"Alice Reyes"}, receipt.Lines[0].Candidates)

	t.Run("second ballot is rejected", func(t *testing.T) {
		code, res := app.do(t, http.MethodPost, path, &s.voters[0], map[string]interface{}{
			"selections": map[string]interface{}{s.position: map[string]string{"candidate_id": s.bob}},
		})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "ALREADY_VOTED", res.Code)
	})

	t.Run("unknown candidate names the position and candidate", func(t *testing.T) {
		bogus := uuid.NewString()
		code, res := app.do(t, http.MethodPost, path, &s.voters[1], map[string]interface{}{
			"selections": map[string]interface{}{s.position: map[string]string{"candidate_id": bogus}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "INVALID_CANDIDATE", res.Code)
		assert.Equal(t, s.position, res.PositionID)
		assert.Equal(t, bogus, res.CandidateID)
	})

	t.Run("non voter", func(t *testing.T) {
		stranger := app.user(t, "stranger@eboto.test")
		code, res := app.do(t, http.MethodPost, path, &stranger, map[string]interface{}{
			"selections": map[string]interface{}{s.position: map[string]bool{"abstain": true}},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "NOT_A_VOTER", res.Code)
	})

	t.Run("malformed selections", func(t *testing.T) {
		code, res := app.do(t, http.MethodPost, path, &s.voters[1], map[string]interface{}{
			"selections": map[string]interface{}{"not-a-uuid": map[string]bool{"abstain": true}},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "INVALID_REQUEST", res.Code)
	})

	code, res = app.do(t, http.MethodGet, "/v1/manage/elections/"+s.id.String()+"/voters", &s.owner, nil)
	require.Equal(t, http.StatusOK, code)
	list := dataOf[struct {
		Total int `json:"total"`
		Voted int `json:"voted"`
	}](t, res)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 1, list.Voted)
}

func TestManageRoutesHideElectionFromOthers(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 1)
	name := "Hijacked"

	code, res := app.do(t, http.MethodPatch, "/v1/manage/elections/"+s.id.String(), &s.voters[0], map[string]interface{}{"name": name})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", res.Code)

	code, _ = app.do(t, http.MethodPatch, "/v1/manage/elections/not-a-uuid", &s.owner, map[string]interface{}{"name": name})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = app.do(t, http.MethodPatch, "/v1/manage/elections/"+s.id.String(), &s.owner, map[string]interface{}{"slug": "moved-slug"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", res.Code)
}

func TestExportWithoutStorage(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 0)

	code, res := app.do(t, http.MethodPost, "/v1/manage/elections/"+s.id.String()+"/export", &s.owner, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "UNAVAILABLE", res.Code)
}

func TestRealtimeAndFrozenResult(t *testing.T) {
	app := newTestApp(t)
	s := app.setupElection(t, 1)

	code, res := app.do(t, http.MethodPost, "/v1/elections/"+s.slug+"/ballot", &s.voters[0], map[string]interface{}{
		"selections": map[string]interface{}{s.position: map[string]string{"candidate_id": s.bob}},
	})
	require.Equal(t, http.StatusCreated, code, res.Error)

	type view struct {
		Anonymized bool `json:"anonymized"`
		Final      bool `json:"final"`
		VotedCount int  `json:"voted_count"`
		Positions  []struct {
			Candidates []struct {
				Label     string `json:"label"`
				VoteCount int    `json:"vote_count"`
			} `json:"candidates"`
		} `json:"positions"`
	}

	code, res = app.do(t, http.MethodGet, "/v1/elections/"+s.slug+"/realtime", nil, nil)
	require.Equal(t, http.StatusOK, code)
	live := dataOf[view](t, res)
	assert.True(t, live.Anonymized)
	assert.Equal(t, 1, live.VotedCount)
	assert.Equal(t, "Candidate 1", live.Positions[0].Candidates[0].Label)

	code, _ = app.do(t, http.MethodGet, "/v1/elections/"+s.slug+"/result", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	app.reschedule(t, s.id, time.Now().UTC().Add(-49*time.Hour), time.Now().UTC().Add(-time.Hour))

	code, res = app.do(t, http.MethodPost, "/v1/cron/hourly", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, dataOf[services.LifecycleReport](t, res).Frozen)

	code, res = app.do(t, http.MethodGet, "/v1/elections/"+s.slug+"/result", nil, nil)
	require.Equal(t, http.StatusOK, code)
	final := dataOf[view](t, res)
	assert.True(t, final.Final)
	assert.False(t, final.Anonymized)
	assert.Equal(t, "Bob Cruz", final.Positions[0].Candidates[0].Label)
	assert.Equal(t, 1, final.Positions[0].Candidates[0].VoteCount)
}
