package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eboto/config"
	"eboto/internal/handler"
	"eboto/internal/middleware"
	"eboto/internal/repository/memstore"
	"eboto/internal/services"
	"eboto/internal/websocket"
	"eboto/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *services.SchedulerVerifier) {
	t.Helper()
	cfg := &config.Config{
		AppPort:             "0",
		AppMode:             TestMode,
		BaseURL:             "https://eboto.test",
		JWTSecret:           "server-test-secret",
		SchedulerSigningKey: "server-scheduler-key",
		SchedulerIssuer:     "eboto-scheduler",
	}
	store := memstore.New()
	auth := services.NewAuthService(cfg)
	elections := services.NewElectionService(store, time.UTC)
	tally := services.NewTallyService(store, nil, time.UTC)
	ballots := services.NewBallotService(store, nil, cfg, time.UTC)
	lifecycle := services.NewLifecycleService(store, tally, cfg, time.UTC)
	verifier := services.NewSchedulerVerifier(cfg)

	srv := New(cfg, logger.NewNop())
	srv.SetupRoutes(&Handlers{
		Election: handler.NewElectionHandler(elections),
		Ballot:   handler.NewBallotHandler(elections, ballots),
		Result:   handler.NewResultHandler(tally),
		Manage:   handler.NewManageHandler(elections, services.NewExportService(tally, nil)),
		Cron:     handler.NewCronHandler(lifecycle),
		Realtime: websocket.NewHandler(auth, tally, websocket.NewHub()),
	}, Guards{Auth: auth, Scheduler: verifier})
	return srv, verifier
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestOperationalRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/elections/some-slug/ballot", nil)
	req.Header.Set("Origin", "https://eboto.app")

	w := serve(srv, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://eboto.app", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCronRouteRequiresSignature(t *testing.T) {
	srv, verifier := newTestServer(t)
	body := []byte(`{}`)

	w := serve(srv, httptest.NewRequest(http.MethodPost, "/v1/cron/hourly", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := verifier.Sign("/v1/cron/hourly", body, time.Now(), time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/cron/hourly", bytes.NewReader(body))
	req.Header.Set(middleware.SchedulerSignatureHeader, token)
	w = serve(srv, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"started":0,"frozen":0,"skipped":0,"failed":0}}`, w.Body.String())

	// a signature for another route is not accepted here
	other, err := verifier.Sign("/v1/cron/daily", body, time.Now(), time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/v1/cron/hourly", bytes.NewReader(body))
	req.Header.Set(middleware.SchedulerSignatureHeader, other)
	w = serve(srv, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBallotRouteRequiresSignIn(t *testing.T) {
	srv, _ := newTestServer(t)
	w := serve(srv, httptest.NewRequest(http.MethodPost, "/v1/elections/any/ballot", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
