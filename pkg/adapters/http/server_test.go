package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stanza/internal/logging"
	httpadapter "github.com/aretw0/stanza/pkg/adapters/http"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
)

// fakeService scripts host behavior per session ID.
type fakeService struct {
	turns    map[string]*loop.TurnResult
	turnErr  error
	state    map[string]*domain.StateEntry
	deleted  map[string]bool
	sessions []string

	lastSession string
	lastInput   string
}

func (f *fakeService) RunTurn(ctx context.Context, sessionID, input string) (*loop.TurnResult, error) {
	f.lastSession = sessionID
	f.lastInput = input
	return f.turns[sessionID], f.turnErr
}

func (f *fakeService) State(ctx context.Context, sessionID string) (map[string]*domain.StateEntry, error) {
	return f.state, nil
}

func (f *fakeService) DeleteKey(ctx context.Context, sessionID, key string) (bool, error) {
	return f.deleted[key], nil
}

func (f *fakeService) Sessions() []string {
	return f.sessions
}

func newTestServer(t *testing.T, svc *fakeService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpadapter.NewHandler(svc, logging.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RunTurn(t *testing.T) {
	svc := &fakeService{
		turns: map[string]*loop.TurnResult{
			"alpha": {Outcome: loop.OutcomeResponded, Message: "hello"},
		},
	}
	srv := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/sessions/alpha/turns", "application/json",
		strings.NewReader(`{"input": "hi there"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alpha", svc.lastSession)
	assert.Equal(t, "hi there", svc.lastInput)

	var result loop.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, loop.OutcomeResponded, result.Outcome)
	assert.Equal(t, "hello", result.Message)
}

func TestServer_RunTurnRequiresInput(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	for _, body := range []string{`{}`, `{"input": ""}`, `not json`} {
		resp, err := http.Post(srv.URL+"/sessions/alpha/turns", "application/json",
			strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestServer_RunTurnAbortedReturns422(t *testing.T) {
	svc := &fakeService{
		turns: map[string]*loop.TurnResult{
			"alpha": {
				Outcome:  loop.OutcomeAborted,
				Attempts: 3,
				Failures: []loop.Failure{{Attempt: 1, Stage: loop.StageValidation, Reason: "unknown capability"}},
			},
		},
		turnErr: domain.ErrTurnAborted,
	}
	srv := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/sessions/alpha/turns", "application/json",
		strings.NewReader(`{"input": "do something"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result loop.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, loop.OutcomeAborted, result.Outcome)
	assert.Len(t, result.Failures, 1)
}

func TestServer_GetState(t *testing.T) {
	svc := &fakeService{
		state: map[string]*domain.StateEntry{
			"search_web": {Result: "results"},
		},
	}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/sessions/alpha/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		State map[string]*domain.StateEntry `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body.State, "search_web")
	assert.Equal(t, "results", body.State["search_web"].Result)
}

func TestServer_DeleteKey(t *testing.T) {
	svc := &fakeService{deleted: map[string]bool{"present": true}}
	srv := newTestServer(t, svc)

	del := func(key string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/alpha/state/"+key, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := del("present")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = del("missing")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ListSessions(t *testing.T) {
	svc := &fakeService{sessions: []string{"alpha", "beta"}}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"alpha", "beta"}, body.Sessions)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/sessions/alpha/turns", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
