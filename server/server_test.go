package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/widensync/core"
	"github.com/poiesic/widensync/pipeline"
)

type fakeRunner struct {
	result     *core.SyncResult
	err        error
	limit      int
	offset     int
	skipIngest bool
	calls      int
}

func (f *fakeRunner) Run(_ context.Context, limit, offset int, skipIngest bool) (*core.SyncResult, error) {
	f.calls++
	f.limit = limit
	f.offset = offset
	f.skipIngest = skipIngest
	return f.result, f.err
}

type fakePuller struct {
	resp *pipeline.PullResponse
	err  error
}

func (f *fakePuller) Pull(_ context.Context) (*pipeline.PullResponse, error) {
	return f.resp, f.err
}

type fakeQuerier struct {
	resp json.RawMessage
	err  error
}

func (f *fakeQuerier) Query(_ context.Context, _ string) (json.RawMessage, error) {
	return f.resp, f.err
}

type staticValidator struct {
	accept string
}

func (v *staticValidator) Valid(raw string) bool {
	return raw == v.accept
}

func newTestServer(runner SyncRunner, puller ContentPuller, search Querier, tokens TokenValidator) *httptest.Server {
	s := NewServer(Config{DefaultLimit: 15}, runner, puller, search, tokens, nil)
	return httptest.NewServer(s.Handler())
}

func TestSyncEndpoint(t *testing.T) {
	runner := &fakeRunner{result: &core.SyncResult{
		Success:              true,
		SuccessfullyUploaded: 2,
	}}
	ts := newTestServer(runner, &fakePuller{}, nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/syncWiden?limit=5&offset=10&skipIngest=true", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 5, runner.limit)
	assert.Equal(t, 10, runner.offset)
	assert.True(t, runner.skipIngest)

	var result core.SyncResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SuccessfullyUploaded)
}

func TestSyncEndpoint_DefaultLimit(t *testing.T) {
	runner := &fakeRunner{result: &core.SyncResult{Success: true}}
	ts := newTestServer(runner, &fakePuller{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/syncWiden")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 15, runner.limit)
	assert.False(t, runner.skipIngest)
}

func TestSyncEndpoint_BadLimit(t *testing.T) {
	runner := &fakeRunner{result: &core.SyncResult{}}
	ts := newTestServer(runner, &fakePuller{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/syncWiden?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, runner.calls)
}

func TestSyncEndpoint_RunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("upstream down")}
	ts := newTestServer(runner, &fakePuller{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/syncWiden")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPullEndpoint(t *testing.T) {
	puller := &fakePuller{resp: &pipeline.PullResponse{
		Data:               &pipeline.Document{ID: "a1", Title: "Asset a1"},
		IsContentAvailable: true,
	}}
	ts := newTestServer(&fakeRunner{}, puller, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/getWidenContent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var pull pipeline.PullResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pull))
	require.NotNil(t, pull.Data)
	assert.Equal(t, "a1", pull.Data.ID)
	assert.True(t, pull.IsContentAvailable)
}

func TestSearchEndpoint(t *testing.T) {
	search := &fakeQuerier{resp: json.RawMessage(`{"results":["doc1"]}`)}
	ts := newTestServer(&fakeRunner{}, &fakePuller{}, search, nil)
	defer ts.Close()

	body := bytes.NewBufferString(`{"query":"installation"}`)
	resp, err := http.Post(ts.URL+"/search", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchEndpoint_EmptyQuery(t *testing.T) {
	ts := newTestServer(&fakeRunner{}, &fakePuller{}, &fakeQuerier{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/search", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	tokens := &staticValidator{accept: "good-token"}
	runner := &fakeRunner{result: &core.SyncResult{Success: true}}
	ts := newTestServer(runner, &fakePuller{}, nil, tokens)
	defer ts.Close()

	// Missing token is rejected.
	resp, err := http.Get(ts.URL + "/syncWiden")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, runner.calls)

	// Valid token passes.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/syncWiden", nil)
	require.NoError(t, err)
	req.Header.Set("auth", "good-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open.
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(&fakeRunner{}, &fakePuller{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/syncWiden/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
}
