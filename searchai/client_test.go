package searchai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/widensync/core"
)

func newTestClient(t *testing.T, host string) *Client {
	t.Helper()

	cfg := NewConfig(
		WithHost(host),
		WithBotID("st-test-bot"),
		WithClientCredentials("cs-client", "cs-secret"),
		WithSourceName("WidenConnect"),
	)

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/public/uploadfile", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("auth"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "findly", r.FormValue("fileContext"))
		assert.Equal(t, "pdf", r.FormValue("fileExtension"))
		assert.Equal(t, "manual.pdf", r.FormValue("fileName"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "manual.pdf", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"fileId": "fid-1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	fileID, err := client.Upload(context.Background(), "manual.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "fid-1", fileID)
}

func TestUpload_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Upload(context.Background(), "manual.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestExtractFileID(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"top level fileId", `{"fileId":"f1"}`, "f1", true},
		{"top level id", `{"id":"f2"}`, "f2", true},
		{"mongo style", `{"_id":"f3"}`, "f3", true},
		{"nested data", `{"data":{"fileId":"f4"}}`, "f4", true},
		{"nested result id", `{"result":{"id":"f5"}}`, "f5", true},
		{"nested file", `{"file":{"_id":"f6"}}`, "f6", true},
		{"missing", `{"status":"ok"}`, "", false},
		{"not json", `<html>`, "", false},
		{"non-string id", `{"fileId":42}`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractFileID([]byte(tc.body))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIngest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/public/bot/st-test-bot/ingest-data", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("auth"))

		var req ingestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "WidenConnect", req.SourceName)
		assert.Equal(t, "file", req.SourceType)
		require.Len(t, req.Documents, 2)
		assert.Equal(t, "f1", req.Documents[0].FileID)

		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Ingest(context.Background(), []string{"f1", "f2"})
	require.NoError(t, err)
	assert.Contains(t, string(resp), "queued")
}

func TestIngest_AlreadyIngested(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(419)
		json.NewEncoder(w).Encode(map[string]string{"error": "documents already uploaded"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Ingest(context.Background(), []string{"f1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyIngested)
	assert.Contains(t, string(resp), "already uploaded")
}

func TestIngest_NoDocuments(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	resp, err := client.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/public/bot/st-test-bot/advancedSearch", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "installation guide", req["query"])

		json.NewEncoder(w).Encode(map[string]any{"results": []string{"doc1"}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Query(context.Background(), "installation guide")
	require.NoError(t, err)
	assert.Contains(t, string(resp), "doc1")
}

func TestTokenSource_Caching(t *testing.T) {
	source := NewTokenSource("cs-client", "cs-secret")

	first, err := source.Token()
	require.NoError(t, err)
	second, err := source.Token()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, source.Valid(first))
}

func TestTokenSource_RejectsForeignToken(t *testing.T) {
	ours := NewTokenSource("cs-client", "cs-secret")
	theirs := NewTokenSource("cs-client", "other-secret")

	token, err := theirs.Token()
	require.NoError(t, err)

	assert.False(t, ours.Valid(token))
	assert.False(t, ours.Valid("not-a-token"))
}

func TestConfigValidate_NamesMissingFields(t *testing.T) {
	cfg := NewConfig()

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingConfig)
	for _, name := range []string{"KORE_HOST", "KORE_BOT_ID", "KORE_CLIENT_ID", "KORE_CLIENT_SECRET"} {
		assert.Contains(t, err.Error(), name)
	}
}
