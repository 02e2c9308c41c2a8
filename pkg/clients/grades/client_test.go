package grades

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ValidateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/submissions/validate_token", r.URL.Path)
		assert.Equal(t, "sometoken", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	ok, err := client.ValidateToken(context.Background(), "sometoken")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_GetResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions/resource", r.URL.Path)
		assert.Equal(t, "sometoken", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{"repo_slug":"org/repo","spec_folder_sha":"abc123","source_code_url":"https://example.com/a.tar.gz"}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	res, err := client.GetResource(context.Background(), "sometoken")
	require.NoError(t, err)
	assert.Equal(t, "org/repo", res.RepoSlug)
	assert.Equal(t, "abc123", res.SpecFolderSHA)
	assert.Equal(t, "https://example.com/a.tar.gz", res.SourceCodeURL)
}

func TestClient_SubmitBuildPayloadShape(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/builds", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		fmt.Fprint(w, `{"url":"https://grades.example.com/results/123"}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	resp, err := client.SubmitBuild(context.Background(), &SubmitBuildRequest{
		AccessToken: "sometoken",
		TestOutput:  map[string]any{"summary": map[string]any{"example_count": 2}},
		CommitSHA:   "abc12345",
		Username:    "alice",
		Reponame:    "my-project",
		Source:      "manual",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://grades.example.com/results/123", resp.URL)

	assert.Equal(t, "sometoken", payload["access_token"])
	assert.Equal(t, "abc12345", payload["commit_sha"])
	assert.Equal(t, "alice", payload["username"])
	assert.Equal(t, "my-project", payload["reponame"])
	assert.Equal(t, "manual", payload["source"])
	assert.Contains(t, payload, "test_output")
}

func TestClient_SubmitBuildErrorStatusReturnsTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-1")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"build rejected"}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.SubmitBuild(context.Background(), &SubmitBuildRequest{AccessToken: "sometoken"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "build rejected", apiErr.Message)
	assert.Equal(t, "req-1", apiErr.RequestID)
}

func TestClient_SubmitBuildNilRequest(t *testing.T) {
	client := NewClient()
	_, err := client.SubmitBuild(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_DownloadArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	client := NewClient()
	require.NoError(t, client.DownloadArchive(context.Background(), srv.URL+"/archive.tar.gz", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
}

func TestClient_DownloadArchiveErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	client := NewClient()
	err := client.DownloadArchive(context.Background(), srv.URL+"/missing.tar.gz", dest)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
