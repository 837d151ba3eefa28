package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filestore "github.com/bnema/boxtoplay-keeper/internal/adapters/store/file"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
	"github.com/bnema/boxtoplay-keeper/internal/version"
)

const fixtureDocument = `{
  "accounts": [
    {"email": "first@example.com", "cookies": {"BOXTOPLAY_SESSION": "cookie-first", "lang": "fr"}},
    {"email": "second@example.com", "cookies": {"BOXTOPLAY_SESSION": "cookie-second"}, "server_id": "2002"}
  ],
  "active_account_index": 0,
  "current_server_id": "1001",
  "last_sync_time": "2026-03-01T10:00:00Z"
}`

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "keeper "+version.Version+" ("))
}

func TestInfoRendersStoredSessions(t *testing.T) {
	home := t.TempDir()
	useFileStore(t, home, fixtureDocument)

	stdout, _, err := executeCLI(t, home, "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accounts: 2")
	assert.Contains(t, stdout, "dns: orny.boxtoplay.com")
	assert.Contains(t, stdout, "Account: first@example.com (active)")
	assert.Contains(t, stdout, "Account: second@example.com")
	assert.NotContains(t, stdout, "cookie-first")
}

func TestInfoJSONOutputHidesCookies(t *testing.T) {
	home := t.TempDir()
	useFileStore(t, home, fixtureDocument)

	stdout, _, err := executeCLI(t, home, "info", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"state": "ready"`)
	assert.Contains(t, stdout, `"active_email": "first@example.com"`)
	assert.NotContains(t, stdout, "cookie-first")
	assert.NotContains(t, stdout, "cookie-second")
}

func TestInfoShowsNotLoadedForEmptyStore(t *testing.T) {
	home := t.TempDir()
	useFileStore(t, home, "")

	stdout, _, err := executeCLI(t, home, "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No document loaded yet.")
}

func TestSyncWritesDocumentBack(t *testing.T) {
	home := t.TempDir()
	path := useFileStore(t, home, fixtureDocument)

	stdout, _, err := executeCLI(t, home, "sync")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Document synced at")

	content := readStoredDocument(t, path)
	assert.Contains(t, content, "cookie-first")
	assert.NotContains(t, content, "2026-03-01T10:00:00Z")
}

func TestSyncFailsWithoutDocument(t *testing.T) {
	home := t.TempDir()
	path := useFileStore(t, home, "")

	_, _, err := executeCLI(t, home, "sync")
	require.Error(t, err)
	assert.Empty(t, readStoredDocument(t, path))
}

func TestRefreshPersistsRotatedCookie(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		cookie, err := r.Cookie("BOXTOPLAY_SESSION")
		if err == nil && cookie.Value == "cookie-first" {
			http.SetCookie(w, &http.Cookie{Name: "BOXTOPLAY_SESSION", Value: "cookie-rotated", Path: "/"})
		}
		_, _ = fmt.Fprint(w, "<html>serveur</html>")
	}))
	defer target.Close()

	home := t.TempDir()
	path := useFileStore(t, home, fixtureDocument)
	t.Setenv("KEEPER_TARGET_BASE_URL", target.URL)

	stdout, stderr, err := executeCLI(t, home, "refresh")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Probing sessions")
	assert.Contains(t, stdout, "1 rotated")

	content := readStoredDocument(t, path)
	assert.Contains(t, content, "cookie-rotated")
	assert.NotContains(t, content, "cookie-first")
	assert.Contains(t, content, "cookie-second")
}

func TestRefreshReportsDeadSessionWithoutWriting(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/fr/login", http.StatusFound)
	}))
	defer target.Close()

	home := t.TempDir()
	path := useFileStore(t, home, fixtureDocument)
	t.Setenv("KEEPER_TARGET_BASE_URL", target.URL)

	stdout, _, err := executeCLI(t, home, "refresh", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"dead": 2`)
	assert.Contains(t, stdout, `"persisted": false`)

	content := readStoredDocument(t, path)
	assert.Contains(t, content, "2026-03-01T10:00:00Z")
}

func TestStatusRendersServerPlayers(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/creeper.boxtoplay.com", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"online":true,"players":{"online":1,"max":10,"list":[{"name":"Steve"}]}}`)
	}))
	defer lookup.Close()

	home := t.TempDir()
	useFileStore(t, home, "")
	t.Setenv("KEEPER_STATUS_BASE_URL", lookup.URL)
	t.Setenv("IP_DNS", "creeper")

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Server creeper.boxtoplay.com")
	assert.Contains(t, stdout, "players: 1/10")
	assert.Contains(t, stdout, "- Steve")
}

func TestServeRequireLoadFailsOnEmptyStore(t *testing.T) {
	home := t.TempDir()
	useFileStore(t, home, "")

	_, _, err := executeCLI(t, home, "serve", "--require-load", "--addr", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial load")
}

func TestInvalidConfigIsReported(t *testing.T) {
	home := t.TempDir()
	t.Setenv("KEEPER_STORE", "ftp")

	_, _, err := executeCLI(t, home, "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "ftp"`)
}

func TestGistStoreRequiresToken(t *testing.T) {
	home := t.TempDir()
	t.Setenv("KEEPER_STORE", "gist")
	t.Setenv("GIST_ID", "abc123")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("KEEPER_GH_TOKEN", "")

	_, _, err := executeCLI(t, home, "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GH_TOKEN")
}

func TestGistTokenResolvedFromSecretsDirectory(t *testing.T) {
	authCh := make(chan string, 1)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case authCh <- r.Header.Get("Authorization"):
		default:
		}
		_, _ = fmt.Fprint(w, `{"files":{}}`)
	}))
	defer api.Close()

	home := t.TempDir()
	secretsDir := filepath.Join(home, "secrets")
	writeFile(t, filepath.Join(secretsDir, "boxtoplay", "gh_token"), "ghp_from_file\n")

	t.Setenv("KEEPER_STORE", "gist")
	t.Setenv("GIST_ID", "abc123")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("KEEPER_GH_TOKEN", "")
	t.Setenv("KEEPER_GH_TOKEN_REF", "boxtoplay/gh_token")
	t.Setenv("KEEPER_SECRETS_DIR", secretsDir)
	t.Setenv("KEEPER_GIST_API_URL", api.URL)
	// Keep the lookup away from a real password store.
	t.Setenv("PATH", "")

	stdout, _, err := executeCLI(t, home, "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No document loaded yet.")
	assert.Equal(t, "Bearer ghp_from_file", <-authCh)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// useFileStore points the CLI at a documents file under home, seeded with
// content when it is not empty.
func useFileStore(t *testing.T, home, content string) string {
	t.Helper()

	path := filepath.Join(home, "documents.toml")
	t.Setenv("KEEPER_STORE", "file")
	t.Setenv("KEEPER_FILE_PATH", path)
	t.Setenv("KEEPER_PROBE_PACING", "0s")
	t.Setenv("KEEPER_LOG_LEVEL", "error")

	if content != "" {
		store, err := filestore.NewStore(path, ports.SystemClock{})
		require.NoError(t, err)
		require.NoError(t, store.Replace(context.Background(), "boxtoplay.json", content))
	}

	return path
}

func readStoredDocument(t *testing.T, path string) string {
	t.Helper()

	store, err := filestore.NewStore(path, ports.SystemClock{})
	require.NoError(t, err)

	entries, err := store.Fetch(context.Background())
	require.NoError(t, err)
	return entries["boxtoplay.json"]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
