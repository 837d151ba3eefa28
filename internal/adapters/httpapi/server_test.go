package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	filestore "github.com/bnema/boxtoplay-keeper/internal/adapters/store/file"
	"github.com/bnema/boxtoplay-keeper/internal/application"
	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "accounts": [
    {"email": "first@example.com", "cookies": {"BOXTOPLAY_SESSION": "secret-cookie"}}
  ],
  "active_account_index": 0,
  "current_server_id": "4242",
  "last_sync_time": "2026-03-01T10:00:00Z"
}`

type unchangedProber struct{}

func (unchangedProber) Probe(context.Context, domain.ProbeTarget) domain.ProbeOutcome {
	return domain.Unchanged(http.StatusOK)
}

type staticLookup struct{}

func (staticLookup) Lookup(_ context.Context, host string) (domain.ServerStatus, error) {
	return domain.ServerStatus{Host: host, Online: true, PlayersOnline: 1, PlayersMax: 8, Players: []string{"Steve"}}, nil
}

func newTestServer(t *testing.T, seed bool) (*httptest.Server, *application.Keeper, *filestore.Store) {
	t.Helper()

	store, err := filestore.NewStore(filepath.Join(t.TempDir(), "documents.toml"), nil)
	require.NoError(t, err)
	if seed {
		require.NoError(t, store.Replace(context.Background(), "boxtoplay.json", sampleDocument))
	}

	cache := application.NewStateCache(store, nil, logging.NewNop())
	keeper := application.NewKeeper(cache, unchangedProber{}, nil, nil, logging.NewNop(), application.KeeperOptions{})
	_ = keeper.Start(context.Background())

	commands := application.NewCommands(keeper, staticLookup{}, "orny.boxtoplay.com", domain.DefaultSessionCookie)
	server := httptest.NewServer(NewServer(commands, logging.NewNop()).Handler())
	t.Cleanup(server.Close)

	return server, keeper, store
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	response, err := http.Get(url)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response.StatusCode, string(body)
}

func post(t *testing.T, url string) (int, string) {
	t.Helper()

	response, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response.StatusCode, string(body)
}

func TestLivenessRoutes(t *testing.T) {
	server, _, _ := newTestServer(t, false)

	status, body := get(t, server.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, bannerText, body)

	status, body = get(t, server.URL+"/keep-alive")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ping reçu !", body)

	status, _ = get(t, server.URL+"/unknown")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthStaysUpWhenDegraded(t *testing.T) {
	server, _, _ := newTestServer(t, false)

	status, body := get(t, server.URL+"/healthz")
	require.Equal(t, http.StatusOK, status)

	var health healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, string(application.InfoNotLoaded), health.Document)
	assert.NotEmpty(t, health.LoadError)
}

func TestSessionRouteHidesCookieValues(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	status, body := get(t, server.URL+"/session")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "secret-cookie")

	var session SessionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &session))
	assert.Equal(t, string(application.InfoReady), session.State)
	assert.Equal(t, "first@example.com", session.ActiveEmail)
	assert.Equal(t, "4242", session.ServerID)
	assert.Equal(t, "orny.boxtoplay.com", session.DNS)
	require.Len(t, session.Accounts, 1)
	assert.True(t, session.Accounts[0].HasSession)
	assert.NotEmpty(t, session.Accounts[0].Fingerprint)
}

func TestSyncRoute(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		server, _, _ := newTestServer(t, false)

		status, body := post(t, server.URL+"/sync")
		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, body, "not loaded")
	})

	t.Run("loaded", func(t *testing.T) {
		server, _, store := newTestServer(t, true)

		status, body := post(t, server.URL+"/sync")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "last_sync_time")

		files, err := store.Fetch(context.Background())
		require.NoError(t, err)
		assert.Contains(t, files["boxtoplay.json"], `"last_sync_time"`)
		assert.Contains(t, files["boxtoplay.json"], "secret-cookie")
	})

	t.Run("wrong method", func(t *testing.T) {
		server, _, _ := newTestServer(t, true)

		status, _ := get(t, server.URL+"/sync")
		assert.Equal(t, http.StatusMethodNotAllowed, status)
	})
}

func TestReloadRouteRecoversDegradedKeeper(t *testing.T) {
	server, keeper, store := newTestServer(t, false)

	status, _ := post(t, server.URL+"/reload")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	require.NoError(t, store.Replace(context.Background(), "boxtoplay.json", sampleDocument))
	status, body := post(t, server.URL+"/reload")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"state":"ready"`)
	assert.NoError(t, keeper.LoadError())
}

func TestStatusRoute(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	status, body := get(t, server.URL+"/status")
	require.Equal(t, http.StatusOK, status)

	var payload statusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "orny.boxtoplay.com", payload.Host)
	assert.True(t, payload.Online)
	assert.Equal(t, []string{"Steve"}, payload.Players)
}

func TestMetricsRoute(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	status, body := get(t, server.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "keeper_load_total"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	server := NewServer(nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWriteErrorStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not loaded", err: domain.ErrDocumentNotLoaded, want: http.StatusConflict},
		{
			name: "unsaved cookies while store is down",
			err:  fmt.Errorf("reload document: %w: %w", domain.ErrUnsavedChanges, fmt.Errorf("%w: 502", domain.ErrStoreUnavailable)),
			want: http.StatusConflict,
		},
		{name: "malformed", err: domain.ErrMalformedDocument, want: http.StatusUnprocessableEntity},
		{name: "store down", err: domain.ErrStoreUnavailable, want: http.StatusBadGateway},
		{name: "lookup disabled", err: application.ErrStatusLookupUnavailable, want: http.StatusServiceUnavailable},
		{name: "other", err: io.ErrUnexpectedEOF, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}
