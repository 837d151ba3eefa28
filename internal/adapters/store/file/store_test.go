package file

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "documents.toml"), nil)
	require.NoError(t, err)

	files, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "nested", "documents.toml")
	store, err := NewStore(path, clock)
	require.NoError(t, err)

	content := "{\n  \"accounts\": [],\n  \"current_server_id\": \"\"\n}"
	require.NoError(t, store.Replace(context.Background(), "boxtoplay.json", content))
	require.NoError(t, store.Replace(context.Background(), "other.json", "{}"))
	require.NoError(t, store.Replace(context.Background(), "boxtoplay.json", content+"\n"))

	files, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"boxtoplay.json": content + "\n",
		"other.json":     "{}",
	}, files)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "version = 1")
	assert.Contains(t, string(raw), "2026-03-01T09:30:00Z")
}

func TestStoreRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "documents.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 9\n"), 0o600))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	_, err = store.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestStoreRejectsInvalidTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "documents.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[documents]\nname = "), 0o600))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	_, err = store.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "documents.toml"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Replace(ctx, "a", "b"), context.Canceled)
}

func TestStoreConcurrentReplaceSharesPathLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "documents.toml")
	first, err := NewStore(path, nil)
	require.NoError(t, err)
	second, err := NewStore(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := first
			if i%2 == 1 {
				store = second
			}
			assert.NoError(t, store.Replace(context.Background(), "doc-"+strconv.Itoa(i), strconv.Itoa(i)))
		}(i)
	}
	wg.Wait()

	files, err := first.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 20)
}
