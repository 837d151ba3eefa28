package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetUsesPassShowAndKeepsFirstLine(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "boxtoplay/keeper/gh_token"}, args)
			return "ghp_secret\nuser: keeper\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "boxtoplay/keeper/gh_token")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", value)
}

func TestStoreGetRejectsEmptyEntry(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			return "\n", "", nil
		},
	}

	_, err := store.Get(context.Background(), "boxtoplay/keeper/gh_token")
	require.ErrorContains(t, err, "entry is empty")
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			return "", "entry not found", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "boxtoplay/keeper/gh_token")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "boxtoplay/keeper/gh_token")
	assert.ErrorContains(t, err, "entry not found")
}

func TestStoreGetSkipsCommandWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			t.Fatal("pass must not run")
			return "", "", nil
		},
	}

	_, err := store.Get(ctx, "boxtoplay/keeper/gh_token")
	require.ErrorIs(t, err, context.Canceled)
}
