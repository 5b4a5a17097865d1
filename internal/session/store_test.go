package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/payment-portal/internal/domain/entity"
)

// storeContract runs the behaviour every Store must share
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now()

	live := &Session{
		ID:          "live-" + now.Format("150405.000000000"),
		User:        entity.User{ID: 3, Name: "Ana", Roles: []string{"approver"}},
		AccessToken: "token-a",
		Remember:    true,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	other := &Session{
		ID:          "other-" + now.Format("150405.000000000"),
		User:        entity.User{ID: 4},
		AccessToken: "token-b",
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, other))

	got, err := store.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.User.Name)
	assert.True(t, got.User.HasRole("approver"))
	assert.True(t, got.Remember)

	users, err := store.DeleteByAccessToken(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, users)

	_, err = store.Get(ctx, live.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, other.ID))
	_, err = store.Get(ctx, other.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, newSQLiteStore(t))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PORTAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PORTAL_TEST_REDIS_ADDR not set")
	}

	client := NewRedisClient(RedisConfig{Addrs: []string{addr}})
	defer client.Close()

	store := NewRedisStore(client)
	require.NoError(t, store.Ping(context.Background()))
	storeContract(t, store)

	n, err := store.PurgeExpired(context.Background(), time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	s := &Session{ID: "a", AccessToken: "t"}
	require.NoError(t, store.Save(context.Background(), s))

	s.AccessToken = "changed"
	got, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "t", got.AccessToken)
}
