package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(0)

	data := []byte(`{"runId":"r1"}`)
	require.NoError(t, m.Save(ctx, "r1", data))
	data[0] = 'X'

	got, err := m.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, `{"runId":"r1"}`, string(got), "saved data is copied")

	_, err = m.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Save(ctx, "r1", []byte("x")))
	now = now.Add(59 * time.Second)
	_, err := m.Load(ctx, "r1")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = m.Load(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "gridflow:run:abc", Key("abc"))
}

// TestRedis_RoundTrip needs a reachable server in GRIDFLOW_TEST_REDIS_URL.
func TestRedis_RoundTrip(t *testing.T) {
	url := os.Getenv("GRIDFLOW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GRIDFLOW_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	id := uuid.NewString()
	require.NoError(t, r.Save(ctx, id, []byte(`{"status":"succeeded"}`)))

	got, err := r.Load(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"succeeded"}`, string(got))

	ttl, err := r.TTL(ctx, id)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	_, err = r.Load(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
