package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unipath/unipath-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return NewCacheRepository(client, zap.NewNop()), srv
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	payload := map[string]string{"university": "State University"}
	require.NoError(t, repo.Set(ctx, "recommendations:user:user-1", payload, time.Minute))

	var out map[string]string
	require.NoError(t, repo.Get(ctx, "recommendations:user:user-1", &out))
	assert.Equal(t, payload, out)
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCacheRepo(t)

	var out map[string]string
	err := repo.Get(context.Background(), "recommendations:user:missing", &out)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "recommendations:user:user-1", "a", time.Minute))
	require.NoError(t, repo.Set(ctx, "recommendations:user:user-2", "b", time.Minute))
	require.NoError(t, repo.Set(ctx, "profiles:user-1", "c", time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "recommendations:user:*"))

	assert.False(t, srv.Exists("recommendations:user:user-1"))
	assert.False(t, srv.Exists("recommendations:user:user-2"))
	assert.True(t, srv.Exists("profiles:user-1"))
}
