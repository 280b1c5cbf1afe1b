package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripWithNamespace(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), "timetable", time.Minute, nil, true)

	require.NoError(t, cache.Set(context.Background(), "result:abc", map[string]int{"units": 3}, 0))
	assert.Contains(t, repo.items, "timetable:result:abc")
	assert.Equal(t, time.Minute, repo.ttls["timetable:result:abc"])

	var got map[string]int
	hit, err := cache.Get(context.Background(), "result:abc", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got["units"])

	hit, err = cache.Get(context.Background(), "result:missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, "timetable", 0, nil, true)
	require.NoError(t, cache.Set(context.Background(), "schedule:c1", "x", 0))
	require.NoError(t, cache.Set(context.Background(), "result:r1", "y", 0))

	require.NoError(t, cache.Invalidate(context.Background(), "schedule:*"))
	assert.Equal(t, []string{"timetable:schedule:c1"}, repo.deleted)
	assert.Contains(t, repo.items, "timetable:result:r1")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, "timetable", 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.items)

	var dest string
	hit, err := cache.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection refused")
	cache := NewCacheService(repo, nil, "", 0, nil, true)

	var dest string
	hit, err := cache.Get(context.Background(), "k", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}
