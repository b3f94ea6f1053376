package geocode

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Geocode(ctx context.Context, query string) (*Result, error) {
	args := m.Called(ctx, query)
	r, _ := args.Get(0).(*Result)
	return r, args.Error(1)
}

func TestCachedClient_HitsAfterFirstCall(t *testing.T) {
	next := &mockClient{}
	next.On("Geocode", mock.Anything, "Shibuya, Tokyo").
		Return(&Result{Matched: true, Latitude: 35.66}, nil).Once()

	c := NewCachedClient(next, time.Hour, 10)
	ctx := context.Background()

	first, err := c.Geocode(ctx, "Shibuya, Tokyo")
	require.NoError(t, err)
	second, err := c.Geocode(ctx, "  shibuya,   TOKYO ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	next.AssertExpectations(t)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCachedClient_CachesMisses(t *testing.T) {
	next := &mockClient{}
	next.On("Geocode", mock.Anything, "nowhere").Return(&Result{}, nil).Once()

	c := NewCachedClient(next, time.Hour, 10)
	for i := 0; i < 3; i++ {
		res, err := c.Geocode(context.Background(), "nowhere")
		require.NoError(t, err)
		assert.False(t, res.Matched)
	}
	next.AssertExpectations(t)
}

func TestCachedClient_DoesNotCacheErrors(t *testing.T) {
	next := &mockClient{}
	next.On("Geocode", mock.Anything, "Tokyo").Return(nil, errors.New("down")).Twice()

	c := NewCachedClient(next, time.Hour, 10)
	_, err := c.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	_, err = c.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	next.AssertExpectations(t)
}

func TestCachedClient_Expires(t *testing.T) {
	next := &mockClient{}
	next.On("Geocode", mock.Anything, "Tokyo").Return(&Result{Matched: true}, nil).Twice()

	c := NewCachedClient(next, 20*time.Millisecond, 10)

	_, _ = c.Geocode(context.Background(), "Tokyo")
	time.Sleep(60 * time.Millisecond)
	_, _ = c.Geocode(context.Background(), "Tokyo")
	next.AssertExpectations(t)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestCachedClient_EvictsLeastRecentlyUsed(t *testing.T) {
	next := &mockClient{}
	next.On("Geocode", mock.Anything, mock.Anything).Return(&Result{Matched: true}, nil)

	c := NewCachedClient(next, time.Hour, 2)
	ctx := context.Background()
	_, _ = c.Geocode(ctx, "a")
	_, _ = c.Geocode(ctx, "b")
	_, _ = c.Geocode(ctx, "a") // refresh a
	_, _ = c.Geocode(ctx, "c") // evicts b

	assert.Equal(t, 2, c.Stats().Entries)
	_, _ = c.Geocode(ctx, "a")
	_, _ = c.Geocode(ctx, "b")

	next.AssertNumberOfCalls(t, "Geocode", 4)
}

func TestCachedClient_Defaults(t *testing.T) {
	c := NewCachedClient(&mockClient{}, 0, 0)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
	assert.Equal(t, DefaultCacheMaxEntries, c.Stats().MaxEntries)
}

func TestCacheKey_Normalizes(t *testing.T) {
	assert.Equal(t, cacheKey("Shibuya Tokyo"), cacheKey(" shibuya  tokyo "))
	assert.NotEqual(t, cacheKey("Shibuya"), cacheKey("Shinjuku"))
	assert.Len(t, cacheKey(fmt.Sprint(1)), 64)
}
