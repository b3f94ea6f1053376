package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/resilience"
)

type fakeProvider struct {
	name  string
	res   *Result
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Geocode(_ context.Context, _ string) (*Result, error) {
	f.calls++
	return f.res, f.err
}

func noRetry() CascadeOption {
	return WithProviderRetry(resilience.Policy{Attempts: 1})
}

func TestCascade_FirstMatchWins(t *testing.T) {
	first := &fakeProvider{name: "nominatim", res: &Result{Matched: true, Latitude: 1, Source: "nominatim"}}
	second := &fakeProvider{name: "google", res: &Result{Matched: true, Latitude: 2, Source: "google"}}

	res, err := NewCascade([]Provider{first, second}, noRetry()).Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "nominatim", res.Source)
	assert.Equal(t, 0, second.calls)
}

func TestCascade_FallsBackOnMiss(t *testing.T) {
	first := &fakeProvider{name: "nominatim", res: &Result{Source: "nominatim"}}
	second := &fakeProvider{name: "google", res: &Result{Matched: true, Source: "google"}}

	res, err := NewCascade([]Provider{first, second}, noRetry()).Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "google", res.Source)
}

func TestCascade_FallsBackOnError(t *testing.T) {
	first := &fakeProvider{name: "nominatim", err: errors.New("down")}
	second := &fakeProvider{name: "google", res: &Result{Matched: true, Source: "google"}}

	res, err := NewCascade([]Provider{first, second}, noRetry()).Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestCascade_AllMiss(t *testing.T) {
	first := &fakeProvider{name: "nominatim", err: errors.New("down")}
	second := &fakeProvider{name: "google", res: &Result{}}

	res, err := NewCascade([]Provider{first, second}, noRetry()).Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestCascade_AllFail(t *testing.T) {
	first := &fakeProvider{name: "nominatim", err: errors.New("down")}

	_, err := NewCascade([]Provider{first}, noRetry()).Geocode(context.Background(), "Tokyo")
	assert.Error(t, err)
}

func TestCascade_NoProviders(t *testing.T) {
	_, err := NewCascade(nil).Geocode(context.Background(), "Tokyo")
	assert.Error(t, err)
}

func TestCascade_BreakerSkipsFailingProvider(t *testing.T) {
	first := &fakeProvider{name: "nominatim", err: errors.New("down")}
	second := &fakeProvider{name: "google", res: &Result{Matched: true, Source: "google"}}

	c := NewCascade([]Provider{first, second},
		noRetry(),
		WithBreakerConfig(resilience.BreakerConfig{Threshold: 2, Cooldown: time.Hour}),
	)
	for i := 0; i < 5; i++ {
		_, err := c.Geocode(context.Background(), "Tokyo")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, first.calls)
	assert.Equal(t, 5, second.calls)
}
