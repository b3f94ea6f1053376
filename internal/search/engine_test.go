package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/pkg/serpapi"
	"github.com/sells-group/phone-finder/pkg/serpapi/mocks"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeRadius, "Radius": ModeRadius, "expand": ModeExpand, " single ": ModeSingle} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("grid")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSearchArea_ValidationBeforeNetwork(t *testing.T) {
	client := mocks.NewMockClient(t)
	e := NewEngine(NewDispatcher(client), nil, Config{})

	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{Query: "  ", Center: shibuya, RadiusMeters: 1000}},
		{"radius too small", Request{Query: "coffee", Center: shibuya, RadiusMeters: 50}},
		{"radius too large", Request{Query: "coffee", Center: shibuya, RadiusMeters: 60000}},
		{"bad center", Request{Query: "coffee", Center: geo.GeoPoint{Latitude: 100}, RadiusMeters: 1000}},
		{"bad zoom", Request{Query: "coffee", Center: shibuya, Mode: ModeSingle, Zoom: 25}},
		{"bad mode", Request{Query: "coffee", Center: shibuya, Mode: "grid"}},
		{"negative cap", Request{Query: "coffee", Center: shibuya, RadiusMeters: 1000, MaxResults: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SearchArea(context.Background(), tt.req, nil)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	client.AssertNotCalled(t, "MapsSearch", mock.Anything, mock.Anything)
}

func withCoords(page *serpapi.MapsPage, coords ...geo.GeoPoint) *serpapi.MapsPage {
	for i, c := range coords {
		page.LocalResults[i]["gps_coordinates"] = map[string]any{"latitude": c.Latitude, "longitude": c.Longitude}
	}
	return page
}

func TestSearchArea_RadiusFilters(t *testing.T) {
	client := mocks.NewMockClient(t)
	pts := geo.Plan(shibuya, 500, geo.PlanOptions{})

	// The center returns one near, one far and one unlocatable listing.
	center := withCoords(pageOf("center", 3, ""), shibuya.Offset(100, 0), shibuya.Offset(5000, 0))
	delete(center.LocalResults[2], "address")
	client.On("MapsSearch", mock.Anything, serpapi.MapsQuery{Query: "coffee", LL: ll(pts[0])}).Return(center, nil).Once()
	client.On("MapsSearch", mock.Anything, mock.Anything).Return(&serpapi.MapsPage{}, nil)

	e := NewEngine(NewDispatcher(client), NewRadiusFilter(nil, 0), Config{})
	res, err := e.SearchArea(context.Background(), Request{Query: "coffee", Center: shibuya, RadiusMeters: 500}, nil)

	require.NoError(t, err)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "center-0", res.Places[0].Name)
	require.NotNil(t, res.Places[0].DistanceMeters)
	assert.LessOrEqual(t, *res.Places[0].DistanceMeters, 500.0)
	assert.Equal(t, 2, res.Stats.OutsideRadius)
	assert.Equal(t, len(pts), res.Stats.PointsQueried)
	assert.Equal(t, 1, res.Stats.Returned)
}

func TestSearchArea_SingleModeNoFilter(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("MapsSearch", mock.Anything, serpapi.MapsQuery{Query: "coffee", LL: "@35.658,139.7016,14z"}).
		Return(pageOf("s", 4, ""), nil).Once()

	e := NewEngine(NewDispatcher(client), nil, Config{})
	res, err := e.SearchArea(context.Background(), Request{Query: "coffee", Center: shibuya, Mode: ModeSingle}, nil)

	require.NoError(t, err)
	assert.Len(t, res.Places, 4)
	assert.Nil(t, res.Places[0].DistanceMeters)
}

func TestSearchArea_TakeoutAndCap(t *testing.T) {
	client := mocks.NewMockClient(t)
	page := pageOf("t", 6, "")
	for i, r := range page.LocalResults {
		r["service_options"] = map[string]any{"takeout": i%2 == 0}
	}
	page.LocalResults[5]["service_options"] = map[string]any{"テイクアウト": true}
	client.On("MapsSearch", mock.Anything, mock.Anything).Return(page, nil).Once()

	e := NewEngine(NewDispatcher(client), nil, Config{})
	res, err := e.SearchArea(context.Background(), Request{
		Query: "coffee", Center: shibuya, Mode: ModeSingle, Zoom: 15, TakeoutOnly: true,
	}, nil)
	require.NoError(t, err)
	var names []string
	for _, p := range res.Places {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"t-0", "t-2", "t-4", "t-5"}, names)
	assert.Equal(t, 2, res.Stats.NoTakeout)

	client2 := mocks.NewMockClient(t)
	client2.On("MapsSearch", mock.Anything, mock.Anything).Return(pageOf("c", 6, ""), nil).Once()
	e = NewEngine(NewDispatcher(client2), nil, Config{})
	res, err = e.SearchArea(context.Background(), Request{
		Query: "coffee", Center: shibuya, Mode: ModeSingle, MaxResults: 2,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Places, 2)
}

func TestSearchArea_BudgetFromMaxResults(t *testing.T) {
	client := mocks.NewMockClient(t)
	first := pageOf("a", 20, "")
	client.On("MapsSearch", mock.Anything, mock.Anything).Return(first, nil).Once()
	client.On("Next", mock.Anything, first).Return(nil, serpapi.ErrNoMorePages).Once()

	// Budget is 10 × 2 = 20; the first expand point already fills it.
	e := NewEngine(NewDispatcher(client), nil, Config{MaxResults: 10})
	res, err := e.SearchArea(context.Background(), Request{Query: "coffee", Center: shibuya, Mode: ModeExpand}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.PointsQueried)
	assert.Equal(t, 20, res.Stats.Aggregated)
	assert.Len(t, res.Places, 10)
}

func TestSearchArea_Canceled(t *testing.T) {
	client := mocks.NewMockClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(NewDispatcher(client), nil, Config{})
	res, err := e.SearchArea(ctx, Request{Query: "coffee", Center: shibuya, RadiusMeters: 1000}, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.Places)
}
