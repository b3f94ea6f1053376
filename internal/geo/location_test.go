package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "@35.6762,139.6503,16z", FormatLocation(tokyo, 16))
	assert.Equal(t, "@-33.5,0,10z", FormatLocation(GeoPoint{Latitude: -33.5}, 10))
}

func TestParseLocation(t *testing.T) {
	p, zoom, err := ParseLocation("@40.7455096,-74.0083012,14z")
	require.NoError(t, err)
	assert.Equal(t, 40.7455096, p.Latitude)
	assert.Equal(t, -74.0083012, p.Longitude)
	assert.Equal(t, 14, zoom)

	p, zoom, err = ParseLocation(" @35.6762,139.6503 ")
	require.NoError(t, err)
	assert.Equal(t, tokyo, p)
	assert.Zero(t, zoom)

	p, zoom, err = ParseLocation("@35.6762,139.6503,15.1z")
	require.NoError(t, err)
	assert.Equal(t, 15, zoom)
	assert.Equal(t, tokyo, p)
}

func TestParseLocation_RoundTrip(t *testing.T) {
	in := GeoPoint{Latitude: 34.6937, Longitude: 135.5023}
	p, zoom, err := ParseLocation(FormatLocation(in, 13))
	require.NoError(t, err)
	assert.Equal(t, in, p)
	assert.Equal(t, 13, zoom)
}

func TestParseLocation_Errors(t *testing.T) {
	for _, s := range []string{
		"",
		"35.6,139.6",
		"@35.6",
		"@abc,139.6",
		"@35.6,xyz",
		"@95,139.6",
		"@35.6,139.6,30z",
		"@35.6,139.6,bz",
		"@1,2,3,4",
	} {
		_, _, err := ParseLocation(s)
		assert.Error(t, err, "input %q", s)
	}
}
