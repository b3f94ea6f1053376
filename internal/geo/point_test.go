package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tokyo := GeoPoint{Latitude: 35.6762, Longitude: 139.6503}
	osaka := GeoPoint{Latitude: 34.6937, Longitude: 135.5023}

	assert.Zero(t, Distance(tokyo, tokyo))
	// Tokyo to Osaka is roughly 397 km.
	assert.InDelta(t, 397000, Distance(tokyo, osaka), 3000)
	assert.InDelta(t, Distance(tokyo, osaka), Distance(osaka, tokyo), 1e-6)
}

func TestOffset(t *testing.T) {
	center := GeoPoint{Latitude: 35.6762, Longitude: 139.6503}

	north := center.Offset(1000, 0)
	assert.Equal(t, center.Longitude, north.Longitude)
	assert.InDelta(t, 1000, Distance(center, north), 5)

	east := center.Offset(0, 1000)
	assert.Equal(t, center.Latitude, east.Latitude)
	assert.InDelta(t, 1000, Distance(center, east), 5)
}

func TestGeoPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       GeoPoint
		wantErr bool
	}{
		{"origin", GeoPoint{}, false},
		{"tokyo", GeoPoint{Latitude: 35.6762, Longitude: 139.6503}, false},
		{"lat too high", GeoPoint{Latitude: 91}, true},
		{"lon too low", GeoPoint{Longitude: -181}, true},
		{"nan", GeoPoint{Latitude: math.NaN()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
