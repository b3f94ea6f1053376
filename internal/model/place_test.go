package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceRecord_Has(t *testing.T) {
	t.Parallel()

	var r PlaceRecord
	assert.False(t, r.HasPhone())
	assert.False(t, r.HasAddress())
	assert.False(t, r.HasCoordinates())

	r.Phone = "03-0000-0000"
	r.Address = "Tokyo"
	assert.True(t, r.HasPhone())
	assert.True(t, r.HasAddress())
}

func TestPlaceResult_JSONFlattens(t *testing.T) {
	t.Parallel()

	res := PlaceResult{
		PlaceRecord:    PlaceRecord{Name: "Cafe A", Rating: Float64Ptr(4.5), Reviews: IntPtr(12)},
		DistanceMeters: Float64Ptr(120),
	}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Cafe A","rating":4.5,"reviews":12,"distance_meters":120}`, string(b))
}
