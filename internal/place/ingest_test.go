package place

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
)

func decode(t *testing.T, s string) Raw {
	t.Helper()
	var raw Raw
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestFromRaw_Full(t *testing.T) {
	raw := decode(t, `{
		"title": "Blue Bottle Coffee",
		"phone": "03-1234-5678",
		"address": "1-1 Shibuya",
		"rating": 4.5,
		"reviews": 1203,
		"gps_coordinates": {"latitude": 35.66, "longitude": 139.70},
		"service_options": {"dine_in": true, "takeout": false}
	}`)

	rec := FromRaw(raw)
	assert.Equal(t, "Blue Bottle Coffee", rec.Name)
	assert.Equal(t, "03-1234-5678", rec.Phone)
	assert.Equal(t, "1-1 Shibuya", rec.Address)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.5, *rec.Rating)
	require.NotNil(t, rec.Reviews)
	assert.Equal(t, 1203, *rec.Reviews)
	assert.Equal(t, &geo.GeoPoint{Latitude: 35.66, Longitude: 139.70}, rec.Coordinates)
	assert.Equal(t, map[string]bool{"dine_in": true, "takeout": false}, rec.ServiceOptions)
}

func TestFromRaw_Aliases(t *testing.T) {
	rec := FromRaw(decode(t, `{"title": "喫茶店", "電話": "06-1111-2222", "住所": "大阪市北区"}`))
	assert.Equal(t, "06-1111-2222", rec.Phone)
	assert.Equal(t, "大阪市北区", rec.Address)

	// The primary key wins when both are present.
	rec = FromRaw(decode(t, `{"phone": "03-0000-0000", "電話": "06-1111-2222"}`))
	assert.Equal(t, "03-0000-0000", rec.Phone)

	// An empty primary value falls through to the alias.
	rec = FromRaw(decode(t, `{"phone": "  ", "電話": "06-1111-2222"}`))
	assert.Equal(t, "06-1111-2222", rec.Phone)
}

func TestFromRaw_Missing(t *testing.T) {
	rec := FromRaw(decode(t, `{"title": "Nameless", "gps_coordinates": {"latitude": 35.6}}`))
	assert.Equal(t, model.PlaceRecord{Name: "Nameless"}, rec)
}

func TestFromRaw_StringNumbers(t *testing.T) {
	rec := FromRaw(decode(t, `{"rating": "4.2", "reviews": "1,024"}`))
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.2, *rec.Rating)
	require.NotNil(t, rec.Reviews)
	assert.Equal(t, 1024, *rec.Reviews)
}

func TestFromRawList(t *testing.T) {
	recs := FromRawList([]Raw{{"title": "A"}, {"title": "B"}})
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].Name)
	assert.Equal(t, "B", recs[1].Name)
}

func TestOffersTakeout(t *testing.T) {
	assert.True(t, OffersTakeout(model.PlaceRecord{ServiceOptions: map[string]bool{"takeout": true}}))
	assert.True(t, OffersTakeout(model.PlaceRecord{ServiceOptions: map[string]bool{"テイクアウト": true}}))
	assert.False(t, OffersTakeout(model.PlaceRecord{ServiceOptions: map[string]bool{"takeout": false}}))
	assert.False(t, OffersTakeout(model.PlaceRecord{}))
}
