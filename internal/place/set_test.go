package place

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phone-finder/internal/model"
)

func TestKeyOf_Normalizes(t *testing.T) {
	a := KeyOf(model.PlaceRecord{Name: "  Cafe A ", Address: "1 MAIN St"})
	b := KeyOf(model.PlaceRecord{Name: "cafe a", Address: "1 main st"})
	assert.Equal(t, a, b)
}

func TestSet_MergeAcrossPoints(t *testing.T) {
	s := NewSet()
	first := []model.PlaceRecord{{Name: "Cafe A", Address: "1 Main St", Phone: "111"}}
	second := []model.PlaceRecord{{Name: "Cafe A", Address: "1 Main St", Phone: "222"}}

	assert.Equal(t, 1, s.Merge(first))
	assert.Equal(t, 0, s.Merge(second))
	require.Equal(t, 1, s.Len())
	// First seen wins; no enrichment from the later duplicate.
	assert.Equal(t, "111", s.Records()[0].Phone)
}

func TestSet_MergeIdempotent(t *testing.T) {
	page := []model.PlaceRecord{
		{Name: "A", Address: "x"},
		{Name: "B", Address: "y"},
		{Name: "A", Address: "z"},
	}

	once := NewSet()
	once.Merge(page)

	twice := NewSet()
	twice.Merge(page)
	twice.Merge(page)

	assert.Equal(t, once.Records(), twice.Records())
	assert.Equal(t, 3, twice.Len())
}

func TestSet_MissingAddressCollapses(t *testing.T) {
	s := NewSet()
	s.Merge([]model.PlaceRecord{
		{Name: "Starbucks", Phone: "1"},
		{Name: "Starbucks", Phone: "2"},
	})
	assert.Equal(t, 1, s.Len())
}

func TestSet_PreservesOrder(t *testing.T) {
	s := NewSet()
	s.Merge([]model.PlaceRecord{{Name: "C"}, {Name: "A"}})
	s.Merge([]model.PlaceRecord{{Name: "B"}, {Name: "A"}})

	var names []string
	for _, r := range s.Records() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestSet_Concurrent(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Merge([]model.PlaceRecord{{Name: fmt.Sprintf("shop-%d", i)}})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestSet_RecordsIsCopy(t *testing.T) {
	s := NewSet()
	s.Merge([]model.PlaceRecord{{Name: "A"}})
	recs := s.Records()
	recs[0].Name = "mutated"
	assert.Equal(t, "A", s.Records()[0].Name)
}
