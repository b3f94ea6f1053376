package place

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/sells-group/phone-finder/internal/model"
)

// IdentityKey identifies one real-world entity inside a result set. Records
// without an address share the empty address, so two same-named listings
// that both lack one collapse into a single entity.
type IdentityKey struct {
	Name    string
	Address string
}

// KeyOf computes rec's identity key from its case-folded, trimmed name and address.
func KeyOf(rec model.PlaceRecord) IdentityKey {
	return IdentityKey{
		Name:    normalize(rec.Name),
		Address: normalize(rec.Address),
	}
}

func normalize(s string) string {
	// Casers carry state and are not shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(s))
}

// Set is an insertion-ordered, deduplicated collection of PlaceRecords.
// The first record seen for a key is kept unchanged. Set is safe for
// concurrent use.
type Set struct {
	mu      sync.Mutex
	seen    map[IdentityKey]struct{}
	records []model.PlaceRecord
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[IdentityKey]struct{})}
}

// Merge inserts every record whose identity key is unseen and returns how
// many were added. Merging the same list twice adds nothing the second time.
func (s *Set) Merge(records []model.PlaceRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, rec := range records {
		k := KeyOf(rec)
		if _, ok := s.seen[k]; ok {
			continue
		}
		s.seen[k] = struct{}{}
		s.records = append(s.records, rec)
		added++
	}
	return added
}

// Len returns the number of distinct records.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the records in insertion order.
func (s *Set) Records() []model.PlaceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PlaceRecord, len(s.records))
	copy(out, s.records)
	return out
}
