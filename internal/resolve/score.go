// Package resolve looks up a single business by name and grades how
// completely it was found.
package resolve

import (
	"strings"

	"github.com/sells-group/phone-finder/internal/model"
)

// Score weights.
const (
	scorePhone   = 50
	scoreAddress = 20
	scoreRating  = 10
	scoreReviews = 10
	scoreBranch  = -5
)

// DefaultBranchQualifiers are name fragments that mark generic chain
// listings: branch, main store, store.
var DefaultBranchQualifiers = []string{"支店", "本店", "店"}

// Score rates how useful a candidate is. It depends only on the candidate.
func Score(rec model.PlaceRecord, qualifiers []string) int {
	s := 0
	if rec.HasPhone() {
		s += scorePhone
	}
	if rec.HasAddress() {
		s += scoreAddress
	}
	if rec.Rating != nil {
		s += scoreRating
	}
	if rec.Reviews != nil {
		s += scoreReviews
	}
	for _, q := range qualifiers {
		if q != "" && strings.Contains(rec.Name, q) {
			s += scoreBranch
			break
		}
	}
	return s
}

// SelectBest returns the index of the highest scoring candidate, or -1 for
// an empty list. Ties go to the earliest candidate.
func SelectBest(cands []model.PlaceRecord, qualifiers []string) int {
	best, bestScore := -1, 0
	for i, c := range cands {
		s := Score(c, qualifiers)
		if best == -1 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
