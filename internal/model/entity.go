package model

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phone-finder/internal/geo"
)

// ConfidenceTier grades how complete a resolved entity is. Tiers are ordered;
// a higher value means more fields were found.
type ConfidenceTier int

// Confidence tiers, lowest first.
const (
	TierLow ConfidenceTier = iota
	TierMid
	TierHigh
	TierVeryHigh
)

var tierNames = [...]string{"low", "mid", "high", "very_high"}

func (t ConfidenceTier) String() string {
	if t < TierLow || t > TierVeryHigh {
		return "unknown"
	}
	return tierNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t ConfidenceTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ConfidenceTier) UnmarshalText(b []byte) error {
	tier, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTier parses the String form of a tier.
func ParseTier(s string) (ConfidenceTier, error) {
	for i, n := range tierNames {
		if strings.EqualFold(s, n) {
			return ConfidenceTier(i), nil
		}
	}
	return TierLow, eris.Errorf("model: unknown confidence tier %q", s)
}

// TierFor derives the tier from which fields are present. Without a phone
// number the tier is always Low.
func TierFor(hasPhone, hasAddress, hasCoords bool) ConfidenceTier {
	switch {
	case !hasPhone:
		return TierLow
	case hasAddress && hasCoords:
		return TierVeryHigh
	case hasAddress:
		return TierHigh
	default:
		return TierMid
	}
}

// Error reasons reported on unresolved entities.
const (
	ReasonNotFound       = "entity not found"
	ReasonPhoneNotFound  = "phone number not found"
	ReasonOutsideRadius  = "exceeds requested radius"
	ReasonLookupCanceled = "lookup canceled"
	ReasonEmptyName      = "empty name"
)

// ResolvedEntity is the outcome of resolving one business name.
type ResolvedEntity struct {
	QueryName      string         `json:"query_name" yaml:"query_name"`
	ResolvedName   string         `json:"resolved_name,omitempty" yaml:"resolved_name,omitempty"`
	Phone          string         `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address        string         `json:"address,omitempty" yaml:"address,omitempty"`
	Coordinates    *geo.GeoPoint  `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Rating         *float64       `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews        *int           `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	ConfidenceTier ConfidenceTier `json:"confidence_tier" yaml:"confidence_tier"`
	DistanceMeters *float64       `json:"distance_meters,omitempty" yaml:"distance_meters,omitempty"`
	ErrorReason    string         `json:"error_reason,omitempty" yaml:"error_reason,omitempty"`
}

// Tier recomputes the confidence tier from the entity's fields.
func (e ResolvedEntity) Tier() ConfidenceTier {
	return TierFor(e.Phone != "", e.Address != "", e.Coordinates != nil)
}

// ClearFields empties every data field, keeping only the query name, and
// records reason.
func (e *ResolvedEntity) ClearFields(reason string) {
	*e = ResolvedEntity{QueryName: e.QueryName, ConfidenceTier: TierLow, ErrorReason: reason}
}
