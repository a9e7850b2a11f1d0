package cache

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind tags the lookup a cache key belongs to.
type Kind string

const (
	KindPlace    Kind = "place"
	KindUser     Kind = "user"
	KindCategory Kind = "category"
	KindNearby   Kind = "nearby"
)

// Kinds lists every key kind in display order.
var Kinds = []Kind{KindPlace, KindUser, KindNearby, KindCategory}

const keySep = ":"

// coordScale rounds coordinates to 3 decimals, roughly a 100m grid.
const coordScale = 1000

// Key is a structured cache key. Its string form is "<kind>:<id>".
type Key struct {
	Kind Kind
	ID   string
}

// String renders the key as stored in the Store.
func (k Key) String() string {
	return string(k.Kind) + keySep + k.ID
}

// PlaceKey returns the key for recommendations similar to a place.
func PlaceKey(placeID int64) Key {
	return Key{Kind: KindPlace, ID: strconv.FormatInt(placeID, 10)}
}

// UserKey returns the key for personalized recommendations of a user.
func UserKey(userID int64) Key {
	return Key{Kind: KindUser, ID: strconv.FormatInt(userID, 10)}
}

// CategoryKey returns the key for a category set. Order of the input does
// not matter: categories are sorted before joining.
func CategoryKey(categories []string) Key {
	sorted := slices.Clone(categories)
	slices.Sort(sorted)
	return Key{Kind: KindCategory, ID: strings.Join(sorted, ",")}
}

// NearbyKey returns the key for a coordinate query. Both axes are rounded to
// 3 decimal places so that nearby queries share an entry.
func NearbyKey(lat, lon float64) Key {
	return Key{Kind: KindNearby, ID: formatCoord(lat) + "," + formatCoord(lon)}
}

// RoundCoord rounds a coordinate to the cache grid.
func RoundCoord(v float64) float64 {
	r := math.Round(v*coordScale) / coordScale
	if r == 0 {
		// collapse -0 so both sides of the equator/meridian share a key
		return 0
	}
	return r
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(RoundCoord(v), 'f', 3, 64)
}

// ParseKey splits a stored key back into its kind and identifier.
func ParseKey(s string) (Key, bool) {
	kind, id, ok := strings.Cut(s, keySep)
	if !ok {
		return Key{}, false
	}
	switch Kind(kind) {
	case KindPlace, KindUser, KindCategory, KindNearby:
		return Key{Kind: Kind(kind), ID: id}, true
	default:
		return Key{}, false
	}
}
