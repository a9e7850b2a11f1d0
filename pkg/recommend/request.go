package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/explore-jakarta/recocache/pkg/cache"
	"github.com/explore-jakarta/recocache/pkg/models"
)

// ErrLookupFailed matches every error returned by a failed gateway lookup.
var ErrLookupFailed = errors.New("lookup failed")

// LookupError wraps the remote failure behind a lookup. It matches both
// ErrLookupFailed and the underlying cause with errors.Is / errors.As.
type LookupError struct {
	Kind cache.Kind
	Key  string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s recommendations (%s): %v", e.Kind, e.Key, e.Err)
}

func (e *LookupError) Unwrap() []error {
	return []error{ErrLookupFailed, e.Err}
}

// Fetcher performs the remote recommendation calls.
type Fetcher interface {
	FetchByPlace(ctx context.Context, placeID int64, topN int) ([]models.Place, error)
	FetchByUser(ctx context.Context, userID int64, topN int) ([]models.Place, error)
	FetchByCategory(ctx context.Context, categories []string, topN int) ([]models.Place, error)
	FetchNearby(ctx context.Context, lat, lon float64) ([]models.Place, error)
}

// Request describes one lookup. Only the fields of its Kind are used; build
// it with PlaceRequest, UserRequest, CategoryRequest or NearbyRequest.
type Request struct {
	Kind       cache.Kind
	PlaceID    int64
	UserID     int64
	Categories []string
	Lat, Lon   float64
}

// PlaceRequest asks for places similar to placeID.
func PlaceRequest(placeID int64) Request {
	return Request{Kind: cache.KindPlace, PlaceID: placeID}
}

// UserRequest asks for personalized recommendations for userID.
func UserRequest(userID int64) Request {
	return Request{Kind: cache.KindUser, UserID: userID}
}

// CategoryRequest asks for recommendations matching a category set.
func CategoryRequest(categories []string) Request {
	return Request{Kind: cache.KindCategory, Categories: categories}
}

// NearbyRequest asks for places around a coordinate.
func NearbyRequest(lat, lon float64) Request {
	return Request{Kind: cache.KindNearby, Lat: lat, Lon: lon}
}

// Key derives the normalized cache key for the request.
func (r Request) Key() (cache.Key, error) {
	switch r.Kind {
	case cache.KindPlace:
		return cache.PlaceKey(r.PlaceID), nil
	case cache.KindUser:
		return cache.UserKey(r.UserID), nil
	case cache.KindCategory:
		return cache.CategoryKey(r.Categories), nil
	case cache.KindNearby:
		return cache.NearbyKey(r.Lat, r.Lon), nil
	default:
		return cache.Key{}, fmt.Errorf("unknown lookup kind %q", r.Kind)
	}
}

// fetch issues the remote call for the request's kind. Nearby queries send
// the caller's exact coordinates; only the cache key is rounded.
func (r Request) fetch(ctx context.Context, f Fetcher, topN int) ([]models.Place, error) {
	switch r.Kind {
	case cache.KindPlace:
		return f.FetchByPlace(ctx, r.PlaceID, topN)
	case cache.KindUser:
		return f.FetchByUser(ctx, r.UserID, topN)
	case cache.KindCategory:
		return f.FetchByCategory(ctx, r.Categories, topN)
	case cache.KindNearby:
		return f.FetchNearby(ctx, r.Lat, r.Lon)
	default:
		return nil, fmt.Errorf("unknown lookup kind %q", r.Kind)
	}
}
