package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/explore-jakarta/recocache/pkg/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	upstream := httptest.NewServer(h)
	t.Cleanup(upstream.Close)

	c, err := New(upstream.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writePlaces(w http.ResponseWriter, places ...models.Place) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(places)
}

func TestFetchByPlace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommend/by_place" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("place_id"); got != "3" {
			t.Errorf("expected place_id=3, got %s", got)
		}
		if got := r.URL.Query().Get("top_n"); got != "6" {
			t.Errorf("expected top_n=6, got %s", got)
		}
		writePlaces(w, models.Place{ID: 10, Name: "Monas"})
	})

	places, err := c.FetchByPlace(context.Background(), 3, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 1 || places[0].Name != "Monas" {
		t.Errorf("unexpected places: %+v", places)
	}
}

func TestFetchByUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommend/by_hybrid" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "7" {
			t.Errorf("expected user_id=7, got %s", got)
		}
		writePlaces(w)
	})

	places, err := c.FetchByUser(context.Background(), 7, 6)
	if err != nil {
		t.Fatal(err)
	}
	if places == nil || len(places) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", places)
	}
}

func TestFetchByCategoryKeepsCallerOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("categories"); got != "Park,Museum" {
			t.Errorf("expected Park,Museum, got %s", got)
		}
		writePlaces(w, models.Place{ID: 1})
	})

	if _, err := c.FetchByCategory(context.Background(), []string{"Park", "Museum"}, 6); err != nil {
		t.Fatal(err)
	}
}

func TestFetchNearbySendsRawCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommend/nearby" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("lat"); got != "-6.175392" {
			t.Errorf("expected unrounded lat, got %s", got)
		}
		if got := r.URL.Query().Get("lon"); got != "106.827153" {
			t.Errorf("expected unrounded lon, got %s", got)
		}
		if r.URL.Query().Has("top_n") {
			t.Error("nearby lookup should not send top_n")
		}
		writePlaces(w, models.Place{ID: 2})
	})

	if _, err := c.FetchNearby(context.Background(), -6.175392, 106.827153); err != nil {
		t.Fatal(err)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := c.FetchByPlace(context.Background(), 1, 6)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", se.StatusCode)
	}
	if se.Body != "model not loaded" {
		t.Errorf("unexpected body %q", se.Body)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	})

	if _, err := c.FetchByUser(context.Background(), 1, 6); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRatePlace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/places/3/rate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req models.RatingRequest
		if err := json.Unmarshal(body, &req); err != nil || req.Value != 4 {
			t.Errorf("unexpected body %s", body)
		}
		json.NewEncoder(w).Encode(models.Rating{ID: 1, Value: 4, UserID: 7, PlaceID: 3})
	})

	rating, err := c.RatePlace(context.Background(), "tok", 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if rating.UserID != 7 || rating.PlaceID != 3 {
		t.Errorf("unexpected rating %+v", rating)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "/relative"} {
		if _, err := New(u, nil); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}
