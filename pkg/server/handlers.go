package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/explore-jakarta/recocache/pkg/client"
	"github.com/explore-jakarta/recocache/pkg/models"
	"github.com/explore-jakarta/recocache/pkg/recommend"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleByPlace(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("place_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "place_id: "+err.Error())
		return
	}
	s.serveLookup(w, r, recommend.PlaceRequest(id))
}

func (s *Server) handleByUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "user_id: "+err.Error())
		return
	}
	s.serveLookup(w, r, recommend.UserRequest(id))
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	var categories []string
	for _, raw := range r.URL.Query()["categories"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}
	if len(categories) == 0 {
		writeJSONError(w, http.StatusBadRequest, "categories: at least one category required")
		return
	}
	s.serveLookup(w, r, recommend.CategoryRequest(categories))
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseCoord(q.Get("lat"), 90)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "lat: "+err.Error())
		return
	}
	lon, err := parseCoord(q.Get("lon"), 180)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "lon: "+err.Error())
		return
	}
	s.serveLookup(w, r, recommend.NearbyRequest(lat, lon))
}

// serveLookup answers with fresh or cached places. A failed lookup is a 502;
// stale data is never served.
func (s *Server) serveLookup(w http.ResponseWriter, r *http.Request, req recommend.Request) {
	res, err := s.gateway.Lookup(r.Context(), req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	if res.Cached {
		w.Header().Set(headerCache, "hit")
	} else {
		w.Header().Set(headerCache, "miss")
	}
	writeJSON(w, http.StatusOK, res.Places)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if s.rater == nil {
		writeJSONError(w, http.StatusNotImplemented, "rating not configured")
		return
	}
	placeID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "place id: "+err.Error())
		return
	}
	token := bearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	var req models.RatingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Value < 1 || req.Value > 5 {
		writeJSONError(w, http.StatusBadRequest, "value must be between 1 and 5")
		return
	}

	rating, err := s.rater.RatePlace(r.Context(), token, placeID, req.Value)
	if err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
			writeJSONError(w, se.StatusCode, se.Error())
			return
		}
		s.log.Warn("rate place failed", "place_id", placeID, "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if rating.UserID == 0 {
		s.log.Warn("rating response has no user id; user cache not invalidated", "place_id", placeID)
	}
	// Personalized results depend on this user's ratings.
	n := s.gateway.InvalidateUser(rating.UserID)
	w.Header().Set(headerInvalidated, strconv.Itoa(n))
	writeJSON(w, http.StatusOK, rating)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Store().Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	store := s.gateway.Store()
	n := store.Size()
	store.Clear()
	s.log.Info("cache cleared", "removed", n)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleInvalidateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "user id: "+err.Error())
		return
	}
	n := s.gateway.InvalidateUser(userID)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

type lookupsResponse struct {
	Summary []models.LookupSummary `json:"summary"`
	Recent  []models.LookupRecord  `json:"recent"`
}

func (s *Server) handleLookups(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONError(w, http.StatusNotImplemented, "lookup history disabled")
		return
	}
	q := r.URL.Query()

	limit := 20
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var since time.Time
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "since must be a positive duration")
			return
		}
		since = time.Now().UTC().Add(-d)
	}

	summary, err := s.history.Summary(r.Context(), since)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recent, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		summary = []models.LookupSummary{}
	}
	if recent == nil {
		recent = []models.LookupRecord{}
	}
	writeJSON(w, http.StatusOK, lookupsResponse{Summary: summary, Recent: recent})
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseCoord(s string, limit float64) (float64, error) {
	if s == "" {
		return 0, errors.New("required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %v out of range", v)
	}
	return v, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]errorBody{
		"error": {Message: message, Type: "recocache_error", Code: code},
	})
}
