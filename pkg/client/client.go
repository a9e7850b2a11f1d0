// Package client talks to the remote recommendation API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/explore-jakarta/recocache/pkg/models"
)

// StatusError is returned when the remote API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 1024

// Client is an HTTP client for the recommendation API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    httpClient,
	}, nil
}

// FetchByPlace returns places similar to placeID.
func (c *Client) FetchByPlace(ctx context.Context, placeID int64, topN int) ([]models.Place, error) {
	q := url.Values{}
	q.Set("place_id", strconv.FormatInt(placeID, 10))
	q.Set("top_n", strconv.Itoa(topN))
	return c.getPlaces(ctx, "/recommend/by_place", q)
}

// FetchByUser returns hybrid (personalized) recommendations for userID.
func (c *Client) FetchByUser(ctx context.Context, userID int64, topN int) ([]models.Place, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("top_n", strconv.Itoa(topN))
	return c.getPlaces(ctx, "/recommend/by_hybrid", q)
}

// FetchByCategory returns recommendations for a category set.
func (c *Client) FetchByCategory(ctx context.Context, categories []string, topN int) ([]models.Place, error) {
	q := url.Values{}
	q.Set("categories", strings.Join(categories, ","))
	q.Set("top_n", strconv.Itoa(topN))
	return c.getPlaces(ctx, "/recommend/by_category", q)
}

// FetchNearby returns places near the given coordinate.
func (c *Client) FetchNearby(ctx context.Context, lat, lon float64) ([]models.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.getPlaces(ctx, "/recommend/nearby", q)
}

// RatePlace submits a rating on behalf of the bearer token's user.
func (c *Client) RatePlace(ctx context.Context, token string, placeID int64, value int) (models.Rating, error) {
	body, err := json.Marshal(models.RatingRequest{Value: value})
	if err != nil {
		return models.Rating{}, fmt.Errorf("encode rating: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	var rating models.Rating
	path := "/places/" + strconv.FormatInt(placeID, 10) + "/rate"
	if err := c.do(ctx, http.MethodPost, path, nil, headers, body, &rating); err != nil {
		return models.Rating{}, err
	}
	return rating, nil
}

func (c *Client) getPlaces(ctx context.Context, path string, q url.Values) ([]models.Place, error) {
	var places []models.Place
	if err := c.do(ctx, http.MethodGet, path, q, nil, nil, &places); err != nil {
		return nil, err
	}
	if places == nil {
		places = []models.Place{}
	}
	return places, nil
}

// do sends a request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, headers map[string]string, body []byte, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
