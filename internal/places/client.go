// Package places wraps a Google Places style HTTP API for address
// autocomplete and place lookup.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	httpTimeout    = 10 * time.Second
	maxSuggestions = 5
)

// ErrNoPlace is returned by Details when the API knows no such place.
var ErrNoPlace = errors.New("place not found")

// Suggestion is one ranked autocomplete result.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Place is a resolved address.
type Place struct {
	PlaceID          string              `json:"place_id"`
	FormattedAddress string              `json:"formatted_address"`
	Coordinate       geofence.Coordinate `json:"coordinate"`
}

// Config configures the Client.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client calls the autocomplete and details endpoints. With no API key every
// call returns an empty result and logs a warning.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewClient constructs a client with a shared HTTP client.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
		log:     cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: httpTimeout}
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	return c
}

type autocompleteResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
	ErrorMessage string `json:"error_message"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
	ErrorMessage string `json:"error_message"`
}

// Autocomplete returns up to five address suggestions for query, in the
// order the API ranks them.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Suggestion{}, nil
	}
	if c.apiKey == "" {
		c.log.Warn("PLACES_API_KEY not set, skipping autocomplete")
		return []Suggestion{}, nil
	}

	params := url.Values{}
	params.Set("input", query)
	params.Set("types", "address")
	params.Set("components", "country:us")

	var resp autocompleteResponse
	if err := c.get(ctx, "/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []Suggestion{}, nil
	default:
		return nil, fmt.Errorf("places: autocomplete status %s: %s", resp.Status, resp.ErrorMessage)
	}

	out := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, Suggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

// Details resolves a place id to its formatted address and coordinate.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	if placeID == "" || c.apiKey == "" {
		return nil, ErrNoPlace
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,formatted_address,geometry")

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS", "INVALID_REQUEST":
		return nil, ErrNoPlace
	default:
		return nil, fmt.Errorf("places: details status %s: %s", resp.Status, resp.ErrorMessage)
	}

	return &Place{
		PlaceID:          resp.Result.PlaceID,
		FormattedAddress: resp.Result.FormattedAddress,
		Coordinate: geofence.Coordinate{
			Lat: resp.Result.Geometry.Location.Lat,
			Lng: resp.Result.Geometry.Location.Lng,
		},
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("places: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("places: http GET: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("places: API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("places: decode response: %w", err)
	}
	return nil
}
