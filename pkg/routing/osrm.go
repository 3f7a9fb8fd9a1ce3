package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// ErrNoRoute is returned when the routing engine cannot connect the two points
var ErrNoRoute = errors.New("no route found between the given coordinates")

// OSRMClient computes driving distances using an OSRM HTTP server
type OSRMClient struct {
	baseURL string
	client  *http.Client
}

// OSRMConfig holds configuration for the OSRM client
type OSRMConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewOSRMClient creates a new OSRM client
func NewOSRMClient(config OSRMConfig) *OSRMClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// routeResponse is the subset of the OSRM /route response we read
type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// DrivingDistanceKm returns the road distance between two points in
// kilometres, rounded to two decimals
func (c *OSRMClient) DrivingDistanceKm(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	// OSRM expects lon,lat pairs
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, fromLon, fromLat, toLon, toLat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build route request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call routing service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read routing response: %w", err)
	}

	var route routeResponse
	if err := json.Unmarshal(body, &route); err != nil {
		return 0, fmt.Errorf("failed to parse routing response (status %d): %w", resp.StatusCode, err)
	}

	if route.Code == "NoRoute" || (resp.StatusCode == http.StatusOK && len(route.Routes) == 0) {
		return 0, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK || route.Code != "Ok" {
		return 0, fmt.Errorf("routing service error: status=%d code=%s message=%s", resp.StatusCode, route.Code, route.Message)
	}

	return metersToKm(route.Routes[0].Distance), nil
}

func metersToKm(meters float64) float64 {
	return math.Round(meters/10) / 100
}
