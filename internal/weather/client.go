// Package weather fetches forecasts from OpenWeather and reduces them into
// severity classifications.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	forecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	geocodeURL  = "https://api.openweathermap.org/geo/1.0/zip"

	maxBodySize = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// ForecastResponse is the provider's forecast payload for one location.
type ForecastResponse struct {
	City struct {
		Name string `json:"name"`
		// TimezoneOffsetSec is the location's shift from UTC in seconds,
		// applicable to every sample in List.
		TimezoneOffsetSec int `json:"timezone"`
	} `json:"city"`
	List []Sample `json:"list"`
}

// Sample is a single timestamped forecast entry.
type Sample struct {
	Dt      int64       `json:"dt"` // UTC epoch seconds
	Weather []Condition `json:"weather"`
}

// Condition carries one numeric weather condition code.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

// GeoResult is the provider's answer for a postal-code lookup.
type GeoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Client talks to the OpenWeather API.
type Client struct {
	client  HTTPClient
	apiKey  string
	timeout time.Duration
}

// New creates a Client with the given HTTP client and API key.
func New(client HTTPClient, apiKey string) *Client {
	return &Client{
		client:  client,
		apiKey:  apiKey,
		timeout: 15 * time.Second,
	}
}

// Forecast fetches the 3-hourly forecast for a coordinate.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	var out ForecastResponse
	if err := c.get(ctx, forecastURL, params, &out); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	return &out, nil
}

// GeocodeZip resolves a postal code and country to coordinates.
func (c *Client) GeocodeZip(ctx context.Context, postalCode, country string) (*GeoResult, error) {
	params := url.Values{}
	params.Set("zip", postalCode+","+country)
	params.Set("appid", c.apiKey)

	var out GeoResult
	if err := c.get(ctx, geocodeURL, params, &out); err != nil {
		return nil, fmt.Errorf("geocode zip: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	return nil
}
