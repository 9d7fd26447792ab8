// Package client is a typed HTTP client for the Urbanize API. The map-sync core and
// urbanctl talk to the server only through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/urbanize/urbanize-backend/internal/advisor"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/geocoding"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/middleware"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserID sends id as the caller identity on every request.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = id }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userID != "" {
		req.Header.Set(middleware.UserHeader, c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func coords(at provider.Coordinates) url.Values {
	return url.Values{
		"lat": {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
	}
}

// Reports

func (c *Client) ListReports(ctx context.Context) ([]reports.Report, error) {
	var out []reports.Report
	err := c.do(ctx, http.MethodGet, "/api/reports", nil, nil, &out)
	return out, err
}

func (c *Client) ListUserReports(ctx context.Context, userID string) ([]reports.Report, error) {
	var out []reports.Report
	err := c.do(ctx, http.MethodGet, "/api/reports/user/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

func (c *Client) CreateReport(ctx context.Context, in reports.NewReport) (reports.Report, error) {
	var out reports.Report
	err := c.do(ctx, http.MethodPost, "/api/reports", nil, in, &out)
	return out, err
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/reports/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{Status: http.StatusOK, Message: "delete not acknowledged"}
	}
	return nil
}

// Readings

func (c *Client) AQI(ctx context.Context, at provider.Coordinates) (insights.AQIResponse, error) {
	var out insights.AQIResponse
	err := c.do(ctx, http.MethodGet, "/api/aqi", coords(at), nil, &out)
	return out, err
}

// Traffic returns the current reading. A location without coverage yields an
// APIError with status 404.
func (c *Client) Traffic(ctx context.Context, at provider.Coordinates) (traffic.Reading, error) {
	var out traffic.Reading
	err := c.do(ctx, http.MethodGet, "/api/traffic", coords(at), nil, &out)
	return out, err
}

func (c *Client) FutureTraffic(ctx context.Context, at provider.Coordinates) (traffic.FlowSegment, error) {
	var out traffic.FlowSegment
	err := c.do(ctx, http.MethodGet, "/api/traffic/future", coords(at), nil, &out)
	return out, err
}

// NearbyZones returns the zone list. The server degrades provider failures to an
// empty list with an error note, which is returned in the response as-is.
func (c *Client) NearbyZones(ctx context.Context, at provider.Coordinates, radius float64) (insights.ZonesResponse, error) {
	q := coords(at)
	if radius > 0 {
		q.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))
	}
	var out insights.ZonesResponse
	err := c.do(ctx, http.MethodGet, "/api/nearby-zones", q, nil, &out)
	return out, err
}

func (c *Client) GeocodeFirst(ctx context.Context, query string) (geocoding.Place, error) {
	var out geocoding.Place
	err := c.do(ctx, http.MethodGet, "/api/geocode/first", url.Values{"q": {query}}, nil, &out)
	return out, err
}

// AI

type chatLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type chatBody struct {
	Messages []assistant.Message `json:"messages"`
	Context  string              `json:"context,omitempty"`
	Location *chatLocation       `json:"location,omitempty"`
}

func (c *Client) Chat(ctx context.Context, msgs []assistant.Message, cc assistant.ChatContext) (string, error) {
	body := chatBody{Messages: msgs, Context: cc.Context}
	if body.Messages == nil {
		body.Messages = []assistant.Message{}
	}
	if cc.Location != nil {
		body.Location = &chatLocation{Latitude: cc.Location.Lat, Longitude: cc.Location.Lon}
	}
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/chat", nil, body, &out)
	return out.Message, err
}

func (c *Client) UrbanOptimization(ctx context.Context, in assistant.OptimizationInput) (string, error) {
	var out struct {
		Suggestions string `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/urban-optimization", nil, in, &out)
	return out.Suggestions, err
}

func (c *Client) Optimize(ctx context.Context, area string, data any) (string, error) {
	body := map[string]any{"area": area, "data": data}
	var out struct {
		Suggestions string `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/optimize", nil, body, &out)
	return out.Suggestions, err
}

// PredictCongestion sends coordinates as [lng, lat]; the server looks up traffic itself.
func (c *Client) PredictCongestion(ctx context.Context, location string, at provider.Coordinates) (advisor.PredictionResponse, error) {
	body := map[string]any{"location": location, "coordinates": []float64{at.Lon, at.Lat}}
	var out advisor.PredictionResponse
	err := c.do(ctx, http.MethodPost, "/api/ai/predict-congestion", nil, body, &out)
	return out, err
}

func (c *Client) AnalyzeTraffic(ctx context.Context, location string, at provider.Coordinates) (string, error) {
	body := map[string]any{"location": location, "coordinates": []float64{at.Lon, at.Lat}}
	var out struct {
		Analysis string `json:"analysis"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/analyze-traffic", nil, body, &out)
	return out.Analysis, err
}
