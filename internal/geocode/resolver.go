// Package geocode resolves postal addresses to coordinates through a
// Photon compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/metrics"
)

// Config holds configuration for the resolver.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	Limit        int
	Language     string
	Country      string
	// Center biases queries when the caller has no better hint.
	Center domain.GeoLocation
}

// Result is the outcome of resolving one address. Point is nil when nothing
// usable was found; Reason then says why.
type Result struct {
	Query      string
	Point      *domain.GeoLocation
	Candidates []domain.GeoCandidate
	Reason     string
}

// Found reports whether a point was selected.
func (r Result) Found() bool {
	return r.Point != nil
}

// Resolver turns addresses into ranked candidates.
type Resolver struct {
	client   *resty.Client
	cfg      Config
	endpoint string
}

// NewResolver creates a resolver with retrying HTTP transport.
func NewResolver(cfg *Config) *Resolver {
	c := *cfg
	if c.Limit <= 0 {
		c.Limit = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "culturemap-importer")
	client.SetTimeout(c.Timeout)
	client.SetRetryCount(c.RetryCount)
	if c.RetryWait > 0 {
		client.SetRetryWaitTime(c.RetryWait)
	}
	if c.RetryMaxWait > 0 {
		client.SetRetryMaxWaitTime(c.RetryMaxWait)
	}
	client.AddRetryCondition(retryable)

	return &Resolver{
		client:   client,
		cfg:      c,
		endpoint: strings.TrimSuffix(c.BaseURL, "/") + "/api",
	}
}

// retryable retries transport errors, throttling and server errors.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// BuildQuery joins the non-empty address parts in the order
// city, street, street2, street3, postcode, country.
func BuildQuery(addr domain.Address, country string) string {
	street := strings.TrimSpace(strings.TrimSpace(addr.Street1) + " " + strings.TrimSpace(addr.HouseNumber))
	parts := []string{addr.City, street, addr.Street2, "", addr.PostCode, country}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name        string `json:"name"`
			Street      string `json:"street"`
			HouseNumber string `json:"housenumber"`
			Postcode    string `json:"postcode"`
			City        string `json:"city"`
			Country     string `json:"country"`
			Type        string `json:"type"`
		} `json:"properties"`
	} `json:"features"`
}

// Search queries the provider. Errors are returned only after all retries failed.
func (r *Resolver) Search(ctx context.Context, query string, bias domain.GeoLocation) ([]domain.GeoCandidate, error) {
	var body photonResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"lat":   strconv.FormatFloat(bias.Lat, 'f', 6, 64),
			"lon":   strconv.FormatFloat(bias.Lng, 'f', 6, 64),
			"limit": strconv.Itoa(r.cfg.Limit),
			"lang":  r.cfg.Language,
		}).
		Get(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call geocoding API: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("geocoding API returned HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	candidates := make([]domain.GeoCandidate, 0, len(body.Features))
	for _, f := range body.Features {
		// GeoJSON order is lon, lat
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		candidates = append(candidates, domain.GeoCandidate{
			Lat:         f.Geometry.Coordinates[1],
			Lng:         f.Geometry.Coordinates[0],
			Name:        f.Properties.Name,
			Street:      f.Properties.Street,
			HouseNumber: f.Properties.HouseNumber,
			PostCode:    f.Properties.Postcode,
			City:        f.Properties.City,
			Country:     f.Properties.Country,
			Type:        f.Properties.Type,
		})
	}
	return candidates, nil
}

// Resolve geocodes addr. It never fails: transport problems and empty result
// sets come back as a Result without Point.
func (r *Resolver) Resolve(ctx context.Context, addr domain.Address, hint *domain.GeoLocation) Result {
	res := Result{Query: BuildQuery(addr, r.cfg.Country)}
	if addr.IsEmpty() {
		res.Reason = "address is empty"
		metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return res
	}

	bias := r.cfg.Center
	if hint != nil {
		bias = *hint
	}

	start := time.Now()
	candidates, err := r.Search(ctx, res.Query, bias)
	metrics.GeocodeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("query", res.Query).Warn("Geocoding failed")
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		res.Reason = "geocoding service unavailable"
		return res
	}

	res.Candidates = candidates
	res.Point, _ = SelectBest(candidates, addr.PostCode)
	if res.Point == nil {
		res.Reason = "no candidates found"
		metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return res
	}
	metrics.GeocodeRequests.WithLabelValues("ok").Inc()
	return res
}

// SelectBest picks the first candidate whose postcode equals postcode, then the
// first candidate overall. It returns nil and -1 for an empty list.
func SelectBest(candidates []domain.GeoCandidate, postcode string) (*domain.GeoLocation, int) {
	if len(candidates) == 0 {
		return nil, -1
	}
	postcode = strings.TrimSpace(postcode)
	if postcode != "" {
		for i, c := range candidates {
			if strings.TrimSpace(c.PostCode) == postcode {
				p := c.Point()
				return &p, i
			}
		}
	}
	p := candidates[0].Point()
	return &p, 0
}
