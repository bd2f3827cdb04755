package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientConfig holds configuration for the feed client.
type ClientConfig struct {
	URL        string
	VenueURL   string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

// Client fetches the calendar feed and single venues.
type Client struct {
	client   *resty.Client
	feedURL  string
	venueURL string
}

// NewClient creates a feed client with retrying transport.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = time.Second
	}

	client := resty.New()
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(timeout)
	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(wait)
	client.SetRetryMaxWaitTime(10 * wait)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
	})

	return &Client{
		client:   client,
		feedURL:  cfg.URL,
		venueURL: strings.TrimSuffix(cfg.VenueURL, "/"),
	}
}

// FetchFeed downloads and decodes the whole feed.
func (c *Client) FetchFeed(ctx context.Context) (*Feed, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode())
	}

	var f Feed
	if err := json.Unmarshal(resp.Body(), &f); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return &f, nil
}

// FetchVenue loads one venue. A missing venue returns nil without error.
func (c *Client) FetchVenue(ctx context.Context, id string) (*Venue, error) {
	if c.venueURL == "" {
		return nil, fmt.Errorf("no venue URL configured")
	}
	resp, err := c.client.R().SetContext(ctx).Get(c.venueURL + "/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch venue %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("venue %s returned HTTP %d", id, resp.StatusCode())
	}

	var v Venue
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return nil, fmt.Errorf("failed to decode venue %s: %w", id, err)
	}
	return &v, nil
}
