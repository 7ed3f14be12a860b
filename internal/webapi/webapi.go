// Package webapi talks to the public location and clock services and builds
// the search and forecast links the assistant opens.
package webapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"
)

var (
	ErrUnreachable = errors.New("service unreachable")
	ErrNoResults   = errors.New("no results")
	ErrBadPayload  = errors.New("unexpected response")
)

type Config struct {
	GeocodeURL string // defaults to open-meteo
	TimeURL    string // defaults to timeapi.io
	CacheSize  int    // geocoding LRU size, default 256
	Timeout    time.Duration
}

// Place is one geocoding hit.
type Place struct {
	Name      string
	Admin1    string
	Country   string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// SpeechLabel is "name, region" unless the region repeats the name, in which
// case the country is used.
func (p Place) SpeechLabel() string {
	if p.Admin1 != "" && !strings.EqualFold(p.Admin1, p.Name) {
		return p.Name + ", " + p.Admin1
	}
	return p.Name + ", " + p.Country
}

// Region is the admin area, or the country when there is none.
func (p Place) Region() string {
	if p.Admin1 != "" {
		return p.Admin1
	}
	return p.Country
}

type Client struct {
	cfg   Config
	http  *http.Client
	cache *lru.Cache[string, []Place]
}

// New builds a client. hc may carry a proxy transport; nil uses a plain
// client with cfg.Timeout.
func New(hc *http.Client, cfg Config) (*Client, error) {
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	if cfg.TimeURL == "" {
		cfg.TimeURL = "https://timeapi.io/api/Time/current/zone"
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 256
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	cache, err := lru.New[string, []Place](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Client{cfg: cfg, http: hc, cache: cache}, nil
}

// Geocode looks name up and returns at most count places.
func (c *Client) Geocode(ctx context.Context, name string, count int) ([]Place, error) {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name) + "|" + strconv.Itoa(count)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(count))

	body, err := c.get(ctx, c.cfg.GeocodeURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrBadPayload
	}

	var places []Place
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		places = append(places, Place{
			Name:      r.Get("name").String(),
			Admin1:    r.Get("admin1").String(),
			Country:   r.Get("country").String(),
			Latitude:  r.Get("latitude").Float(),
			Longitude: r.Get("longitude").Float(),
			Timezone:  r.Get("timezone").String(),
		})
		return true
	})
	if len(places) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, name)
	}

	c.cache.Add(key, places)
	return places, nil
}

// CurrentTime asks the clock service for the wall time in zone. The result
// carries the zone's location when the local tz database knows it.
func (c *Client) CurrentTime(ctx context.Context, zone string) (time.Time, error) {
	body, err := c.get(ctx, c.cfg.TimeURL+"?timeZone="+url.QueryEscape(zone))
	if err != nil {
		return time.Time{}, err
	}

	raw := gjson.GetBytes(body, "dateTime")
	if !raw.Exists() || raw.String() == "" {
		return time.Time{}, fmt.Errorf("%w: missing dateTime", ErrBadPayload)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", raw.String(), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug("Web API error", "url", u, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return body, nil
}
