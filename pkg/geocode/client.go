// Package geocode provides reverse geocoding against a Nominatim-compatible
// endpoint, used to turn bare coordinates into human-readable addresses.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/routeops-cli/internal/resilience"
)

// DefaultBaseURL is the public Nominatim instance. Production deployments
// should point WithBaseURL at a self-hosted mirror.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client resolves coordinates to addresses.
type Client interface {
	// Reverse returns a short human-readable address for a coordinate.
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Option configures the reverse geocoder.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at a different Nominatim-compatible server.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRateLimit sets the requests-per-second limit. The public Nominatim
// usage policy allows at most 1 req/s, which is the default.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header, required by the public instance.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retryCfg   resilience.RetryConfig

	mu    sync.Mutex
	cache map[string]string
}

// WithRetry overrides the retry policy for upstream requests.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retryCfg = cfg
	}
}

// NewClient creates a reverse geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  "routeops-cli",
		limiter:    rate.NewLimiter(1, 1),
		cache:      map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
	} `json:"address"`
}

// Reverse resolves one coordinate. Results are cached for the lifetime of
// the client, keyed at 6 decimal places so co-located records share one
// upstream lookup.
func (c *client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lng)

	c.mu.Lock()
	if addr, ok := c.cache[key]; ok {
		c.mu.Unlock()
		zap.L().Debug("geocode cache hit", zap.String("key", key))
		return addr, nil
	}
	c.mu.Unlock()

	parsed, err := resilience.Retry(ctx, c.retryCfg, "geocode.reverse",
		func(ctx context.Context) (reverseResponse, error) {
			return c.fetch(ctx, lat, lng)
		})
	if err != nil {
		return "", err
	}

	addr := shortAddress(parsed)
	if addr == "" {
		return "", eris.Errorf("geocode: no address for %s", key)
	}

	c.mu.Lock()
	c.cache[key] = addr
	c.mu.Unlock()
	return addr, nil
}

// shortAddress prefers "road, locality, city" over the full display name,
// which on Nominatim includes country and postcode noise.
func shortAddress(r reverseResponse) string {
	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}
	locality := r.Address.Suburb
	if locality == "" {
		locality = r.Address.Neighbourhood
	}

	var parts []string
	for _, p := range []string{r.Address.Road, locality, city} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return r.DisplayName
	}
	return strings.Join(parts, ", ")
}

func (c *client) fetch(ctx context.Context, lat, lng float64) (reverseResponse, error) {
	var parsed reverseResponse

	if err := c.limiter.Wait(ctx); err != nil {
		return parsed, eris.Wrap(err, "geocode: rate limit wait")
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("zoom", "17")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return parsed, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return parsed, eris.Wrap(err, "geocode: reverse request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return parsed, &resilience.StatusError{
			Status: resp.StatusCode,
			Msg:    fmt.Sprintf("geocode: reverse returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return parsed, eris.Wrap(err, "geocode: decode response")
	}
	return parsed, nil
}
