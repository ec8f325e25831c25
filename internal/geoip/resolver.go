package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/evyataryagoni/timebot/internal/logger"
	"github.com/evyataryagoni/timebot/internal/metrics"
	"github.com/evyataryagoni/timebot/internal/models"
)

// Resolver is the narrow capability the time tools depend on.
// Keeping it an interface means the two public HTTP endpoints can be
// swapped or mocked in tests without touching the time-calculation logic.
type Resolver interface {
	// CallerIP determines the public IP address of this process.
	CallerIP(ctx context.Context) (string, error)

	// Lookup resolves geographic information for an IP address.
	Lookup(ctx context.Context, ip string) (*models.GeoLocation, error)
}

// HTTPResolver resolves the caller IP and its geolocation through two
// unauthenticated public endpoints:
//
//   - an "what is my IP" service returning the IP as JSON ({"ip": "..."})
//     or as a raw text body
//   - an ip-api.com style geolocation service at <base>/json/{ip}
//
// Every call re-queries the services. There is no caching, no retry and no
// backoff - failures surface directly to the caller.
type HTTPResolver struct {
	client       *http.Client
	ipLookupURL  string
	geoLookupURL string // base URL, "/json/{ip}" is appended
	validator    *validator.Validate
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// ipLookupResponse is the JSON shape of ipify-style "what is my IP" services.
type ipLookupResponse struct {
	IP string `json:"ip"`
}

// geoLookupResponse is the JSON shape of ip-api.com responses.
// Fields beyond these are ignored.
type geoLookupResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Timezone   string  `json:"timezone"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// NewHTTPResolver creates a resolver against the given endpoints.
//
// Parameters:
//   - ipLookupURL: full URL of the "what is my IP" service
//   - geoLookupURL: base URL of the geolocation service
//   - timeout: per-request timeout for both endpoints
//   - m: metrics collector (optional, can be nil)
//   - log: logger (optional, can be nil)
func NewHTTPResolver(ipLookupURL, geoLookupURL string, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *HTTPResolver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &HTTPResolver{
		client:       &http.Client{Timeout: timeout},
		ipLookupURL:  ipLookupURL,
		geoLookupURL: strings.TrimRight(geoLookupURL, "/"),
		validator:    validator.New(),
		metrics:      m,
		logger:       log.WithComponent("HTTPResolver"),
	}
}

// CallerIP issues one GET to the IP lookup service and extracts the caller's
// public IPv4/IPv6 address from the body.
func (r *HTTPResolver) CallerIP(ctx context.Context) (string, error) {
	body, err := r.get(ctx, "myip", r.ipLookupURL)
	if err != nil {
		return "", err
	}

	// The service may answer with JSON ({"ip": "..."}) or a bare text IP.
	// Try JSON first, fall back to the raw body.
	ip := ""
	var parsed ipLookupResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil && parsed.IP != "" {
		ip = parsed.IP
	} else {
		ip = strings.TrimSpace(string(body))
	}

	// Whatever came back must at least look like an IP address.
	if err := r.validator.Var(ip, "required,ip"); err != nil {
		r.logger.Warn().Str("body", ip).Msg("IP lookup returned something that is not an IP")
		r.countResolver("myip", "resolution_error")
		return "", fmt.Errorf("%w: unable to determine caller IP", ErrResolution)
	}

	r.countResolver("myip", "success")
	r.logger.Debug().Str("ip", ip).Msg("Resolved caller IP")
	return ip, nil
}

// Lookup issues one GET to the geolocation service for the given IP.
// The IP is assumed well-formed; no local validation beyond URL assembly.
func (r *HTTPResolver) Lookup(ctx context.Context, ip string) (*models.GeoLocation, error) {
	body, err := r.get(ctx, "geo", fmt.Sprintf("%s/json/%s", r.geoLookupURL, ip))
	if err != nil {
		return nil, err
	}

	var parsed geoLookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		r.countResolver("geo", "resolution_error")
		return nil, fmt.Errorf("%w: malformed geolocation response: %v", ErrResolution, err)
	}

	// ip-api.com reports failures in-band with status "fail".
	if parsed.Status != "success" {
		r.logger.Warn().Str("ip", ip).Str("message", parsed.Message).Msg("Geolocation lookup failed")
		r.countResolver("geo", "resolution_error")
		return nil, fmt.Errorf("%w: geolocation lookup failed for %s: %s", ErrResolution, ip, parsed.Message)
	}

	// A record without a timezone is useless to the time calculator, so it
	// is treated as a resolution failure rather than a partial result.
	if parsed.Timezone == "" {
		r.countResolver("geo", "resolution_error")
		return nil, fmt.Errorf("%w: geolocation response for %s carries no timezone", ErrResolution, ip)
	}

	r.countResolver("geo", "success")
	r.logger.Info().
		Str("ip", ip).
		Str("city", parsed.City).
		Str("timezone", parsed.Timezone).
		Msg("Geolocation lookup successful")

	return &models.GeoLocation{
		IP:       ip,
		Country:  parsed.Country,
		Region:   parsed.RegionName,
		City:     parsed.City,
		Timezone: parsed.Timezone,
		Lat:      parsed.Lat,
		Lon:      parsed.Lon,
	}, nil
}

// get performs a single GET round trip and returns the response body.
// Transport failures map to ErrNetwork, non-2xx statuses to ErrResolution.
func (r *HTTPResolver) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ResolverRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.countResolver(endpoint, "network_error")
		return nil, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Lookup request failed")
		r.countResolver(endpoint, "network_error")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("Lookup returned non-success status")
		r.countResolver(endpoint, "resolution_error")
		return nil, fmt.Errorf("%w: %s returned status %d", ErrResolution, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.countResolver(endpoint, "network_error")
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	return body, nil
}

// countResolver increments the resolver counter when metrics are enabled.
func (r *HTTPResolver) countResolver(endpoint, status string) {
	if r.metrics != nil {
		r.metrics.ResolverRequestsTotal.WithLabelValues(endpoint, status).Inc()
	}
}
