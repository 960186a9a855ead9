package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// hourlyVariables are the sounding parameters requested per coordinate.
const hourlyVariables = "cape,lifted_index,convective_inhibition,cloud_cover_low,cloud_cover_mid,cloud_cover_high"

// maxRetries is the number of additional attempts after the first failure.
const maxRetries = 2

// Client implements domain.SoundingProvider against the Open-Meteo forecast
// API. One Fetch issues up to 1+maxRetries requests with a linearly growing
// per-attempt timeout; only transient faults are retried.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	attemptTimeout time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates an Open-Meteo client. attemptTimeout is the budget for
// the first attempt; retries get 2x and 3x.
func NewClient(baseURL string, attemptTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		attemptTimeout: attemptTimeout,
		metrics:        metrics,
		logger:         logger.With("component", "openmeteo"),
	}
}

// Fetch retrieves the "now" sounding for one coordinate.
func (c *Client) Fetch(ctx context.Context, coord domain.Coordinate) (domain.SoundingSample, error) {
	if err := coord.Validate(); err != nil {
		return domain.SoundingSample{}, fmt.Errorf("fetch sounding: %w", err)
	}

	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return domain.SoundingSample{}, ctx.Err()
		}
		if attempt > 0 {
			c.metrics.UpstreamRetries.Inc()
			c.logger.Warn("retrying sounding fetch",
				"attempt", attempt+1,
				"lat", coord.Lat,
				"lon", coord.Lon,
				"error", lastErr,
			)
		}

		// Linearly increasing timeout: a slow upstream gets more room on
		// each retry without an unbounded wait.
		timeout := c.attemptTimeout * time.Duration(attempt+1)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		sample, err := c.fetchOnce(attemptCtx, coord)
		cancel()
		if err == nil {
			c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
			return sample, nil
		}

		lastErr = err
		if !domain.IsRetryable(err) {
			c.metrics.UpstreamRequests.WithLabelValues("fatal_error").Inc()
			return domain.SoundingSample{}, err
		}
	}

	c.metrics.UpstreamRequests.WithLabelValues("retryable_error").Inc()
	return domain.SoundingSample{}, fmt.Errorf("fetch sounding after %d attempts: %w", maxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, coord domain.Coordinate) (domain.SoundingSample, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%.6f", coord.Lat)},
		"longitude": {fmt.Sprintf("%.6f", coord.Lon)},
		"hourly":    {hourlyVariables},
		"current":   {"temperature_2m"},
		"timezone":  {"UTC"},
	}
	u := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.SoundingSample{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SoundingSample{}, fmt.Errorf("sounding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.SoundingSample{}, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SoundingSample{}, &domain.ParseError{Reason: "malformed JSON", Err: err}
	}

	return payload.toSample()
}

// Open-Meteo response types. Hourly series are parallel arrays; index 0 is
// read as "now".

type response struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
	} `json:"current"`
	Hourly struct {
		Time                 []string  `json:"time"`
		CAPE                 []float64 `json:"cape"`
		LiftedIndex          []float64 `json:"lifted_index"`
		ConvectiveInhibition []float64 `json:"convective_inhibition"`
		CloudCoverLow        []float64 `json:"cloud_cover_low"`
		CloudCoverMid        []float64 `json:"cloud_cover_mid"`
		CloudCoverHigh       []float64 `json:"cloud_cover_high"`
	} `json:"hourly"`
}

func (r response) toSample() (domain.SoundingSample, error) {
	h := r.Hourly
	if len(h.CAPE) == 0 || len(h.LiftedIndex) == 0 || len(h.ConvectiveInhibition) == 0 {
		return domain.SoundingSample{}, &domain.ParseError{Reason: "hourly series empty"}
	}

	ts := time.Now().UTC()
	if len(h.Time) > 0 {
		// Open-Meteo emits "2006-01-02T15:04" without a zone suffix.
		if parsed, err := time.Parse("2006-01-02T15:04", h.Time[0]); err == nil {
			ts = parsed.UTC()
		}
	}

	return domain.SoundingSample{
		CAPE:        h.CAPE[0],
		LiftedIndex: h.LiftedIndex[0],
		// Normalize to a positive suppression magnitude regardless of the
		// sign convention the upstream uses (see domain package doc).
		ConvectiveInhibition: math.Abs(h.ConvectiveInhibition[0]),
		Temperature:          r.Current.Temperature,
		CloudCoverLow:        first(h.CloudCoverLow),
		CloudCoverMid:        first(h.CloudCoverMid),
		CloudCoverHigh:       first(h.CloudCoverHigh),
		Timestamp:            ts,
	}, nil
}

func first(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[0]
}
