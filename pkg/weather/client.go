// Package weather talks to the environmental data provider. The provider
// is best-effort: calls are bounded by a timeout and callers fall back to
// default seasonal assumptions when it is unavailable.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/retry"
)

// Client fetches weather forecasts and seasonal transitions over HTTP
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	runner  *retry.Runner
	logger  *logx.Logger
}

// NewClient creates an environmental data client. An empty baseURL yields
// a client that always reports the provider unavailable, which callers
// already handle via defaults.
func NewClient(baseURL string, timeout time.Duration, logger *logx.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		runner:  retry.NewRunner(retry.Config{MaxAttempts: 2, InitialDelay: 200 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2.0}),
		logger:  logger,
	}
}

// GetWeather fetches a daily forecast for the location. Failures map to
// pkg.ErrProviderTimeout so callers can branch into default assumptions.
func (c *Client) GetWeather(ctx context.Context, location string, days int) (*pkg.Forecast, error) {
	if c.baseURL == "" {
		return nil, pkg.ErrProviderTimeout
	}

	endpoint := fmt.Sprintf("%s/v1/forecast?location=%s&days=%d", c.baseURL, url.QueryEscape(location), days)
	var forecast pkg.Forecast
	if err := c.getJSON(ctx, endpoint, &forecast); err != nil {
		c.logger.Warn("weather fetch failed", "location", location, "error", err)
		return nil, pkg.ErrProviderTimeout
	}
	if len(forecast.Days) == 0 {
		return nil, pkg.ErrProviderTimeout
	}
	return &forecast, nil
}

// GetSeasonalTransitions fetches detected seasonal transitions for the
// location
func (c *Client) GetSeasonalTransitions(ctx context.Context, location string) ([]pkg.SeasonalTransition, error) {
	if c.baseURL == "" {
		return nil, pkg.ErrProviderTimeout
	}

	endpoint := fmt.Sprintf("%s/v1/transitions?location=%s", c.baseURL, url.QueryEscape(location))
	var transitions []pkg.SeasonalTransition
	if err := c.getJSON(ctx, endpoint, &transitions); err != nil {
		c.logger.Warn("seasonal transition fetch failed", "location", location, "error", err)
		return nil, pkg.ErrProviderTimeout
	}
	return transitions, nil
}

// getJSON performs a bounded GET with retries and decodes the body
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.runner.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("provider returned %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// DefaultForecast builds the neutral forecast used when the provider is
// unavailable: mild indoor-ish conditions that bias no risk signal.
func DefaultForecast(location string, days int, start time.Time) *pkg.Forecast {
	f := &pkg.Forecast{Location: location, Default: true}
	for i := 0; i < days; i++ {
		f.Days = append(f.Days, pkg.DailyConditions{
			Date:          start.AddDate(0, 0, i),
			TempC:         20.0,
			HumidityPct:   50.0,
			DaylightHours: 12.0,
		})
	}
	return f
}
