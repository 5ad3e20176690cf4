package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/sentiment"
)

// HTTPSentimentConfig holds configuration for the remote sentiment feed
type HTTPSentimentConfig struct {
	BaseURL            string `yaml:"base_url"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffBaseMs      int    `yaml:"backoff_base_ms"`
}

// HTTPSentiment fetches scores from GET {base}?date=YYYY-MM-DD&symbols=A,B
// which answers {"scores": {"A": 0.42}}.
type HTTPSentiment struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	config      HTTPSentimentConfig
}

func NewHTTPSentiment(config HTTPSentimentConfig) (*HTTPSentiment, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("sentiment base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid sentiment base URL: %w", err)
	}

	// Set defaults
	if config.RateLimitPerMinute <= 0 {
		config.RateLimitPerMinute = 60
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 10
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BackoffBaseMs <= 0 {
		config.BackoffBaseMs = 250
	}

	return &HTTPSentiment{
		httpClient:  &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(config.RateLimitPerMinute)/60), 1),
		config:      config,
	}, nil
}

var _ sentiment.Provider = (*HTTPSentiment)(nil)

func (h *HTTPSentiment) Scores(ctx context.Context, date time.Time, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	params := url.Values{
		"date":    {date.Format(dateLayout)},
		"symbols": {strings.Join(symbols, ",")},
	}
	requestURL := h.config.BaseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(h.config.BackoffBaseMs*(1<<attempt)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("sentiment rate limit wait cancelled: %w", err)
		}

		scores, retry, err := h.fetch(ctx, requestURL)
		if err == nil {
			observ.IncCounter("sentiment_requests_total", map[string]string{"result": "ok"})
			return filterScores(scores, symbols), nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	observ.IncCounter("sentiment_requests_total", map[string]string{"result": "error"})
	return nil, lastErr
}

// fetch performs one request. retry reports whether the failure is transient.
func (h *HTTPSentiment) fetch(ctx context.Context, requestURL string) (map[string]float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sentiment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("sentiment feed HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("sentiment feed HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to parse sentiment response: %w", err)
	}
	return payload.Scores, false, nil
}

func filterScores(scores map[string]float64, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if v, ok := scores[sym]; ok {
			out[sym] = sentiment.Clamp(v)
		}
	}
	return out
}
