package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
	defaultMaxWait    = 5 * time.Second
)

// Options configures the HTTP rate client.
type Options struct {
	// BaseURL is the rates API endpoint, e.g. "https://rates.example.com".
	BaseURL string

	// Timeout bounds each HTTP attempt. Defaults to 10s.
	Timeout time.Duration

	// MaxRetries is how many times a failed request is retried. Defaults
	// to 3.
	MaxRetries int

	// Logger receives retry/debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client fetches exchange rates over HTTP with retries.
type Client struct {
	baseURL string
	client  *retryablehttp.Client
	log     *slog.Logger
}

// rateResponse is the JSON body of the rates endpoint.
type rateResponse struct {
	Base  string  `json:"base"`
	Quote string  `json:"quote"`
	Rate  float64 `json:"rate"`
}

// NewClient creates a rate client for the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Timeout: opts.Timeout}
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = defaultRetryWait
	retryClient.RetryWaitMax = defaultMaxWait
	retryClient.Logger = &retryLogger{log: opts.Logger}

	return &Client{
		baseURL: opts.BaseURL,
		client:  retryClient,
		log:     opts.Logger,
	}
}

// Convert converts amount from one currency to another at the current rate.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// rate fetches the from→to exchange rate.
func (c *Client) rate(ctx context.Context, from, to string) (float64, error) {
	u := fmt.Sprintf("%s/rates?base=%s&quote=%s", c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create rate request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(ErrUnavailable, "rate request %s/%s: %v", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, errors.Wrapf(ErrUnavailable, "rate request %s/%s: status %d", from, to, resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, errors.Wrapf(ErrUnavailable, "rate response %s/%s: %v", from, to, err)
	}
	if body.Rate <= 0 {
		return 0, errors.Wrapf(ErrUnavailable, "rate response %s/%s: non-positive rate %f", from, to, body.Rate)
	}

	c.log.Debug("fetched exchange rate", "from", from, "to", to, "rate", body.Rate)
	return body.Rate, nil
}

// retryLogger adapts slog to retryablehttp's leveled logger.
type retryLogger struct {
	log *slog.Logger
}

func (l *retryLogger) Error(msg string, kv ...interface{}) { l.log.Error(msg, kv...) }
func (l *retryLogger) Info(msg string, kv ...interface{})  { l.log.Info(msg, kv...) }
func (l *retryLogger) Debug(msg string, kv ...interface{}) { l.log.Debug(msg, kv...) }
func (l *retryLogger) Warn(msg string, kv ...interface{})  { l.log.Warn(msg, kv...) }
