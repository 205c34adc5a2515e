// Package ledger fetches account transaction listings from an Etherscan-style
// ledger API, with pagination, retry, shared throttling and a response cache.
package ledger

import (
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

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/models"
)

// Client defaults. Attempts and backoff follow Etherscan's guidance for the
// free tier; the result window is the API's page*offset ceiling.
const (
	DefaultBaseURL     = "https://api.etherscan.io/api"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryBase   = time.Second
	DefaultPageSize    = 1000
	DefaultMaxResults  = 10000

	maxResultWindow = 10000
	maxBodyBytes    = 32 << 20 // 32 MB
)

// Client lists transactions touching an address.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	throttle    *Throttle
	cache       *Cache
	log         *logrus.Logger
	timeout     time.Duration
	maxAttempts int
	retryBase   time.Duration
	defaults    models.PageOptions
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the credential sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithThrottle shares a Throttle between clients.
func WithThrottle(t *Throttle) Option {
	return func(c *Client) { c.throttle = t }
}

// WithCache enables response caching. A nil cache disables it.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithRetry sets the total attempts per page and the first backoff delay.
func WithRetry(maxAttempts int, base time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithPageDefaults sets the page options used for zero fields of a call's options.
func WithPageDefaults(opts models.PageOptions) Option {
	return func(c *Client) { c.defaults = opts }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. Without WithThrottle the client gets a private
// throttle at DefaultRate.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		retryBase:   DefaultRetryBase,
	}
	for _, o := range opts {
		o(c)
	}

	if c.throttle == nil {
		c.throttle = NewThrottle(DefaultRate, DefaultPenaltyInterval)
	}

	if c.log == nil {
		c.log = logrus.StandardLogger()
	}

	return c
}

// Throttle returns the throttle pacing this client.
func (c *Client) Throttle() *Throttle { return c.throttle }

// CacheLen returns the number of cached listings.
func (c *Client) CacheLen() int { return c.cache.Len() }

// FetchTransactions returns every transaction touching addr in the API's
// order, following pages until the listing is exhausted or opts.MaxResults
// edges have been collected. Duplicates are not filtered.
func (c *Client) FetchTransactions(ctx context.Context, addr models.Address, opts models.PageOptions) ([]models.Edge, error) {
	addr, err := models.ParseAddress(string(addr))
	if err != nil {
		return nil, err
	}

	opts = c.pageOptions(opts)

	if edges, ok := c.cache.Get(addr, opts); ok {
		cacheHits.Inc()

		return edges, nil
	}

	edges := make([]models.Edge, 0, opts.PageSize)
	startBlock, page := opts.StartBlock, 1

	for {
		rows, err := c.fetchPageWithRetry(ctx, addr, opts, startBlock, page)
		if err != nil {
			return nil, err
		}

		edges = append(edges, rows...)

		if len(edges) >= opts.MaxResults {
			edges = edges[:opts.MaxResults]

			break
		}

		if len(rows) < opts.PageSize {
			break
		}

		if (page+1)*opts.PageSize <= maxResultWindow {
			page++

			continue
		}

		// Page window exhausted: continue from the last block seen. Rows of
		// that block are listed again; duplicates are the caller's concern.
		last := rows[len(rows)-1].BlockNumber
		if last <= startBlock {
			c.log.WithFields(logrus.Fields{
				"address": addr,
				"block":   last,
			}).Warn("ledger listing truncated: single block exceeds result window")

			break
		}

		startBlock, page = last, 1
	}

	c.cache.Add(addr, opts, edges)

	return edges, nil
}

// pageOptions fills zero fields from the client defaults and clamps the page
// size to the API window.
func (c *Client) pageOptions(opts models.PageOptions) models.PageOptions {
	if opts.PageSize <= 0 {
		opts.PageSize = c.defaults.PageSize
	}

	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	if opts.PageSize > maxResultWindow {
		opts.PageSize = maxResultWindow
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = c.defaults.MaxResults
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	if opts.StartBlock == 0 {
		opts.StartBlock = c.defaults.StartBlock
	}

	if opts.EndBlock == 0 {
		opts.EndBlock = c.defaults.EndBlock
	}

	return opts
}

// fetchPageWithRetry retries transient failures with exponential backoff.
// Exhausted retries are reported as models.ErrRemoteUnavailable.
func (c *Client) fetchPageWithRetry(
	ctx context.Context,
	addr models.Address,
	opts models.PageOptions,
	startBlock uint64,
	page int,
) ([]models.Edge, error) {
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewExponential(c.retryBase)) //nolint:gosec // maxAttempts >= 1.

	var (
		rows    []models.Edge
		attempt int
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			retriesTotal.Inc()
		}

		var err error

		rows, err = c.fetchPage(ctx, addr, opts, startBlock, page)
		if err == nil {
			return nil
		}

		if !models.IsTransient(err) {
			return err
		}

		c.log.WithError(err).WithFields(logrus.Fields{
			"address":      addr,
			"page":         page,
			"attempt":      attempt,
			"max_attempts": c.maxAttempts,
		}).Warn("ledger request failed")

		return retry.RetryableError(err)
	})
	if err != nil {
		if models.IsTransient(err) {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", models.ErrRemoteUnavailable, addr, attempt, err)
		}

		return nil, err
	}

	return rows, nil
}

// fetchPage issues one throttled request for one page of the listing.
func (c *Client) fetchPage(
	ctx context.Context,
	addr models.Address,
	opts models.PageOptions,
	startBlock uint64,
	page int,
) ([]models.Edge, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", string(addr))
	params.Set("startblock", strconv.FormatUint(startBlock, 10))
	if opts.EndBlock > 0 {
		params.Set("endblock", strconv.FormatUint(opts.EndBlock, 10))
	} else {
		params.Set("endblock", "latest")
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(opts.PageSize))
	params.Set("sort", "asc")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		requestsTotal.WithLabelValues("network_error").Inc()

		return nil, fmt.Errorf("%w: listing %s: %w", models.ErrRemoteTransient, addr, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		requestsTotal.WithLabelValues("network_error").Inc()

		return nil, fmt.Errorf("%w: reading listing for %s: %w", models.ErrRemoteTransient, addr, redactURLError(err))
	}

	rows, err := c.decode(resp, body)
	if err != nil {
		c.observeFailure(err)

		return nil, err
	}

	requestsTotal.WithLabelValues("ok").Inc()

	return rows, nil
}

// decode turns an HTTP response into edges or a classified error.
func (c *Client) decode(resp *http.Response, body []byte) ([]models.Edge, error) {
	if apiErr := classifyHTTP(resp, body); apiErr != nil {
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", models.ErrMalformedResponse, err)
	}

	switch env.Status {
	case "1":
		var rows []txRow
		if err := json.Unmarshal(env.Result, &rows); err != nil {
			return nil, fmt.Errorf("%w: decode transactions: %w", models.ErrMalformedResponse, err)
		}

		edges := make([]models.Edge, 0, len(rows))
		for i := range rows {
			edges = append(edges, rows[i].edge())
		}

		return edges, nil
	case "0":
		apiErr, empty := classifyEnvelope(resp.StatusCode, &env)
		if empty {
			return []models.Edge{}, nil
		}

		return nil, apiErr
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", models.ErrMalformedResponse, env.Status)
	}
}

// observeFailure records metrics for a classified failure and penalizes the
// shared throttle on rate-limit rejections.
func (c *Client) observeFailure(err error) {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		requestsTotal.WithLabelValues("rate_limited").Inc()
		rateLimited.Inc()

		var pause time.Duration

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			pause = apiErr.RetryAfter
		}

		c.throttle.Penalize(pause)
		c.log.WithField("penalties", c.throttle.Penalties()).Warn("ledger rate limit hit, throttling all callers")
	case models.IsTransient(err):
		requestsTotal.WithLabelValues("transient_error").Inc()
	default:
		requestsTotal.WithLabelValues("fatal_error").Inc()
	}
}

// redactURLError strips the request URL, which carries the API key, from
// transport errors.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}

	return err
}

// txRow is one row of an Etherscan txlist result.
type txRow struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
}

func (r *txRow) edge() models.Edge {
	to := r.To
	if to == "" {
		// Contract creation: the transfer lands on the new contract.
		to = r.ContractAddress
	}

	e := models.Edge{
		From:   models.NormalizeAddress(r.From),
		To:     models.NormalizeAddress(to),
		TxHash: r.Hash,
		Value:  r.Value,
	}

	if n, err := strconv.ParseUint(r.BlockNumber, 10, 64); err == nil {
		e.BlockNumber = n
	}

	if ts, err := strconv.ParseInt(r.TimeStamp, 10, 64); err == nil && ts > 0 {
		e.Timestamp = time.Unix(ts, 0).UTC()
	}

	return e
}
