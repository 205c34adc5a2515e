package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/client"
	"github.com/persistorai/txlink/internal/config"
	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/ledger"
	"github.com/persistorai/txlink/internal/models"
	"github.com/persistorai/txlink/internal/service"
)

// newLedgerClient builds the Etherscan client described by cfg with its own
// throttle and cache.
func newLedgerClient(cfg *config.Config, log *logrus.Logger) *ledger.Client {
	opts := append(cfg.LedgerOptions(),
		ledger.WithThrottle(ledger.NewThrottle(cfg.LedgerRate, cfg.LedgerPenaltyInterval)),
		ledger.WithCache(ledger.NewCache(cfg.LedgerCacheSize, cfg.LedgerCacheTTL)),
		ledger.WithLogger(log),
	)
	return ledger.New(opts...)
}

// loadConfig reads the environment configuration and applies the CLI's
// Etherscan key.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagEtherscan != "" {
		cfg.EtherscanAPIKey = config.Secret(flagEtherscan)
	}
	return cfg, nil
}

// newFinder returns a server-backed finder when --server is set and a local
// one otherwise.
func newFinder() (domain.ConnectionFinder, error) {
	if flagServer != "" {
		var opts []client.Option
		if flagKey != "" {
			opts = append(opts, client.WithAPIKey(flagKey))
		}
		return &remoteFinder{c: client.New(flagServer, opts...)}, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.EtherscanAPIKey.Value() == "" {
		logger.Warn("no Etherscan API key configured; the API will heavily rate limit keyless requests")
	}

	lc := newLedgerClient(cfg, logger)
	return service.NewConnectionService(lc, service.NewLogSink(logger), logger), nil
}

// remoteFinder runs searches on a txlink server.
type remoteFinder struct {
	c *client.Client
}

func (f *remoteFinder) FindConnection(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	res, err := f.c.Connections.Find(ctx, string(req.Source), string(req.Target), &client.SearchOptions{
		MaxDepth:    req.MaxDepth,
		Direction:   string(req.Direction),
		Deadline:    req.Deadline,
		Workers:     req.Workers,
		ProbeTarget: req.ProbeTarget,
	})
	if err != nil {
		var apiErr *client.APIError
		switch {
		case client.IsInvalidInput(err) && errors.As(err, &apiErr):
			return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, apiErr.Message)
		case client.IsRemoteUnavailable(err):
			return nil, fmt.Errorf("%w: %w", models.ErrRemoteUnavailable, err)
		}
		return nil, err
	}

	return fromClientResult(res), nil
}

func fromClientResult(r *client.SearchResult) *models.SearchResult {
	out := &models.SearchResult{
		ID:       r.ID,
		Status:   models.SearchStatus(r.Status),
		Reason:   models.NotFoundReason(r.Reason),
		Source:   models.Address(r.Source),
		Target:   models.Address(r.Target),
		MaxDepth: r.MaxDepth,
		Stats: models.SearchStats{
			Calls:      r.Stats.Calls,
			Expanded:   r.Stats.Expanded,
			Visited:    r.Stats.Visited,
			Failed:     r.Stats.Failed,
			TxExamined: r.Stats.TxExamined,
			Depth:      r.Stats.Depth,
			Duration:   r.Stats.Duration,
		},
	}

	for _, e := range r.Path {
		out.Path = append(out.Path, models.Edge{
			From:        models.Address(e.From),
			To:          models.Address(e.To),
			TxHash:      e.TxHash,
			BlockNumber: e.BlockNumber,
			Timestamp:   e.Timestamp,
			Value:       e.Value,
		})
	}
	for _, a := range r.Addresses {
		out.Addresses = append(out.Addresses, models.Address(a))
	}

	return out
}
