package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/persistorai/txlink/client"
	"github.com/persistorai/txlink/internal/ledger"
	"github.com/persistorai/txlink/internal/models"
)

// zeroAddress has a long transaction history, so a one-row query against it
// always returns data when the Etherscan API is healthy.
const zeroAddress = models.Address("0x0000000000000000000000000000000000000000")

const doctorTimeout = 10 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against the config file, the Etherscan API and the txlink server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "\ntxlink doctor")
	fmt.Fprintln(out, "=============")

	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	if cfgErr != nil {
		// The file is optional: flags and env work without it.
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: fmt.Sprintf("not found (%s), using flags and environment", cfgPath),
		})
	} else {
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: fmt.Sprintf("found (%s)", cfgPath),
		})
	}

	if flagServer == "" {
		results = append(results, doctorLocalChecks(ctx)...)
	} else {
		results = append(results, doctorServerChecks(ctx)...)
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Fprintf(out, "%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Fprintf(out, "%s %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Fprintf(out, "   Hint: %s\n", r.Hint)
		}
	}

	fmt.Fprintln(out)
	if !allPassed {
		fmt.Fprintln(out, "❌ Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Fprintln(out, "✅ All checks passed!")
	return nil
}

func doctorLocalChecks(ctx context.Context) []checkResult {
	var results []checkResult

	if flagEtherscan == "" {
		results = append(results, checkResult{
			Name: "Etherscan API key", Passed: false,
			Hint: "Set --etherscan-key, ETHERSCAN_API_KEY, or run txlink init",
		})
	} else {
		results = append(results, checkResult{Name: "Etherscan API key", Passed: true, Detail: "configured"})
	}

	cfg, err := loadConfig()
	if err != nil {
		return append(results, checkResult{
			Name: "Environment", Passed: false,
			Hint: err.Error(),
		})
	}

	lc := ledger.New(append(cfg.LedgerOptions(),
		ledger.WithRetry(1, cfg.LedgerRetryBase),
		ledger.WithLogger(logger),
	)...)

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	_, err = lc.FetchTransactions(ctx, zeroAddress, models.PageOptions{PageSize: 1, MaxResults: 1})
	if err != nil {
		hint := fmt.Sprintf("Error: %v", err)
		if errors.Is(err, models.ErrUnauthorized) {
			hint = "The Etherscan API key was rejected. " + hint
		}
		return append(results, checkResult{
			Name: "Etherscan reachable", Passed: false,
			Detail: cfg.EtherscanURL,
			Hint:   hint,
		})
	}
	return append(results, checkResult{Name: "Etherscan reachable", Passed: true, Detail: cfg.EtherscanURL})
}

func doctorServerChecks(ctx context.Context) []checkResult {
	var opts []client.Option
	if flagKey != "" {
		opts = append(opts, client.WithAPIKey(flagKey))
	}
	c := client.New(flagServer, opts...)

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		return []checkResult{{
			Name: "Server reachable", Passed: false,
			Detail: flagServer,
			Hint:   fmt.Sprintf("Is the server running? Try: txlink serve\n   Error: %v", err),
		}}
	}

	results := []checkResult{{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("%s (version %s, %d ws clients)", flagServer, health.Version, health.WSClients),
	}}

	if err := checkAuth(ctx, c); err != nil {
		return append(results, checkResult{
			Name: "Authentication", Passed: false,
			Hint: fmt.Sprintf("Check your API key. Error: %v", err),
		})
	}
	return append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
}

// checkAuth looks up a search that cannot exist: an authorized request gets
// 404, a rejected key gets 401.
func checkAuth(ctx context.Context, c *client.Client) error {
	_, err := c.Searches.Get(ctx, uuid.NewString())
	switch {
	case err == nil, client.IsNotFound(err):
		return nil
	case client.IsUnauthorized(err):
		return fmt.Errorf("authentication failed: %w", err)
	default:
		return err
	}
}
