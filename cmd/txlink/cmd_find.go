package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/models"
)

// searchFlags are the search tunables shared by find and submit.
type searchFlags struct {
	depth       int
	direction   string
	deadline    time.Duration
	workers     int
	probeTarget bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.depth, "depth", models.DefaultMaxDepth, "Maximum number of hops to explore")
	cmd.Flags().StringVar(&f.direction, "direction", "both", "Transfers to follow: both|out|in")
	cmd.Flags().DurationVar(&f.deadline, "deadline", 0, "Stop the search after this long, e.g. 30s (0 = no deadline)")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "Addresses expanded concurrently per level")
	cmd.Flags().BoolVar(&f.probeTarget, "probe-target", false, "Fetch the target first to fail fast on unusable targets")
}

func (f *searchFlags) request(source, target string) (models.SearchRequest, error) {
	req := models.SearchRequest{
		Source:      models.Address(source),
		Target:      models.Address(target),
		MaxDepth:    f.depth,
		Direction:   models.Direction(f.direction),
		Deadline:    f.deadline,
		Workers:     f.workers,
		ProbeTarget: f.probeTarget,
	}
	if f.deadline < 0 {
		return req, fmt.Errorf("%w: deadline must not be negative", models.ErrInvalidInput)
	}

	// Validate a copy so the server sees the caller's input unchanged.
	check := req
	if err := check.Normalize(); err != nil {
		return req, err
	}
	return req, nil
}

func newFindCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "find <source> <target>",
		Short: "Find a chain of transfers connecting two addresses",
		Long: "Breadth-first search of the transaction graph from source, up to --depth hops.\n" +
			"Exit status is 0 whether or not a connection is found, 1 when the search\n" +
			"could not complete and 2 for invalid input.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0], args[1])
			if err != nil {
				return usageError(err)
			}

			finder, err := newFinder()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runFind(ctx, finder, req, cmd.ErrOrStderr())
		},
	}
	flags.register(cmd)
	return cmd
}

func runFind(ctx context.Context, finder domain.ConnectionFinder, req models.SearchRequest, errOut io.Writer) error {
	res, err := finder.FindConnection(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			fmt.Fprintf(errOut, "invalid input: %v\n", err)
			return &exitError{code: exitUsage, err: err, reported: true}
		}
		fmt.Fprintf(errOut, "search could not complete: %v\n", err)
		return &exitError{code: exitFailure, err: err, reported: true}
	}

	printResult(res, errOut)
	return nil
}

// printResult writes res to stdout in the selected format. The not-found
// message goes to errOut so stdout stays machine-readable.
func printResult(res *models.SearchResult, errOut io.Writer) {
	switch flagFmt {
	case "quiet":
		for _, e := range res.Path {
			formatQuiet(e.TxHash)
		}
	case "table":
		if res.Found() {
			printPathTable(res)
		}
	default:
		formatJSON(res)
	}

	if !res.Found() {
		fmt.Fprintln(errOut, notFoundMessage(res))
	}
}

func notFoundMessage(res *models.SearchResult) string {
	msg := fmt.Sprintf("no connection found within depth %d", res.MaxDepth)
	switch res.Reason {
	case models.ReasonDeadlineExceeded:
		msg += fmt.Sprintf(" (deadline exceeded while exploring depth %d)", res.Stats.Depth)
	case models.ReasonFrontierExhausted:
		msg += " (no further addresses to explore)"
	}
	return msg
}

func printPathTable(res *models.SearchResult) {
	headers := []string{"HOP", "FROM", "TO", "TX_HASH", "BLOCK"}
	rows := make([][]string, 0, len(res.Path))
	for i, e := range res.Path {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(e.From),
			string(e.To),
			e.TxHash,
			strconv.FormatUint(e.BlockNumber, 10),
		})
	}
	formatTable(headers, rows)
}
