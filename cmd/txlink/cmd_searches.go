package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/txlink/client"
)

var errNoServer = errors.New("background searches need a txlink server: set --server or TXLINK_SERVER")

func newAPIClient() (*client.Client, error) {
	if flagServer == "" {
		return nil, usageError(errNoServer)
	}
	var opts []client.Option
	if flagKey != "" {
		opts = append(opts, client.WithAPIKey(flagKey))
	}
	return client.New(flagServer, opts...), nil
}

func newSubmitCmd() *cobra.Command {
	var (
		flags    searchFlags
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit <source> <target>",
		Short: "Queue a connection search on the server",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args[0], args[1])
			if err != nil {
				return usageError(err)
			}
			c, err := newAPIClient()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resp, err := c.Searches.Submit(ctx, string(req.Source), string(req.Target), &client.SearchOptions{
				MaxDepth:    req.MaxDepth,
				Direction:   string(req.Direction),
				Deadline:    req.Deadline,
				Workers:     req.Workers,
				ProbeTarget: req.ProbeTarget,
			})
			if err != nil {
				return apiExitError("submit search", err)
			}

			if !wait {
				output(resp, resp.ID)
				return nil
			}

			logger.WithField("search_id", resp.ID).Debug("waiting for search")
			job, err := c.Searches.Wait(ctx, resp.ID, interval)
			if err != nil {
				return apiExitError("wait for search", err)
			}
			return printJob(job, cmd.ErrOrStderr())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the search to finish and print its result")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Poll interval used with --wait")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the state of a background search",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient()
			if err != nil {
				return err
			}
			job, err := c.Searches.Get(cmd.Context(), args[0])
			if err != nil {
				return apiExitError("get search", err)
			}
			return printJob(job, cmd.ErrOrStderr())
		},
	}
}

// printJob prints a job. A finished job prints its result the same way find
// does; a failed one exits non-zero.
func printJob(job *client.SearchJob, errOut io.Writer) error {
	switch {
	case job.State == client.JobFailed:
		fmt.Fprintf(errOut, "search could not complete: %s\n", job.Error)
		return &exitError{code: exitFailure, err: errors.New(job.Error), reported: true}
	case job.State == client.JobDone && job.Result != nil:
		printResult(fromClientResult(job.Result), errOut)
		return nil
	default:
		output(job, job.State)
		return nil
	}
}

func apiExitError(action string, err error) error {
	if client.IsInvalidInput(err) {
		return usageError(fmt.Errorf("%s: %w", action, err))
	}
	return fmt.Errorf("%s: %w", action, err)
}
