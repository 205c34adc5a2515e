package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/txlink/client"
)

func newInitCmd() *cobra.Command {
	var settings configProfile

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up txlink CLI configuration",
		Long:  "Interactive setup wizard that creates ~/.txlink/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := settings != (configProfile{})
			if !nonInteractive {
				settings = promptSettings(os.Stdin, cmd.OutOrStdout())
			}
			return runInit(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&settings.Server, "server", "", "txlink server URL; empty searches locally")
	cmd.Flags().StringVar(&settings.APIKey, "api-key", "", "txlink server API key")
	cmd.Flags().StringVar(&settings.EtherscanAPIKey, "etherscan-key", "", "Etherscan API key for local searches")
	return cmd
}

func promptSettings(in io.Reader, out io.Writer) configProfile {
	fmt.Fprintln(out, "\n  txlink setup")
	fmt.Fprintln(out, "  ────────────")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	var p configProfile
	p.EtherscanAPIKey = ask("  Etherscan API key (local searches): ")
	p.Server = ask("  txlink server URL (blank to search locally): ")
	if p.Server != "" {
		p.APIKey = ask("  txlink server API key (blank if none): ")
	}
	return p
}

func runInit(ctx context.Context, p configProfile, out io.Writer) error {
	if p.Server == "" && p.EtherscanAPIKey == "" {
		return usageError(fmt.Errorf("either a server URL or an Etherscan API key is required"))
	}

	if p.Server != "" {
		fmt.Fprint(out, "  Testing server connection... ")
		ver, err := testConnection(ctx, p.Server, p.APIKey)
		if err != nil {
			fmt.Fprintln(out, "✗")
			return fmt.Errorf("connection failed: %w", err)
		}
		fmt.Fprintf(out, "✓ Connected (%s)\n", ver)
	}

	cfgPath, err := writeConfig(p)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(out, "Config saved to %s\n", cfgPath)
	fmt.Fprintln(out, "Next: txlink doctor")
	return nil
}

// testConnection checks the server is up and, when a key is given, that the
// key is accepted.
func testConnection(ctx context.Context, server, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var opts []client.Option
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	c := client.New(server, opts...)

	health, err := c.Health(ctx)
	if err != nil {
		return "", err
	}
	if err := checkAuth(ctx, c); err != nil {
		return "", err
	}

	if health.Version == "" {
		return "unknown version", nil
	}
	return health.Version, nil
}

func writeConfig(p configProfile) (string, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	cfg := configFile{
		Profiles:      map[string]configProfile{"default": p},
		ActiveProfile: "default",
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
