// Command reservoir hosts a pooled actor spawner and serves its pool
// metrics over HTTP.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/reservoir/pkg/config"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "reservoir",
		Short: "Reservoir - fixed-capacity object pools",
		Long: `Reservoir hosts a spawner that draws actors from a fixed-capacity pool,
places them at weighted spawn points and returns them once their lifetime ends.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Reservoir v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newConfigCmd(), newRunCmd(), newStatsCmd())
	return root
}

func newConfigCmd() *cobra.Command {
	var output string
	var check string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration or validate a file",
		Long: `Print the default configuration as YAML, write it to --output, or
validate an existing file with --check.

Example:
  reservoir config --output reservoir.yaml
  reservoir config --check reservoir.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if check != "" {
				if _, err := config.LoadFile(check); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", check)
				return nil
			}

			cfg := config.Default()
			if output != "" {
				return config.Save(output, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the default configuration to this file")
	cmd.Flags().StringVar(&check, "check", "", "Validate this configuration file")
	return cmd
}
