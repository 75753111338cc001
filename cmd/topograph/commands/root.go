package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	contextName  string
	outputFile   string
	formatOutput string
	verbose      bool

	// Global configuration (loaded at init time)
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "topograph",
	Short: "Graph queries and template matching for root cause analysis",
	Long: `topograph - query an entity graph of resources and alarms and match
RCA templates against it.

A graph document lists vertices (id, category, type, props) and edges
(id, source, target, label). Templates describe small patterns of entities
and relationships; matching finds every embedding of a template that
contains a given seed.

Configuration is stored in ~/.topograph/config.yaml and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Alarms of a host, two hops out
  topograph query -g graph.yaml --root host-1 --depth 2 --where '{"==": {"category": "ALARM"}}'

  # Match a template around an alarm
  topograph match -g graph.yaml -t alarm_on_host --seed alarm=alarm-17

  # Run every template against a new edge
  topograph changed -g graph.yaml --edge alarm-17_on_host-1 --format table`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.topograph/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "yaml", "output format: yaml, json, table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from LoadConfig for deferred reporting.
var configLoadErr error

func initConfig() {
	globalConfig, configLoadErr = cli.LoadConfig(cfgFile)
}

// getConfig returns the global configuration.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the context selected by -c, the current context, or an
// empty one.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// outputResult writes result in the selected format.
func outputResult(result any) error {
	format, err := cli.ParseOutputFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}
