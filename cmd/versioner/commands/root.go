package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	contextName  string
	formatOutput string
	queryOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "versioner",
	Short: "Temporal versioning for property graphs",
	Long: `versioner - keep the full history of graph entities.

Every change to an Entity creates an immutable State. The Entity points at
its current State, older States stay reachable through PREVIOUS edges, and
relationships between Entities are versioned with the States that carry them.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/versioner/
  Linux:   ~/.config/versioner/
  Windows: %AppData%/versioner/

Examples:
  # Create a context backed by a Badger database
  versioner ctx add dev --kv badger:///var/lib/versioner
  versioner ctx use dev

  # Create an Entity and change it
  versioner init Person -p name=Ada -p age=36
  versioner update <entity> -p name=Ada -p age=37
  versioner get all <entity> -o table

  # Undo the last change
  versioner rollback <entity>`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		_, err := cli.ParseOutputFormat(formatOutput)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVarP(&contextName, "context", "c", "", "context to use instead of the current one")
	pf.StringVarP(&formatOutput, "output", "o", "yaml", "output format: yaml, json, table")
	pf.StringVarP(&queryOutput, "query", "q", "", "jq expression applied to the output")
}

// output renders a command result with the global output flags.
func output(result any) error {
	format, err := cli.ParseOutputFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{Format: format, Query: queryOutput})
}
