package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/graph"
)

var diffCmd = &cobra.Command{
	Use:   "diff <from> <to>",
	Short: "Compare the properties of two States",
	Long: `Print the property changes from State <from> to State <to>, one entry per
key: REMOVE, UPDATE or ADD.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			d, err := e.v.DiffStates(cmd.Context(), graph.NodeID(args[0]), graph.NodeID(args[1]))
			if err != nil {
				return err
			}
			return output(diffView(d))
		})
	},
}

var diffPreviousCmd = &cobra.Command{
	Use:   "diff-previous <state>",
	Short: "Compare a State with the one it replaced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			d, err := e.v.DiffFromPrevious(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			return output(diffView(d))
		})
	},
}

var diffCurrentCmd = &cobra.Command{
	Use:   "diff-current <state>",
	Short: "Compare a State with its Entity's current State",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			d, err := e.v.DiffFromCurrent(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			return output(diffView(d))
		})
	},
}

func init() {
	rootCmd.AddCommand(diffCmd, diffPreviousCmd, diffCurrentCmd)
}
