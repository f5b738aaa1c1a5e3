package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/graph"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <entity>",
	Short: "Undo the last change of an Entity",
	Long: `Make a copy of the State before the current one the new current State.
Rolling back a State that was itself produced by a rollback continues from
the State it restored, so repeated rollbacks walk further into the past.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.Rollback(cmd.Context(), graph.NodeID(args[0]), opts...)
			if err != nil {
				return err
			}
			return emitNode(n, "nothing to roll back")
		})
	},
}

var rollbackToCmd = &cobra.Command{
	Use:   "rollback-to <entity> <state>",
	Short: "Restore a specific State of an Entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.RollbackTo(cmd.Context(), graph.NodeID(args[0]), graph.NodeID(args[1]), opts...)
			if err != nil {
				return err
			}
			return emitNode(n, "state cannot be restored")
		})
	},
}

var rollbackNthCmd = &cobra.Command{
	Use:   "rollback-nth <entity> <n>",
	Short: "Restore the State n steps back in the history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid n %q: %w", args[1], err)
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			s, err := e.v.RollbackNth(cmd.Context(), graph.NodeID(args[0]), n, opts...)
			if err != nil {
				return err
			}
			return emitNode(s, fmt.Sprintf("no state %d steps back", n))
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{rollbackCmd, rollbackToCmd, rollbackNthCmd} {
		addWhenFlag(c.Flags())
		rootCmd.AddCommand(c)
	}
}
