package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/cli"
	"github.com/haivivi/versioner/pkg/graph"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Read the history of an Entity",
}

var getCurrentCmd = &cobra.Command{
	Use:   "current <entity>",
	Short: "Show the current State",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			n, err := e.v.GetCurrentState(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			return emitNode(n, "no current state")
		})
	},
}

var getPathCmd = &cobra.Command{
	Use:   "path <entity>",
	Short: "Show the Entity, its CURRENT edge and current State",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			p, err := e.v.GetCurrentPath(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			if p == nil {
				cli.PrintInfo("entity %s not found", args[0])
				return nil
			}
			return output(p)
		})
	},
}

var getAllCmd = &cobra.Command{
	Use:   "all <entity>",
	Short: "List every State, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			recs, err := e.v.GetAllStates(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			return output(stateView(recs))
		})
	},
}

var getByLabelCmd = &cobra.Command{
	Use:   "by-label <entity> <label>",
	Short: "List the States carrying a label, newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			nodes, err := e.v.GetByLabel(cmd.Context(), graph.NodeID(args[0]), args[1])
			if err != nil {
				return err
			}
			return output(nodeView(nodes))
		})
	},
}

var getByDateCmd = &cobra.Command{
	Use:   "by-date <entity> <time>",
	Short: "Show the State that was current at a time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := cli.ParseTime(args[1])
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.GetByDate(cmd.Context(), graph.NodeID(args[0]), t)
			if err != nil {
				return err
			}
			return emitNode(n, "no state at "+cli.FormatTime(t))
		})
	},
}

var getNthCmd = &cobra.Command{
	Use:   "nth <entity> <n>",
	Short: "Show the State n steps behind the current one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid n %q: %w", args[1], err)
		}
		return withEnv(func(e *env) error {
			s, err := e.v.GetNthState(cmd.Context(), graph.NodeID(args[0]), n)
			if err != nil {
				return err
			}
			return emitNode(s, fmt.Sprintf("no state %d steps back", n))
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list <label>",
	Short:   "List the Entities of a kind",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			nodes, err := e.v.ListEntities(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return output(nodeView(nodes))
		})
	},
}

func init() {
	getCmd.AddCommand(getCurrentCmd, getPathCmd, getAllCmd, getByLabelCmd, getByDateCmd, getNthCmd)
	rootCmd.AddCommand(getCmd, listCmd)
}
