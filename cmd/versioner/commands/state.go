package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/versioner/pkg/cli"
	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
	"github.com/haivivi/versioner/pkg/versioner"
)

// Flags shared by the mutating commands.
var (
	propArgs   []string
	propFile   string
	atFlag     string
	stateLabel string
)

func addPropFlags(f *pflag.FlagSet) {
	f.StringArrayVarP(&propArgs, "prop", "p", nil, "property key=value (repeatable)")
	f.StringVarP(&propFile, "file", "f", "", "YAML or JSON file of properties (- for stdin)")
}

func addWhenFlag(f *pflag.FlagSet) {
	f.StringVar(&atFlag, "at", "", "instant of the change (RFC 3339); defaults to now")
}

func addStateLabelFlag(f *pflag.FlagSet) {
	f.StringVar(&stateLabel, "label", "", "extra label for the new State")
}

func readProps() (props.Map, error) {
	return cli.LoadProps(propFile, propArgs)
}

// opOptions converts --at and --label into engine options.
func opOptions() ([]versioner.Option, error) {
	var opts []versioner.Option
	if atFlag != "" {
		t, err := cli.ParseTime(atFlag)
		if err != nil {
			return nil, err
		}
		opts = append(opts, versioner.At(t))
	}
	if stateLabel != "" {
		opts = append(opts, versioner.WithLabel(stateLabel))
	}
	return opts, nil
}

// withEnv opens the context, runs fn and closes the store.
func withEnv(fn func(e *env) error) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

var entityPropArgs []string

var initCmd = &cobra.Command{
	Use:   "init <label>",
	Short: "Create an Entity",
	Long: `Create an Entity with the given kind label. State properties given with
-p or --file become its initial State; without any the Entity starts with
no current State.

Examples:
  versioner init Person -p name=Ada -p age=36 -e ssn=123
  versioner init Robot -f robot.yaml --at 2024-01-01T00:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stateProps, err := readProps()
		if err != nil {
			return err
		}
		entityProps, err := cli.ParseAssignments(entityPropArgs)
		if err != nil {
			return err
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.Init(cmd.Context(), args[0], entityProps, stateProps, opts...)
			if err != nil {
				return err
			}
			return output(nodeView{n})
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <entity>",
	Short: "Replace the properties of the current State",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readProps()
		if err != nil {
			return err
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.Update(cmd.Context(), graph.NodeID(args[0]), p, opts...)
			if err != nil {
				return err
			}
			return output(nodeView{n})
		})
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch <entity>",
	Short: "Merge properties into a new current State",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readProps()
		if err != nil {
			return err
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.Patch(cmd.Context(), graph.NodeID(args[0]), p, opts...)
			if err != nil {
				return err
			}
			return output(nodeView{n})
		})
	},
}

var keepRels bool

var patchFromCmd = &cobra.Command{
	Use:   "patch-from <entity> <state>",
	Short: "Start a new current State from one of the Entity's States",
	Long: `Create a new current State whose properties are the current ones merged
with those of <state>. Relationships come from <state>, or from the current
State with --keep-rels.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			n, err := e.v.PatchFrom(cmd.Context(), graph.NodeID(args[0]), graph.NodeID(args[1]), keepRels, opts...)
			if err != nil {
				return err
			}
			return output(nodeView{n})
		})
	},
}

func init() {
	addPropFlags(initCmd.Flags())
	initCmd.Flags().StringArrayVarP(&entityPropArgs, "entity-prop", "e", nil, "Entity property key=value (repeatable)")
	for _, c := range []*cobra.Command{updateCmd, patchCmd} {
		addPropFlags(c.Flags())
	}
	for _, c := range []*cobra.Command{initCmd, updateCmd, patchCmd, patchFromCmd} {
		addWhenFlag(c.Flags())
		addStateLabelFlag(c.Flags())
	}
	patchFromCmd.Flags().BoolVar(&keepRels, "keep-rels", false, "keep the current State's relationships")

	rootCmd.AddCommand(initCmd, updateCmd, patchCmd, patchFromCmd)
}
