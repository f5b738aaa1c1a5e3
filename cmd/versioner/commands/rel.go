package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
	"github.com/haivivi/versioner/pkg/versioner"
)

var relCmd = &cobra.Command{
	Use:   "rel",
	Short: "Manage versioned relationships",
	Long: `Manage relationships between Entities.

Creating or deleting a relationship patches the source Entity: it gets a new
current State carrying the changed set of relationships, while its earlier
States keep the ones they had. The destination is not changed.`,
}

var relType string

// nodeIDs converts command arguments to node ids.
func nodeIDs(args []string) []graph.NodeID {
	ids := make([]graph.NodeID, len(args))
	for i, a := range args {
		ids[i] = graph.NodeID(a)
	}
	return ids
}

// bulkProps gives each of n relationships the -p properties, typed by
// --type when set.
func bulkProps(n int) ([]props.Map, error) {
	p, err := readProps()
	if err != nil {
		return nil, err
	}
	if relType != "" {
		p[versioner.PropVersionerLabel] = props.String(relType)
	}
	out := make([]props.Map, n)
	for i := range out {
		out[i] = p.Clone()
	}
	return out, nil
}

var relCreateCmd = &cobra.Command{
	Use:   "create <source> <destination> <type>",
	Short: "Relate two Entities",
	Args:  cobra.ExactArgs(3),
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
			edge, err := e.v.CreateRelationship(cmd.Context(), graph.NodeID(args[0]), graph.NodeID(args[1]), args[2], p, opts...)
			if err != nil {
				return err
			}
			return output(edgeView{edge})
		})
	},
}

var relCreateToCmd = &cobra.Command{
	Use:   "create-to <source> <destination>...",
	Short: "Relate one source to many destinations in one change",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := bulkProps(len(args) - 1)
		if err != nil {
			return err
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			edges, err := e.v.CreateRelationshipsTo(cmd.Context(), graph.NodeID(args[0]), nodeIDs(args[1:]), list, opts...)
			if err != nil {
				return err
			}
			return output(edgeView(edges))
		})
	},
}

var relCreateFromCmd = &cobra.Command{
	Use:   "create-from <destination> <source>...",
	Short: "Relate many sources to one destination",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := bulkProps(len(args) - 1)
		if err != nil {
			return err
		}
		opts, err := opOptions()
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			edges, err := e.v.CreateRelationshipsFrom(cmd.Context(), nodeIDs(args[1:]), graph.NodeID(args[0]), list, opts...)
			if err != nil {
				return err
			}
			return output(edgeView(edges))
		})
	},
}

var relDeleteCmd = &cobra.Command{
	Use:   "delete <source> <type> <destination>...",
	Short: "Remove relationships of a given type",
	Long: `Remove the <type> relationships from <source> to each destination. The
source gets one new State however many destinations are given. The result
tells which destinations actually had the relationship.`,
	Aliases: []string{"rm"},
	Args:    cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := opOptions()
		if err != nil {
			return err
		}
		dests := nodeIDs(args[2:])
		return withEnv(func(e *env) error {
			ok, err := e.v.DeleteRelationships(cmd.Context(), graph.NodeID(args[0]), dests, args[1], opts...)
			if err != nil {
				return err
			}
			out := make(deleteView, len(dests))
			for i, d := range dests {
				out[i] = deleteResult{Destination: d, Deleted: ok[i]}
			}
			return output(out)
		})
	},
}

var relListCmd = &cobra.Command{
	Use:     "list <entity>",
	Short:   "List the relationships of an Entity's current State",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			rels, err := e.v.GetRelationships(cmd.Context(), graph.NodeID(args[0]))
			if err != nil {
				return err
			}
			return output(relView(rels))
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{relCreateCmd, relCreateToCmd, relCreateFromCmd} {
		addPropFlags(c.Flags())
	}
	for _, c := range []*cobra.Command{relCreateToCmd, relCreateFromCmd} {
		c.Flags().StringVarP(&relType, "type", "t", "", "relationship type (default from the engine)")
	}
	for _, c := range []*cobra.Command{relCreateCmd, relCreateToCmd, relCreateFromCmd, relDeleteCmd} {
		addWhenFlag(c.Flags())
	}

	relCmd.AddCommand(relCreateCmd, relCreateToCmd, relCreateFromCmd, relDeleteCmd, relListCmd)
	rootCmd.AddCommand(relCmd)
}
