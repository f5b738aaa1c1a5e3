package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/archive"
	"github.com/haivivi/versioner/pkg/cli"
	"github.com/haivivi/versioner/pkg/graph"
)

var (
	exportFormat string
	exportPath   string
	exportForce  bool
)

var exportCmd = &cobra.Command{
	Use:   "export <entity>",
	Short: "Archive the timeline of an Entity",
	Long: `Write every State of an Entity, with its interval and relationships, to
the context's archive storage (a directory or an s3:// URL set with
'ctx set storage').

The archive goes to <kind>/<entity>.<ext> unless --path is given. An
existing archive is kept unless --force is set.

Examples:
  versioner export 0192f0c4-... --format msgpack
  versioner export 0192f0c4-... --path people/ada.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := archive.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withEnv(func(e *env) error {
			fs, err := e.archives(ctx)
			if err != nil {
				return err
			}

			p := exportPath
			if p == "" {
				cur, err := e.v.GetCurrentPath(ctx, graph.NodeID(args[0]))
				if err != nil {
					return err
				}
				if cur == nil {
					return fmt.Errorf("entity %s not found", args[0])
				}
				p = archive.DefaultPath(cur.Entity, f)
			}
			var opts []archive.Option
			if exportForce {
				opts = append(opts, archive.Overwrite())
			}
			doc, err := archive.Export(ctx, e.v, graph.NodeID(args[0]), fs, p, f, opts...)
			if err != nil {
				return err
			}
			cli.PrintSuccess("exported %d states of %s to %s", len(doc.States), doc.Entity.ID, p)
			return nil
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Read exported timelines",
}

var archiveListCmd = &cobra.Command{
	Use:     "list [prefix]",
	Short:   "List archives in the context's storage",
	Aliases: []string{"ls"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prefix string
		if len(args) > 0 {
			prefix = args[0]
		}
		return withEnv(func(e *env) error {
			fs, err := e.archives(cmd.Context())
			if err != nil {
				return err
			}
			paths, err := archive.List(cmd.Context(), fs, prefix)
			if err != nil {
				return err
			}
			return output(pathList(paths))
		})
	},
}

var archiveAt string

var archiveShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print an archive, or the State it records at --at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			fs, err := e.archives(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := archive.Load(cmd.Context(), fs, args[0])
			if err != nil {
				return err
			}
			if archiveAt == "" {
				return output(doc)
			}
			t, err := cli.ParseTime(archiveAt)
			if err != nil {
				return err
			}
			s := doc.At(t)
			if s == nil {
				cli.PrintInfo("no state at %s", cli.FormatTime(t))
				return nil
			}
			return output(s)
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "archive format: yaml, msgpack")
	exportCmd.Flags().StringVar(&exportPath, "path", "", "archive path (default <kind>/<entity>.<ext>)")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "overwrite an existing archive")
	archiveShowCmd.Flags().StringVar(&archiveAt, "at", "", "print only the State current at this time")

	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
	rootCmd.AddCommand(exportCmd, archiveCmd)
}
