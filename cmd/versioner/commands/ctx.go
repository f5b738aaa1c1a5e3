package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/versioner/pkg/cli"
)

var ctxAddConfig cli.CtxConfig

var ctxCmd = &cobra.Command{
	Use:   "ctx",
	Short: "Manage contexts",
	Long: `A context names the graph store, the archive destination and the
schema directory that commands use.

Examples:
  versioner ctx add dev --kv badger:///var/lib/versioner --storage ./archives
  versioner ctx use dev
  versioner ctx set storage s3://my-bucket/archives
  versioner ctx show`,
}

var ctxAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		cfg := ctxAddConfig
		if err := cs.CtxAdd(args[0], &cfg); err != nil {
			return err
		}
		cli.PrintSuccess("context %q created", args[0])
		return nil
	},
}

var ctxUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := cs.CtxUse(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("switched to context %q", args[0])
		return nil
	},
}

var ctxListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		infos, err := cs.CtxList()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			cli.PrintInfo("no contexts; create one with 'versioner ctx add <name>'")
			return nil
		}
		return output(ctxView(infos))
	},
}

var ctxShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context's configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		name, cfg, err := cs.CtxShow(name)
		if err != nil {
			return err
		}
		return output(map[string]any{"name": name, "config": cfg})
	},
}

var ctxSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key on the current context",
	Long:  "Set a key on the current context. Run 'versioner ctx keys' for the supported keys.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := cs.CtxConfigSet(args[0], args[1]); err != nil {
			return err
		}
		cli.PrintSuccess("%s = %s", args[0], args[1])
		return nil
	},
}

var ctxKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the supported context keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		for _, k := range cs.CtxConfigList() {
			fmt.Printf("%-12s %s\n", k.Key, k.Description)
		}
		return nil
	},
}

var ctxRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := cs.CtxRemove(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("context %q removed", args[0])
		return nil
	},
}

func init() {
	f := ctxAddCmd.Flags()
	f.StringVar(&ctxAddConfig.KV, "kv", "", "graph store URL (badger:///path, badger://, memory://)")
	f.StringVar(&ctxAddConfig.Storage, "storage", "", "archive destination (dir, file:///dir, s3://bucket/prefix)")
	f.StringVar(&ctxAddConfig.S3Region, "s3-region", "", "S3 region")
	f.StringVar(&ctxAddConfig.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	f.StringVar(&ctxAddConfig.Schemas, "schemas", "", "directory of <EntityLabel>.json state schemas")

	ctxCmd.AddCommand(ctxAddCmd, ctxUseCmd, ctxListCmd, ctxShowCmd, ctxSetCmd, ctxKeysCmd, ctxRemoveCmd)
	rootCmd.AddCommand(ctxCmd)
}
