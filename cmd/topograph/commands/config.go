package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/cli"
	"github.com/haivivi/topograph/pkg/storage"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context names the graph document, the template source and the matcher
settings of one deployment, similar to kubectl's context management.

Configuration is stored in ~/.topograph/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context with the specified name, replacing any existing one.

S3 settings may reference environment variables, expanded when used:
  topograph config add-context prod --templates s3://rca/templates \
      --s3-region us-east-1 --s3-access-key '${AWS_ACCESS_KEY_ID}' \
      --s3-secret-key '${AWS_SECRET_ACCESS_KEY}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		ctx := &cli.Context{}
		ctx.Graph, _ = flags.GetString("graph")
		ctx.Templates, _ = flags.GetString("templates")
		ctx.StoreDir, _ = flags.GetString("store-dir")
		ctx.MaxSteps, _ = flags.GetInt("max-steps")
		ctx.Validate, _ = flags.GetBool("validate")

		var s3 storage.S3Options
		s3.Region, _ = flags.GetString("s3-region")
		s3.Endpoint, _ = flags.GetString("s3-endpoint")
		s3.AccessKey, _ = flags.GetString("s3-access-key")
		s3.SecretKey, _ = flags.GetString("s3-secret-key")
		if s3 != (storage.S3Options{}) {
			ctx.S3 = &s3
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0], ctx); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q added", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		infos := make(contextsView, 0, len(cfg.Contexts))
		for _, name := range cfg.ListContexts() {
			c := cfg.Contexts[name]
			infos = append(infos, contextInfo{
				Current:   name == cfg.CurrentContext,
				Name:      name,
				Graph:     c.Graph,
				Templates: c.Templates,
			})
		}
		return outputResult(infos)
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [name]",
	Short: "Show a context with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := cfg.CurrentContext
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no context given and no current context set")
		}
		c, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		shown := *c
		if c.S3 != nil {
			s3 := *c.S3
			s3.AccessKey = cli.MaskSecret(s3.AccessKey)
			s3.SecretKey = cli.MaskSecret(s3.SecretKey)
			shown.S3 = &s3
		}
		return outputResult(&shown)
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.String("graph", "", "default graph document")
	f.String("templates", "", "template source (directory or bundle location)")
	f.String("store-dir", "", "template cache directory")
	f.Int("max-steps", 0, "search step budget per match, negative for unlimited")
	f.Bool("validate", false, "verify every template edge of every result")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("s3-access-key", "", "S3 access key")
	f.String("s3-secret-key", "", "S3 secret key")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)

	rootCmd.AddCommand(configCmd)
}
