package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/cli"
	"github.com/haivivi/topograph/pkg/storage"
	"github.com/haivivi/topograph/pkg/template"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage RCA templates",
	Long: `Validate, list, import and export RCA templates.

Templates are read from --templates, else from the context's template
source, else from the local template cache that 'template import' fills.
A source is a directory of definition files, or a bundle: a directory or
s3://bucket/prefix holding index.yaml and the files it lists.`,
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check template definition files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var errs []error
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err == nil {
				var t *template.Template
				if t, err = template.Parse(data, path); err == nil {
					cli.PrintSuccess(out, "%s: %s (%d entities, %d relationships)",
						path, t.Name(), len(t.Vertices()), len(t.Edges()))
					continue
				}
			}
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
		return errors.Join(errs...)
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := templateLibrary(cmd)
		if err != nil {
			return err
		}
		infos := make(templatesView, 0, lib.Len())
		for _, t := range lib.All() {
			infos = append(infos, templateInfo{
				Name:          t.Name(),
				Description:   t.Description(),
				Entities:      len(t.Vertices()),
				Relationships: len(t.Edges()),
			})
		}
		return outputResult(infos)
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a template definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := templateLibrary(cmd)
		if err != nil {
			return err
		}
		t, err := lib.Get(args[0])
		if err != nil {
			return err
		}
		return outputResult(t.Definition())
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "Replace the local template cache with a template source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		lib, err := openTemplates(cmd.Context(), args[0], c)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(c)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.Replace(cmd.Context(), lib); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Imported %s from %s", cli.Plural(lib.Len(), "template"), args[0])
		return nil
	},
}

var templateExportCmd = &cobra.Command{
	Use:   "export <location>",
	Short: "Write the templates as a bundle",
	Long: `Write the templates as a bundle to a local directory or an
s3://bucket/prefix location: one <name>.yaml per template plus index.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		lib, err := templateLibrary(cmd)
		if err != nil {
			return err
		}
		fs, err := storage.Open(args[0], c.S3Options())
		if err != nil {
			return err
		}
		if err := template.WriteBundle(cmd.Context(), fs, lib); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Exported %s to %s", cli.Plural(lib.Len(), "template"), args[0])
		return nil
	},
}

// templateLibrary loads the library for the template subcommands.
func templateLibrary(cmd *cobra.Command) (*template.Library, error) {
	c, err := getContext()
	if err != nil {
		return nil, err
	}
	src, _ := cmd.Flags().GetString("templates")
	return loadLibrary(cmd.Context(), src, c)
}

func init() {
	templateCmd.PersistentFlags().String("templates", "", "template source (directory or bundle location)")

	templateCmd.AddCommand(templateValidateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateExportCmd)

	rootCmd.AddCommand(templateCmd)
}
