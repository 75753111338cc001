package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/cli"
	"github.com/haivivi/topograph/pkg/match"
	"github.com/haivivi/topograph/pkg/template"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match one template against the graph",
	Long: `Find every embedding of a template that contains the given seeds.

Seeds pin template elements to graph elements: --seed maps a template
entity to a graph vertex, --seed-edge maps a template relationship to a
graph edge. Inconsistent seeds yield no results.

The template comes from --template-file, or by name (-t) from the
template source of the context (see 'topograph template').

Examples:
  topograph match -g graph.yaml -t alarm_on_host --seed alarm=alarm-17
  topograph match -g graph.yaml --template-file causal.yaml \
      --seed-edge alarm_on_host=e-42 --validate --format table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		flags := cmd.Flags()

		tpl, err := resolveTemplate(cmd, c)
		if err != nil {
			return err
		}
		vseeds, _ := flags.GetStringArray("seed")
		eseeds, _ := flags.GetStringArray("seed-edge")
		seeds, err := parseSeeds(vseeds, eseeds)
		if err != nil {
			return err
		}
		graphPath, _ := flags.GetString("graph")
		g, err := loadGraph(graphPath, c)
		if err != nil {
			return err
		}
		maxSteps, _ := flags.GetInt("max-steps")
		validate, _ := flags.GetBool("validate")

		start := time.Now()
		results, err := newMatcher(maxSteps, c).Match(cmd.Context(), g, match.Request{
			Template: tpl,
			Seeds:    seeds,
			Validate: validate || c.Validate,
		})
		if err != nil {
			return err
		}
		slog.Info("match finished", "template", tpl.Name(), "results", len(results), "elapsed", cli.FormatDuration(time.Since(start)))
		return outputResult(resultsView(results))
	},
}

// resolveTemplate loads --template-file, or the template named by -t from
// the context's template source.
func resolveTemplate(cmd *cobra.Command, c *cli.Context) (*template.Template, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("template-file")
	name, _ := flags.GetString("template")
	switch {
	case file != "" && name != "":
		return nil, fmt.Errorf("use either --template or --template-file")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return template.Parse(data, file)
	case name != "":
		src, _ := flags.GetString("templates")
		lib, err := loadLibrary(cmd.Context(), src, c)
		if err != nil {
			return nil, err
		}
		return lib.Get(name)
	default:
		return nil, fmt.Errorf("no template given; use --template or --template-file")
	}
}

func init() {
	matchCmd.Flags().StringP("graph", "g", "", "graph document (YAML or JSON)")
	matchCmd.Flags().StringP("template", "t", "", "template name")
	matchCmd.Flags().String("template-file", "", "template definition file")
	matchCmd.Flags().String("templates", "", "template source (directory or bundle location)")
	matchCmd.Flags().StringArray("seed", nil, "vertex seed template_id=vertex_id (repeatable)")
	matchCmd.Flags().StringArray("seed-edge", nil, "edge seed template_id=edge_id (repeatable)")
	matchCmd.Flags().Bool("validate", false, "verify every template edge of every result")
	matchCmd.Flags().Int("max-steps", 0, "search step budget, negative for unlimited")

	rootCmd.AddCommand(matchCmd)
}
