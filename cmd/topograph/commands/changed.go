package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/rca"
)

var changedCmd = &cobra.Command{
	Use:   "changed",
	Short: "Run every template against a changed vertex or edge",
	Long: `Seed every template element the changed element could play and
report all matches as findings.

Examples:
  topograph changed -g graph.yaml --vertex alarm-17
  topograph changed -g graph.yaml --edge alarm-17_on_host-1 --templates ./templates`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		vertex, _ := flags.GetString("vertex")
		edge, _ := flags.GetString("edge")
		if (vertex == "") == (edge == "") {
			return fmt.Errorf("give exactly one of --vertex or --edge")
		}

		c, err := getContext()
		if err != nil {
			return err
		}
		src, _ := flags.GetString("templates")
		lib, err := loadLibrary(cmd.Context(), src, c)
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
		parallel, _ := flags.GetInt("parallel")

		engine := rca.New(rca.Config{
			Graph:       g,
			Library:     lib,
			Matcher:     newMatcher(maxSteps, c),
			Validate:    validate || c.Validate,
			Parallelism: parallel,
		})
		var findings []rca.Finding
		if vertex != "" {
			findings, err = engine.VertexChanged(cmd.Context(), vertex)
		} else {
			findings, err = engine.EdgeChanged(cmd.Context(), edge)
		}
		if err != nil {
			return err
		}
		return outputResult(findingsView(findings))
	},
}

func init() {
	changedCmd.Flags().StringP("graph", "g", "", "graph document (YAML or JSON)")
	changedCmd.Flags().String("templates", "", "template source (directory or bundle location)")
	changedCmd.Flags().String("vertex", "", "id of the changed vertex")
	changedCmd.Flags().String("edge", "", "id of the changed edge")
	changedCmd.Flags().Bool("validate", false, "verify every template edge of every result")
	changedCmd.Flags().Int("max-steps", 0, "search step budget per match, negative for unlimited")
	changedCmd.Flags().Int("parallel", 0, "templates matched concurrently (default GOMAXPROCS)")

	rootCmd.AddCommand(changedCmd)
}
