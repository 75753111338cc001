package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/topograph/pkg/cli"
	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/predicate"
	"github.com/haivivi/topograph/pkg/query"
)

// queryFile is the request file accepted by 'query -f'.
type queryFile struct {
	Where     any             `json:"where" yaml:"where"`
	Root      string          `json:"root" yaml:"root"`
	Depth     *int            `json:"depth" yaml:"depth"`
	Direction graph.Direction `json:"direction" yaml:"direction"`
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter the graph or walk a vertex neighborhood",
	Long: `Return the subgraph of matching vertices with every edge between them.

Without --root the predicate filters the whole graph. With --root the
query walks at most --depth hops from the root along --direction; a
reached vertex is kept, and walked further, only if it matches.

The predicate is the operator-map form, in JSON or YAML:
  {"==": {"category": "ALARM"}}
  {"and": [{"==": {"type": "nova.host"}}, {"!=": {"state": "ok"}}]}

Examples:
  topograph query -g graph.yaml --where '{"==": {"category": "RESOURCE"}}'
  topograph query -g graph.yaml --root host-1 --depth 2 --direction out
  topograph query -g graph.yaml -f query.yaml --format table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		req, err := buildQuery(cmd)
		if err != nil {
			return err
		}
		graphPath, _ := cmd.Flags().GetString("graph")
		g, err := loadGraph(graphPath, c)
		if err != nil {
			return err
		}
		out, err := query.Vertices(g, req)
		if err != nil {
			return err
		}
		return outputResult(documentView(out.Document()))
	},
}

// buildQuery reads the request file, if any, and applies flags over it.
func buildQuery(cmd *cobra.Command) (query.Request, error) {
	var (
		req  query.Request
		file queryFile
	)
	flags := cmd.Flags()
	depth := -1

	if path, _ := flags.GetString("file"); path != "" {
		if err := cli.LoadRequest(path, &file); err != nil {
			return req, err
		}
		if file.Where != nil {
			q, err := predicate.Parse(file.Where)
			if err != nil {
				return req, err
			}
			req.Query = q
		}
		req.Root = file.Root
		req.Direction = file.Direction
		if file.Depth != nil {
			depth = *file.Depth
		}
	}

	if flags.Changed("where") {
		where, _ := flags.GetString("where")
		q, err := predicate.ParseYAML([]byte(where))
		if err != nil {
			return req, err
		}
		req.Query = q
	}
	if flags.Changed("root") {
		req.Root, _ = flags.GetString("root")
	}
	if flags.Changed("depth") {
		depth, _ = flags.GetInt("depth")
	}
	if flags.Changed("direction") {
		s, _ := flags.GetString("direction")
		d, err := graph.ParseDirection(s)
		if err != nil {
			return req, err
		}
		req.Direction = d
	}
	if req.Root == "" && (flags.Changed("depth") || flags.Changed("direction")) {
		return req, fmt.Errorf("--depth and --direction need --root")
	}
	req.Depth = depth
	return req, nil
}

func init() {
	queryCmd.Flags().StringP("graph", "g", "", "graph document (YAML or JSON)")
	queryCmd.Flags().StringP("file", "f", "", "query request file (where, root, depth, direction)")
	queryCmd.Flags().String("where", "", "vertex predicate (JSON or YAML)")
	queryCmd.Flags().String("root", "", "root vertex id for a neighborhood query")
	queryCmd.Flags().Int("depth", -1, "maximum hops from the root, negative for unbounded")
	queryCmd.Flags().String("direction", "both", "edges to follow: in, out, both")

	rootCmd.AddCommand(queryCmd)
}
