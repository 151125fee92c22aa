package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/routeval/pkg/cli/internal/output"
	"github.com/getmockd/routeval/pkg/config"
	"github.com/getmockd/routeval/pkg/validation"
)

var checkFile string

var checkCmd = &cobra.Command{
	Use:   "check -f <file>",
	Short: "Load a route file or OpenAPI document and list its routes",
	Long: `Load a routeval route file (YAML or JSON) or an OpenAPI 3 document, compile
every schema and list the validated targets of each route.

Examples:
  routeval check -f routes.yaml
  routeval check -f openapi.yaml --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, err := config.Load(checkFile)
		if err != nil {
			return err
		}

		type routeInfo struct {
			Pattern string              `json:"pattern"`
			Targets []validation.Target `json:"targets"`
		}
		infos := make([]routeInfo, 0, len(routes))
		for _, pattern := range slices.Sorted(maps.Keys(routes)) {
			targets := routes[pattern].Targets()
			if targets == nil {
				targets = []validation.Target{}
			}
			infos = append(infos, routeInfo{Pattern: pattern, Targets: targets})
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(out, infos)
		}

		tw := output.Table(out)
		fmt.Fprintln(tw, "ROUTE\tTARGETS")
		for _, info := range infos {
			names := make([]string, len(info.Targets))
			for i, t := range info.Targets {
				names[i] = string(t)
			}
			targets := strings.Join(names, ",")
			if targets == "" {
				targets = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\n", info.Pattern, targets)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d routes OK\n", len(infos))
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Route file or OpenAPI document (path or URL)")
	_ = checkCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(checkCmd)
}
