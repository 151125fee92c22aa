package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/getmockd/routeval/pkg/cli/internal/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := struct {
			Version   string `json:"version"`
			Commit    string `json:"commit"`
			BuildDate string `json:"buildDate"`
			GoVersion string `json:"goVersion"`
			OS        string `json:"os"`
			Arch      string `json:"arch"`
		}{Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(out, info)
		}
		fmt.Fprintf(out, "routeval %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
		fmt.Fprintf(out, "%s %s/%s\n", info.GoVersion, info.OS, info.Arch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
