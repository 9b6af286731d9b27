package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/arunika/dollcore/cmd/dollcore/internal/build"
	"github.com/arunika/dollcore/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:   %s\n", runtime.Version())
			if paths, err := cli.NewPaths(); err == nil {
				fmt.Printf("  home: %s\n", paths.BaseDir())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
