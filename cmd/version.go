package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/profile-extractor/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of profile-extractor",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func versionString() string {
	return fmt.Sprintf("%s %s (%s, %s/%s)", app, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
