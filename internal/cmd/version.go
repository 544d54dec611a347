package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/borrowledger/internal/capi"
)

// Version is the build version, overridden at link time with
// -ldflags "-X github.com/Iron-Ham/borrowledger/internal/cmd.Version=v1.2.3".
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build and ledger API versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "borrowledger %s\n", buildVersion())
		fmt.Fprintf(cmd.OutOrStdout(), "ledger API version %d\n", capi.APIVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func buildVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
