package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell <command>...",
	Short: "Run a shell command on the device",
	Long: `Run a shell command on the target devices. Device-owner commands get the
same account workaround as the owner command; anything else runs once and its
output is printed as is.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnDevices(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	addDeviceFlags(shellCmd)
	shellCmd.Flags().SetInterspersed(false)
}
