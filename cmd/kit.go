package cmd

import (
	"fmt"
	"io"

	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/huanfeng/ownerkit/pkg/provision"
	"github.com/huanfeng/ownerkit/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	kitOpts   adb.InstallOptions
	kitDryRun bool
)

var kitCmd = &cobra.Command{
	Use:   "kit <dir|kit.yaml>",
	Short: "Install a provisioning kit",
	Long: `Install every APK of a kit in order and run its post-install commands.

A kit is either a directory of APKs, where <name>.txt next to <name>.apk holds
that APK's commands, or a YAML manifest:

  name: kiosk
  apps:
    - file: apks/dpc.apk
      commands:
        - dpm set-device-owner com.example.dpc/.AdminReceiver`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kit, err := provision.LoadKit(args[0])
		if err != nil {
			return err
		}
		if kitDryRun {
			printKit(cmd.OutOrStdout(), kit)
			return nil
		}
		return installOnDevices(cmd, kit, kitOpts)
	},
}

func printKit(w io.Writer, kit *provision.Kit) {
	fmt.Fprintf(w, "📦 %s\n", kit.Name)
	if kit.Description != "" {
		fmt.Fprintf(w, "   %s\n", kit.Description)
	}
	fmt.Fprintln(w, i18n.T("kit.entries", map[string]interface{}{"Count": len(kit.Entries)}))
	for i, e := range kit.Entries {
		label := e.Name
		if e.PackageID != "" {
			label += " (" + e.PackageID + ")"
		}
		owner := ""
		if e.HasOwnerCommand() {
			owner = " 👑"
		}
		fmt.Fprintf(w, "%d. %s - %s%s\n", i+1, label, utils.FormatBytes(e.Size), owner)
		for _, c := range e.Commands {
			fmt.Fprintf(w, "   $ %s\n", c)
		}
	}
}

func init() {
	rootCmd.AddCommand(kitCmd)

	addDeviceFlags(kitCmd)
	addInstallOptionFlags(kitCmd, &kitOpts)
	kitCmd.Flags().BoolVar(&kitDryRun, "dry-run", false, "list the kit without installing")
}
