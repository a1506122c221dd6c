package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/huanfeng/ownerkit/pkg/provision"
	"github.com/spf13/cobra"
)

var (
	installCommandsFile string
	installOwner        string
	installOpts         adb.InstallOptions
)

var installCmd = &cobra.Command{
	Use:   "install <apk-path>...",
	Short: "Install APKs and run their post-install commands",
	Long: `Install one or more local APK files on the target devices. Commands from
--commands and the device-owner assignment from --owner run after the last APK
is installed, with the account workaround applied to device-owner commands.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kit, err := buildInstallKit(args, installCommandsFile, installOwner)
		if err != nil {
			return err
		}
		return installOnDevices(cmd, kit, installOpts)
	},
}

// buildInstallKit turns the install arguments into a one-off kit. Post-install
// commands belong to the last APK.
func buildInstallKit(paths []string, commandsFile, owner string) (*provision.Kit, error) {
	var commands []string
	if commandsFile != "" {
		lines, err := provision.ReadCommandFile(commandsFile)
		if err != nil {
			return nil, err
		}
		commands = append(commands, lines...)
	}
	if owner = strings.TrimSpace(owner); owner != "" {
		commands = append(commands, "dpm set-device-owner "+owner)
	}

	kit := &provision.Kit{Name: "install"}
	for i, path := range paths {
		var entryCommands []string
		if i == len(paths)-1 {
			entryCommands = commands
		}
		entry, err := provision.NewEntry(path, entryCommands)
		if err != nil {
			return nil, err
		}
		kit.Entries = append(kit.Entries, *entry)
	}
	return kit, nil
}

// installOnDevices installs kit on every target device in parallel.
func installOnDevices(cmd *cobra.Command, kit *provision.Kit, opts adb.InstallOptions) error {
	ctx := cmd.Context()
	client := newADBClient()
	serials, err := resolveTargetDevices(ctx, client, targetDevices, targetAll)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var progress io.Writer
	if len(serials) == 1 {
		progress = out
	}

	results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (*provision.KitResult, error) {
		res, err := newSession(client, serial).runner(opts, progress).InstallKit(ctx, kit)
		if err != nil {
			return res, err
		}
		if failed := res.Failed(); failed > 0 {
			return res, errors.NewInstallError("KIT_INCOMPLETE",
				i18n.T("install.incomplete", map[string]interface{}{"Failed": failed, "Count": len(res.Entries)})).
				WithContext("device", serial)
		}
		return res, nil
	})

	for _, r := range results {
		if r.Value != nil {
			printKitResult(out, r.Value)
		}
	}
	return deviceFailures(cmd.ErrOrStderr(), results)
}

func printKitResult(w io.Writer, res *provision.KitResult) {
	fmt.Fprintf(w, "\n📦 %s\n", i18n.T("install.resultTitle", map[string]interface{}{"Kit": res.Kit, "Device": res.Device}))
	for _, e := range res.Entries {
		if !e.Succeeded() {
			fmt.Fprintf(w, "❌ %s: %s\n", e.Entry.Name, e.Error)
			if okErr := errors.AsOwnerKitError(e.Err); okErr != nil {
				for _, s := range okErr.Suggestions {
					fmt.Fprintf(w, "   💡 %s\n", s)
				}
			}
			continue
		}
		fmt.Fprintf(w, "✅ %s\n", e.Entry.Name)
		for _, c := range e.Commands {
			if c.Err != nil {
				fmt.Fprintf(w, "   ⚠️  %s\n      %s\n", c.Command, c.Error)
			} else {
				fmt.Fprintf(w, "   ✔ %s\n", c.Command)
			}
		}
	}
	fmt.Fprintf(w, "📊 %s\n", i18n.T("install.summary", map[string]interface{}{
		"Succeeded": res.Succeeded(),
		"Failed":    res.Failed(),
		"Duration":  res.Duration.Round(time.Millisecond).String(),
	}))
}

// addInstallOptionFlags registers the pm install flags.
func addInstallOptionFlags(cmd *cobra.Command, opts *adb.InstallOptions) {
	cmd.Flags().BoolVarP(&opts.Replace, "replace", "r", true, "replace an existing installation (pm install -r)")
	cmd.Flags().BoolVarP(&opts.Downgrade, "downgrade", "d", false, "allow a version downgrade (pm install -d)")
	cmd.Flags().BoolVarP(&opts.GrantPermissions, "grant", "g", false, "grant all runtime permissions (pm install -g)")
}

func init() {
	rootCmd.AddCommand(installCmd)

	addDeviceFlags(installCmd)
	addInstallOptionFlags(installCmd, &installOpts)
	installCmd.Flags().StringVar(&installCommandsFile, "commands", "", "file with post-install shell commands, one per line")
	installCmd.Flags().StringVar(&installOwner, "owner", "", "component to make device owner, e.g. com.example.dpc/.AdminReceiver")
}
