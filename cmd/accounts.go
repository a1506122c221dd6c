package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/accounts"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and toggle account apps",
	Long: `Tools behind the device-owner account workaround: check whether a device
reports accounts, disable the apps that own them, and enable them again.`,
}

var accountsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the device has accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newADBClient()
		serials, err := resolveTargetDevices(ctx, client, targetDevices, targetAll)
		if err != nil {
			return err
		}

		results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (bool, error) {
			return newSession(client, serial).inspector.DeviceHasAccounts(ctx), ctx.Err()
		})

		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if r.Value {
				fmt.Fprintf(out, "⚠️  %s: %s\n", r.Serial, i18n.T("accounts.present"))
			} else {
				fmt.Fprintf(out, "✅ %s: %s\n", r.Serial, i18n.T("accounts.none"))
			}
		}
		return deviceFailures(cmd.ErrOrStderr(), results)
	},
}

var accountsDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the apps that own accounts",
	Long: `Disable the well-known account apps and any app named in the device's
account listings. The disabled packages are printed so they can be passed to
'ownerkit accounts enable' later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newADBClient()
		serials, err := resolveTargetDevices(ctx, client, targetDevices, targetAll)
		if err != nil {
			return err
		}

		results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (accounts.DisabledSet, error) {
			return newSession(client, serial).inspector.DisableAccountApps(ctx), ctx.Err()
		})

		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", r.Serial, i18n.T("accounts.disabled", map[string]interface{}{"Count": len(r.Value)}))
			if len(r.Value) > 0 {
				fmt.Fprintf(out, "   %s\n", strings.Join(r.Value, " "))
			}
		}
		return deviceFailures(cmd.ErrOrStderr(), results)
	},
}

var accountsEnableCmd = &cobra.Command{
	Use:   "enable <package>...",
	Short: "Enable previously disabled packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		packages := accounts.DisabledSet(parseDeviceList(args))
		for _, pkg := range packages {
			if !accounts.IsValidPackageName(pkg) {
				return errors.NewValidationError("INVALID_PACKAGE",
					i18n.T("accounts.invalidPackage", map[string]interface{}{"Package": pkg}))
			}
		}

		ctx := cmd.Context()
		client := newADBClient()
		serials, err := resolveTargetDevices(ctx, client, targetDevices, targetAll)
		if err != nil {
			return err
		}

		results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (struct{}, error) {
			newSession(client, serial).inspector.ReenablePackages(ctx, packages)
			return struct{}{}, ctx.Err()
		})

		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.Err == nil {
				fmt.Fprintf(out, "%s: %s\n", r.Serial, i18n.T("accounts.enabled", map[string]interface{}{"Count": len(packages)}))
			}
		}
		return deviceFailures(cmd.ErrOrStderr(), results)
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsCheckCmd, accountsDisableCmd, accountsEnableCmd)

	for _, c := range []*cobra.Command{accountsCheckCmd, accountsDisableCmd, accountsEnableCmd} {
		addDeviceFlags(c)
	}
}
