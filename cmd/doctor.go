package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/spf13/cobra"
)

// deviceHealth is what doctor learns about one online device.
type deviceHealth struct {
	Device      adb.Device
	Rooted      bool
	Android14   bool
	HasAccounts bool
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adb and the connected devices",
	Long: `The doctor command checks that adb can be run, lists the devices it sees
and, for every online device, reports the Android version, root access and
whether accounts would block a device-owner assignment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		client := newADBClient()

		fmt.Fprintln(out, "🏥 ownerkit doctor")
		fmt.Fprintln(out, strings.Repeat("=", 50))

		var issues []string

		fmt.Fprintf(out, "\n🔍 %s\n", i18n.T("doctor.checkADB"))
		v, err := client.Version(ctx)
		if err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", client.Path(), err)
			return errors.NewConfigurationError("ADB_NOT_AVAILABLE", i18n.T("doctor.adbMissing", map[string]interface{}{"Path": client.Path()}))
		}
		fmt.Fprintf(out, "✅ %s\n", v)

		fmt.Fprintf(out, "\n📱 %s\n", i18n.T("doctor.checkDevices"))
		devices, err := client.Devices(ctx)
		if err != nil {
			return err
		}
		status := adb.GroupDevices(devices)
		for _, d := range status.Offline {
			issues = append(issues, i18n.T("doctor.deviceOffline", map[string]interface{}{"Device": d.ID}))
		}
		for _, d := range status.Unauthorized {
			issues = append(issues, i18n.T("doctor.deviceUnauthorized", map[string]interface{}{"Device": d.ID}))
		}
		if len(status.Online) == 0 {
			issues = append(issues, i18n.T("device.noneOnline"))
		}

		serials := make([]string, 0, len(status.Online))
		byID := make(map[string]adb.Device, len(status.Online))
		for _, d := range status.Online {
			serials = append(serials, d.ID)
			byID[d.ID] = d
		}

		results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (deviceHealth, error) {
			s := newSession(client, serial)
			return deviceHealth{
				Device:      byID[serial],
				Rooted:      adb.IsDeviceRooted(ctx, s.client),
				Android14:   adb.IsAndroid14OrHigher(ctx, s.client),
				HasAccounts: s.inspector.DeviceHasAccounts(ctx),
			}, ctx.Err()
		})
		for _, r := range results {
			if r.Err != nil {
				issues = append(issues, fmt.Sprintf("%s: %v", r.Serial, r.Err))
				continue
			}
			printDeviceHealth(out, r.Value)
			if r.Value.HasAccounts {
				issues = append(issues, i18n.T("doctor.accounts", map[string]interface{}{"Device": r.Serial}))
			}
		}

		fmt.Fprintln(out, "\n"+strings.Repeat("=", 50))
		if len(issues) == 0 {
			fmt.Fprintln(out, "✅ "+i18n.T("doctor.allPassed"))
			return nil
		}

		fmt.Fprintln(out, "⚠️  "+i18n.T("doctor.issues", map[string]interface{}{"Count": len(issues)}))
		for i, issue := range issues {
			fmt.Fprintf(out, "%d. %s\n", i+1, issue)
		}
		return fmt.Errorf("%s", i18n.T("doctor.failed"))
	},
}

func printDeviceHealth(w io.Writer, h deviceHealth) {
	fmt.Fprintf(w, "✅ %s\n", h.Device.Details())
	yesNo := func(b bool) string {
		if b {
			return i18n.T("common.yes")
		}
		return i18n.T("common.no")
	}
	fmt.Fprintf(w, "   %s: %s\n", i18n.T("doctor.rooted"), yesNo(h.Rooted))
	fmt.Fprintf(w, "   %s: %s\n", i18n.T("doctor.android14"), yesNo(h.Android14))
	fmt.Fprintf(w, "   %s: %s\n", i18n.T("doctor.hasAccounts"), yesNo(h.HasAccounts))
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
