package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/spf13/cobra"
)

var devicesFormat string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected Android devices",
	Long:  `List every device adb can see, grouped by connection state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := newADBClient().Devices(cmd.Context())
		if err != nil {
			return err
		}
		status := adb.GroupDevices(devices)

		out := cmd.OutOrStdout()
		switch devicesFormat {
		case "json":
			return showDevicesJSON(out, status)
		case "table":
			showDevicesTable(out, status)
		default:
			showDevicesDefault(out, status)
		}
		return nil
	},
}

var devicesInfoCmd = &cobra.Command{
	Use:   "info <device-id>",
	Short: "Show details for one device",
	Long:  `Show build properties and connection state for one device.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newADBClient().ForDevice(args[0]).DeviceInfo(cmd.Context())
		if err != nil {
			return err
		}
		showDeviceDetails(cmd.OutOrStdout(), d)
		return nil
	},
}

func showDevicesDefault(w io.Writer, status *adb.DeviceStatus) {
	if status.Total == 0 {
		fmt.Fprintln(w, "📱 "+i18n.T("devices.none"))
		fmt.Fprintln(w, "   💡 "+i18n.T("devices.noneHint"))
		return
	}

	if len(status.Online) > 0 {
		fmt.Fprintf(w, "🟢 %s (%d):\n", i18n.T("devices.online"), len(status.Online))
		for i, d := range status.Online {
			fmt.Fprintf(w, "%d. %s\n", i+1, d.Details())
		}
		fmt.Fprintln(w)
	}

	if len(status.Offline) > 0 {
		fmt.Fprintf(w, "🔴 %s (%d):\n", i18n.T("devices.offline"), len(status.Offline))
		for i, d := range status.Offline {
			fmt.Fprintf(w, "%d. %s\n", i+1, d.DisplayName())
		}
		fmt.Fprintln(w, "   💡 "+i18n.T("devices.offlineHint"))
		fmt.Fprintln(w)
	}

	if len(status.Unauthorized) > 0 {
		fmt.Fprintf(w, "🔒 %s (%d):\n", i18n.T("devices.unauthorized"), len(status.Unauthorized))
		for i, d := range status.Unauthorized {
			fmt.Fprintf(w, "%d. %s\n", i+1, d.DisplayName())
		}
		fmt.Fprintln(w, "   💡 "+i18n.T("devices.unauthorizedHint"))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "📊 "+i18n.T("devices.summary", map[string]interface{}{
		"Total":        status.Total,
		"Online":       len(status.Online),
		"Offline":      len(status.Offline),
		"Unauthorized": len(status.Unauthorized),
	}))
}

func showDevicesTable(w io.Writer, status *adb.DeviceStatus) {
	if status.Total == 0 {
		fmt.Fprintln(w, i18n.T("devices.none"))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE ID\tSTATUS\tMODEL\tANDROID\tMANUFACTURER\tTYPE")
	fmt.Fprintln(tw, "---------\t------\t-----\t-------\t------------\t----")

	all := append([]adb.Device{}, status.Online...)
	all = append(all, status.Offline...)
	all = append(all, status.Unauthorized...)

	for _, d := range all {
		deviceType := "Device"
		if d.IsEmulator {
			deviceType = "Emulator"
		}
		android := d.AndroidVer
		if android != "" && d.AndroidAPI > 0 {
			android += fmt.Sprintf(" (API %d)", d.AndroidAPI)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Model, android, d.Manufacturer, deviceType)
	}
	tw.Flush()
}

func showDevicesJSON(w io.Writer, status *adb.DeviceStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func showDeviceDetails(w io.Writer, d *adb.Device) {
	fmt.Fprintf(w, "📱 %s\n", i18n.T("devices.infoTitle"))
	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}
	row("Device ID", d.ID)
	row("Status", d.Status)
	row("Model", d.Model)
	row("Manufacturer", d.Manufacturer)
	row("Brand", d.Brand)
	row("Product", d.Product)
	row("Device", d.Device)
	row("Android Version", d.AndroidVer)
	if d.AndroidAPI > 0 {
		row("API Level", fmt.Sprint(d.AndroidAPI))
	}
	row("Transport ID", d.Transport)
	if !d.LastSeen.IsZero() {
		row("Last Seen", d.LastSeen.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()

	switch d.Status {
	case "device":
		fmt.Fprintln(w, "\n✅ "+i18n.T("devices.ready"))
	case "offline":
		fmt.Fprintln(w, "\n🔴 "+i18n.T("devices.offlineHint"))
	case "unauthorized":
		fmt.Fprintln(w, "\n🔒 "+i18n.T("devices.unauthorizedHint"))
	}
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesInfoCmd)

	devicesCmd.Flags().StringVar(&devicesFormat, "format", "default", "output format: default, table, json")
}
