package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/apk"
	"github.com/huanfeng/ownerkit/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	inspectFormat   string
	inspectIcon     string
	inspectIconSize uint
)

// Permissions that matter for a device-owner app.
var adminPermissions = []string{
	"android.permission.BIND_DEVICE_ADMIN",
	"android.permission.MANAGE_DEVICE_ADMINS",
	"android.permission.MANAGE_PROFILE_AND_DEVICE_OWNERS",
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <apk-path>",
	Short: "Show metadata of an APK file",
	Long:  `Read the binary manifest of an APK and print its package, version, SDK levels and permissions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := apk.Inspect(args[0])
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeInvalidAPK,
				i18n.T("inspect.failed", map[string]interface{}{"Path": args[0]}))
		}

		out := cmd.OutOrStdout()
		if inspectIcon != "" {
			if err := saveIcon(args[0], inspectIcon, inspectIconSize); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "🖼  %s\n", i18n.T("inspect.iconSaved", map[string]interface{}{"Path": inspectIcon}))
		}

		if inspectFormat == "json" {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		showAPKInfo(out, info)
		return nil
	},
}

func saveIcon(apkPath, dst string, size uint) error {
	data, err := apk.ExtractIcon(apkPath, size)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeNotFound, "ICON_NOT_FOUND", i18n.T("inspect.iconFailed"))
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write icon: %w", err)
	}
	return nil
}

func showAPKInfo(w io.Writer, info *apk.Info) {
	fmt.Fprintf(w, "📦 %s\n", info.Label)
	fmt.Fprintf(w, "Package:     %s\n", info.PackageID)
	fmt.Fprintf(w, "Version:     %s (%d)\n", info.VersionName, info.VersionCode)
	fmt.Fprintf(w, "SDK:         min %d, target %d\n", info.MinSDK, info.TargetSDK)
	fmt.Fprintf(w, "Size:        %s\n", utils.FormatBytes(info.Size))
	fmt.Fprintf(w, "SHA-256:     %s\n", info.SHA256)
	if len(info.ABIs) > 0 {
		fmt.Fprintf(w, "ABIs:        %s\n", strings.Join(info.ABIs, ", "))
	}

	if len(info.Permissions) > 0 {
		fmt.Fprintf(w, "\n%s (%d):\n", i18n.T("inspect.permissions"), len(info.Permissions))
		for _, p := range info.Permissions {
			fmt.Fprintf(w, "  • %s\n", p)
		}
	}

	for _, p := range adminPermissions {
		if info.HasPermission(p) {
			fmt.Fprintf(w, "\n👑 %s\n", i18n.T("inspect.adminCapable"))
			break
		}
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "default", "output format: default, json")
	inspectCmd.Flags().StringVar(&inspectIcon, "icon", "", "write the launcher icon as PNG to this file")
	inspectCmd.Flags().UintVar(&inspectIconSize, "icon-size", apk.DefaultIconSize, "icon edge length in pixels")
}
