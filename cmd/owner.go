package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/spf13/cobra"
)

var ownerCmd = &cobra.Command{
	Use:   "owner <component>",
	Short: "Make an installed app the device owner",
	Long: `Run dpm set-device-owner for the given admin receiver component, for
example com.example.dpc/.AdminReceiver. If Android refuses because accounts
are configured, the account apps are disabled, the assignment is retried once
and the apps are enabled again whatever the outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		component := strings.TrimSpace(args[0])
		if !strings.Contains(component, "/") {
			return errors.NewValidationError("INVALID_COMPONENT",
				i18n.T("owner.invalidComponent", map[string]interface{}{"Component": component}))
		}
		return runOnDevices(cmd, "dpm set-device-owner "+component)
	},
}

// runOnDevices runs command through the account-recovery flow on every target
// device and prints each device's output.
func runOnDevices(cmd *cobra.Command, command string) error {
	ctx := cmd.Context()
	client := newADBClient()
	serials, err := resolveTargetDevices(ctx, client, targetDevices, targetAll)
	if err != nil {
		return err
	}

	results := forEachDevice(ctx, serials, func(ctx context.Context, serial string) (string, error) {
		s := newSession(client, serial)
		out, err := s.orchestrator.RunWithAccountRecovery(ctx, command)
		if stderrors.Is(err, errors.ErrAccountsPresent) && adb.IsAndroid14OrHigher(ctx, s.client) {
			s.logger.Warn("%s", i18n.T("owner.android14Hint"))
		}
		return out, err
	})

	out := cmd.OutOrStdout()
	for _, r := range results {
		text := strings.TrimSpace(r.Value)
		if text == "" {
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(out, "[%s] %s\n", r.Serial, text)
		} else {
			fmt.Fprintln(out, text)
		}
	}
	return deviceFailures(cmd.ErrOrStderr(), results)
}

func init() {
	rootCmd.AddCommand(ownerCmd)
	addDeviceFlags(ownerCmd)
}
