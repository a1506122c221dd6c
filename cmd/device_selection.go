package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/huanfeng/ownerkit/internal/device"
	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/accounts"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/huanfeng/ownerkit/pkg/provision"
	"github.com/huanfeng/ownerkit/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	targetDevices []string
	targetAll     bool
)

// addDeviceFlags registers -s/--device and --all on a command that talks to devices.
func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&targetDevices, "device", "s", nil, "target device serial (repeatable)")
	cmd.Flags().BoolVar(&targetAll, "all", false, "target every online device")
}

func newADBClient() *adb.Client {
	c := currentConfig()
	return adb.NewClient(c.ADB.Path,
		adb.WithTimeout(c.ADB.CommandTimeout),
		adb.WithLogger(utils.GetGlobalLogger()),
	)
}

func parseDeviceList(devices []string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, id := range devices {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// resolveTargetDevices picks serials from, in order: --all, -s, the configured
// default device, or the only online device.
func resolveTargetDevices(ctx context.Context, client *adb.Client, explicit []string, all bool) ([]string, error) {
	if all {
		online, err := client.OnlineDevices(ctx)
		if err != nil {
			return nil, err
		}
		if len(online) == 0 {
			return nil, errors.NewDeviceError(errors.CodeNoDevices, i18n.T("device.noneOnline"))
		}
		return online, nil
	}

	if ids := parseDeviceList(explicit); len(ids) > 0 {
		return ids, nil
	}

	if def := strings.TrimSpace(currentConfig().ADB.DefaultDevice); def != "" {
		return []string{def}, nil
	}

	online, err := client.OnlineDevices(ctx)
	if err != nil {
		return nil, err
	}
	switch len(online) {
	case 0:
		return nil, errors.NewDeviceError(errors.CodeNoDevices, i18n.T("device.noneOnline"))
	case 1:
		return online, nil
	default:
		return nil, errors.NewValidationError("MULTIPLE_DEVICES",
			i18n.T("device.multiple", map[string]interface{}{"Count": len(online), "Devices": strings.Join(online, ", ")})).
			WithSuggestion(i18n.T("device.multipleHint"))
	}
}

// session bundles the per-device services of one provisioning flow.
type session struct {
	serial       string
	client       *adb.Client
	inspector    *accounts.Inspector
	orchestrator *provision.Orchestrator
	logger       utils.Logger
}

func newSession(base *adb.Client, serial string) *session {
	c := currentConfig()
	logger := utils.GetGlobalLogger().WithField("device", serial)
	client := base.ForDevice(serial)
	inspector := accounts.NewInspector(client,
		accounts.WithLogger(logger),
		accounts.WithUser(c.Accounts.User),
		accounts.WithSettleDelay(c.Accounts.SettleDelay),
	)
	return &session{
		serial:       serial,
		client:       client,
		inspector:    inspector,
		orchestrator: provision.NewOrchestrator(client, inspector, logger),
		logger:       logger,
	}
}

func (s *session) runner(opts adb.InstallOptions, progress io.Writer) *provision.Runner {
	c := currentConfig()
	return provision.NewRunner(s.client, s.orchestrator,
		provision.WithRunnerLogger(s.logger),
		provision.WithInstallOptions(opts),
		provision.WithDevice(s.serial),
		provision.WithProgress(progress),
		provision.WithDelays(provision.Delays{
			Register: c.Provision.RegisterDelay,
			Owner:    c.Provision.OwnerDelay,
			Pause:    c.Provision.CommandPause,
		}),
	)
}

// forEachDevice runs task on every serial through the worker pool.
func forEachDevice[T any](ctx context.Context, serials []string, task device.TaskFunc[T]) []device.Result[T] {
	m := device.NewManager[T](
		device.WithWorkerLimit[T](currentConfig().Provision.Workers),
		device.WithLogger[T](utils.GetGlobalLogger()),
	)
	return m.Run(ctx, serials, task)
}

// deviceFailures prints per-device errors and returns the single error when
// only one device was targeted, or a summary error otherwise.
func deviceFailures[T any](w io.Writer, results []device.Result[T]) error {
	failed := device.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	if len(results) == 1 {
		return failed[0].Err
	}
	for _, r := range failed {
		fmt.Fprintf(w, "❌ %s: %v\n", r.Serial, r.Err)
	}
	return errors.NewError(errors.ErrorTypeDevice, "DEVICES_FAILED",
		i18n.T("device.someFailed", map[string]interface{}{"Failed": len(failed), "Count": len(results)}))
}
