// Package provision runs device-administration commands and package kits
// against one device, removing account interference around device-owner
// assignment when needed.
package provision

import (
	"context"
	"strings"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/pkg/accounts"
	"github.com/huanfeng/ownerkit/pkg/utils"
)

// AccountInspector is the subset of *accounts.Inspector the orchestrator needs.
type AccountInspector interface {
	DeviceHasAccounts(ctx context.Context) bool
	DisableAccountApps(ctx context.Context) accounts.DisabledSet
	ReenablePackages(ctx context.Context, packages accounts.DisabledSet)
}

const (
	deviceOwnerMarker = "dpm set-device-owner"
	deviceAdminMarker = "device-admin"
)

// IsDeviceOwnerCommand reports whether command assigns device ownership.
func IsDeviceOwnerCommand(command string) bool {
	return strings.Contains(command, deviceOwnerMarker)
}

// IsDeviceAdminCommand reports whether command touches device ownership or
// device administration, which needs the freshly installed receiver to be
// registered first.
func IsDeviceAdminCommand(command string) bool {
	return IsDeviceOwnerCommand(command) || strings.Contains(command, deviceAdminMarker)
}

// IsSuccess reports whether command output carries a success indicator.
func IsSuccess(output string) bool {
	return strings.Contains(strings.ToLower(output), "success")
}

func mentionsAccounts(output string) bool {
	return strings.Contains(strings.ToLower(output), "account")
}

// Orchestrator runs privileged shell commands with reversible account
// interference removal.
type Orchestrator struct {
	shell     accounts.Shell
	inspector AccountInspector
	logger    utils.Logger
}

// NewOrchestrator creates an Orchestrator. A nil logger discards output.
func NewOrchestrator(shell accounts.Shell, inspector AccountInspector, logger utils.Logger) *Orchestrator {
	return &Orchestrator{
		shell:     shell,
		inspector: inspector,
		logger:    utils.OrNop(logger),
	}
}

// RunWithAccountRecovery runs command. When a device-owner assignment fails
// because of configured accounts, the account apps are disabled, the command
// is retried once and every disabled package is re-enabled before returning,
// whatever the retry did.
func (o *Orchestrator) RunWithAccountRecovery(ctx context.Context, command string) (string, error) {
	output, err := o.shell.ExecuteShellCommand(ctx, command)
	if err != nil {
		return "", err
	}

	if !IsDeviceOwnerCommand(command) || IsSuccess(output) {
		return output, nil
	}

	o.logger.Debug("Device owner command failed: %s", strings.TrimSpace(output))
	if !mentionsAccounts(output) && !o.inspector.DeviceHasAccounts(ctx) {
		return output, errors.NewCommandError(command, output)
	}

	o.logger.Info("Accounts detected, temporarily disabling account apps")
	disabled := o.inspector.DisableAccountApps(ctx)
	o.logger.Info("Disabled %d package(s), retrying command", len(disabled))

	retried, err := o.retry(ctx, command, disabled)
	if err != nil {
		return "", err
	}
	if IsSuccess(retried) {
		o.logger.Info("Command succeeded after disabling account apps")
		return retried, nil
	}
	return retried, errors.NewAccountsError(command)
}

// retry re-runs command and re-enables disabled on every exit path. The
// re-enable pass ignores cancellation of ctx so an aborted caller never
// leaves packages disabled.
func (o *Orchestrator) retry(ctx context.Context, command string, disabled accounts.DisabledSet) (string, error) {
	defer func() {
		o.logger.Info("Re-enabling previously disabled apps")
		o.inspector.ReenablePackages(context.WithoutCancel(ctx), disabled)
	}()
	return o.shell.ExecuteShellCommand(ctx, command)
}
