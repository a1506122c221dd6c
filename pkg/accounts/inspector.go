// Package accounts detects user accounts on a device and temporarily
// disables the apps that own them.
package accounts

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/pkg/utils"
)

// Shell runs one command on the connected device and returns its text output.
type Shell interface {
	ExecuteShellCommand(ctx context.Context, command string) (string, error)
}

// DisabledSet holds the packages a disable pass actually disabled, in the
// order they were disabled.
type DisabledSet []string

// Contains reports whether pkg is in the set.
func (d DisabledSet) Contains(pkg string) bool {
	for _, p := range d {
		if p == pkg {
			return true
		}
	}
	return false
}

// pm prints these instead of failing the shell when a state change is refused.
var pmFailureRe = regexp.MustCompile(`(?i)exception|error:|failure|unknown package`)

const defaultSettleDelay = time.Second

// Inspector answers account questions from shell output alone.
type Inspector struct {
	shell       Shell
	logger      utils.Logger
	user        int
	settleDelay time.Duration
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger used for per-package diagnostics.
func WithLogger(logger utils.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithUser selects the Android user whose packages are disabled.
func WithUser(user int) Option {
	return func(i *Inspector) {
		i.user = user
	}
}

// WithSettleDelay sets the pause after a non-empty disable pass.
func WithSettleDelay(d time.Duration) Option {
	return func(i *Inspector) {
		i.settleDelay = d
	}
}

// NewInspector creates an Inspector on top of a device shell.
func NewInspector(shell Shell, opts ...Option) *Inspector {
	i := &Inspector{
		shell:       shell,
		settleDelay: defaultSettleDelay,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = utils.OrNop(i.logger)
	if i.settleDelay < 0 {
		i.settleDelay = 0
	}
	return i
}

// DeviceHasAccounts reports whether the probe output shows configured
// accounts. Probe failures count as empty output; false means "no
// evidence", not confirmed absence.
func (i *Inspector) DeviceHasAccounts(ctx context.Context) bool {
	combined := i.collect(ctx, presenceProbes)
	has := HasAccountEvidence(combined)
	i.logger.Debug("Account probe: %d bytes of output, accounts=%t", len(combined), has)
	return has
}

// DisableAccountApps disables, for the configured user, every package that
// may own an account and returns the ones that were actually disabled.
func (i *Inspector) DisableAccountApps(ctx context.Context) DisabledSet {
	candidates := newPackageSet()
	for _, pkg := range manualPackages {
		candidates.add(pkg)
	}
	collectCandidates(candidates, i.collect(ctx, discoveryProbes))

	var disabled DisabledSet
	for _, pkg := range candidates.list() {
		if ctx.Err() != nil {
			i.logger.Warn("Disable pass interrupted: %v", ctx.Err())
			break
		}
		if err := i.setEnabled(ctx, pkg, false); err != nil {
			i.logger.Debug("Failed to disable %s: %v", pkg, err)
			continue
		}
		disabled = append(disabled, pkg)
		i.logger.Info("Disabled %s", pkg)
	}

	if len(disabled) > 0 && i.settleDelay > 0 {
		timer := time.NewTimer(i.settleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	return disabled
}

// ReenablePackages re-enables every package in the set. Failures are logged
// and the pass continues; it never fails.
func (i *Inspector) ReenablePackages(ctx context.Context, packages DisabledSet) {
	if len(packages) == 0 {
		return
	}
	i.logger.Debug("Re-enabling %d package(s): %s", len(packages), strings.Join(packages, ", "))
	for _, pkg := range packages {
		if err := i.setEnabled(ctx, pkg, true); err != nil {
			i.logger.Warn("Failed to re-enable %s: %v", pkg, err)
			continue
		}
		i.logger.Info("Re-enabled %s", pkg)
	}
}

func (i *Inspector) setEnabled(ctx context.Context, pkg string, enabled bool) error {
	verb := "disable-user"
	if enabled {
		verb = "enable"
	}
	out, err := i.shell.ExecuteShellCommand(ctx, fmt.Sprintf("pm %s --user %d %s", verb, i.user, pkg))
	if err != nil {
		return err
	}
	if pmFailureRe.MatchString(out) {
		return fmt.Errorf("pm %s: %s", verb, strings.TrimSpace(out))
	}
	return nil
}

// collect runs each probe independently and joins the non-blank outputs
// with a blank line.
func (i *Inspector) collect(ctx context.Context, probes []string) string {
	var outputs []string
	for _, cmd := range probes {
		out, err := i.shell.ExecuteShellCommand(ctx, cmd)
		if err != nil {
			i.logger.Debug("Probe %q failed: %v", cmd, err)
			continue
		}
		if strings.TrimSpace(out) != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.TrimSpace(strings.Join(outputs, "\n\n"))
}
