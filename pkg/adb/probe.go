package adb

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/huanfeng/ownerkit/pkg/accounts"
)

var (
	suDeniedRe    = regexp.MustCompile(`(?i)not found|permission denied`)
	permDeniedRe  = regexp.MustCompile(`(?i)permission denied`)
	rootManagerRe = regexp.MustCompile(`(?i)com\.topjohnwu\.magisk|eu\.chainfire\.supersu`)
)

const android14SDK = 34

// IsDeviceRooted reports whether any root indicator is present: an su
// binary on the path, a root shell, or a root manager package. Probe
// failures count as no evidence.
func IsDeviceRooted(ctx context.Context, shell accounts.Shell) bool {
	if out, err := shell.ExecuteShellCommand(ctx, "which su"); err == nil {
		if strings.Contains(strings.TrimSpace(out), "/su") && !suDeniedRe.MatchString(out) {
			return true
		}
	}
	if out, err := shell.ExecuteShellCommand(ctx, "whoami"); err == nil {
		if strings.ToLower(strings.TrimSpace(out)) == "root" && !permDeniedRe.MatchString(out) {
			return true
		}
	}
	if out, err := shell.ExecuteShellCommand(ctx, "pm list packages"); err == nil {
		if rootManagerRe.MatchString(out) {
			return true
		}
	}
	return false
}

// IsAndroid14OrHigher reports whether the device SDK level is at least 34.
// An unreadable level counts as false.
func IsAndroid14OrHigher(ctx context.Context, shell accounts.Shell) bool {
	out, err := shell.ExecuteShellCommand(ctx, "getprop ro.build.version.sdk")
	if err != nil {
		return false
	}
	level, err := strconv.Atoi(strings.TrimSpace(out))
	return err == nil && level >= android14SDK
}
