package adb

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/pkg/apk"
)

const remoteTempDir = "/data/local/tmp/"

// InstallOptions contains install options
type InstallOptions struct {
	Replace          bool // Replace existing app
	Downgrade        bool // Allow version downgrade
	GrantPermissions bool // Grant all runtime permissions
}

// InstallResult represents the result of an installation
type InstallResult struct {
	Success      bool          `json:"success"`
	File         string        `json:"file"`
	DeviceID     string        `json:"device_id"`
	Duration     time.Duration `json:"duration"`
	Output       string        `json:"output,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Suggestions  []string      `json:"suggestions,omitempty"`
}

func (o InstallOptions) flags() string {
	var f []string
	if o.Replace {
		f = append(f, "-r")
	}
	if o.Downgrade {
		f = append(f, "-d")
	}
	if o.GrantPermissions {
		f = append(f, "-g")
	}
	return strings.Join(f, " ")
}

// InstallFromFile pushes the APK to a temporary location on the device,
// installs it with pm and removes the temporary copy.
func (c *Client) InstallFromFile(ctx context.Context, path string, opts InstallOptions) (*InstallResult, error) {
	start := c.now()
	result := &InstallResult{File: filepath.Base(path), DeviceID: c.serial}

	if !apk.IsAPKPath(path) {
		return result, errors.NewValidationError(errors.CodeInvalidAPK,
			fmt.Sprintf("%s is not an .apk file", filepath.Base(path)))
	}

	remote := fmt.Sprintf("%s%d_%s", remoteTempDir, start.UnixMilli(), filepath.Base(path))
	c.logger.Info("Pushing %s to %s", filepath.Base(path), remote)
	if err := c.PushFile(ctx, path, remote); err != nil {
		return result, err
	}
	defer func() {
		if _, err := c.ExecuteShellCommand(context.WithoutCancel(ctx), fmt.Sprintf(`rm "%s"`, remote)); err != nil {
			c.logger.Warn("Failed to remove %s: %v", remote, err)
		}
	}()

	command := "pm install"
	if flags := opts.flags(); flags != "" {
		command += " " + flags
	}
	command += fmt.Sprintf(` "%s"`, remote)

	out, err := c.ExecuteShellCommand(ctx, command)
	result.Duration = c.now().Sub(start)
	if err != nil {
		return result, err
	}
	result.Output = strings.TrimSpace(out)

	if strings.Contains(out, "Success") {
		result.Success = true
		return result, nil
	}

	result.ErrorCode, result.ErrorMessage, result.Suggestions = ParseInstallError(out)
	return result, errors.NewInstallError(result.ErrorCode, result.ErrorMessage).
		WithContext("file", result.File).
		WithContext("device", c.serial).
		WithSuggestions(result.Suggestions)
}

type installFailure struct {
	code        string
	message     string
	suggestions []string
}

// Known pm install failures, checked in order.
var installFailures = []struct {
	pattern string
	installFailure
}{
	{"INSTALL_FAILED_ALREADY_EXISTS", installFailure{"ALREADY_EXISTS", "App already installed", []string{
		"Use --replace flag to reinstall",
		"Uninstall the existing app first",
	}}},
	{"INSTALL_FAILED_VERSION_DOWNGRADE", installFailure{"VERSION_DOWNGRADE", "Cannot downgrade app version", []string{
		"Use --downgrade flag to force downgrade",
		"Uninstall the existing app first",
	}}},
	{"INSTALL_FAILED_INSUFFICIENT_STORAGE", installFailure{"INSUFFICIENT_STORAGE", "Not enough storage space on device", []string{
		"Free up storage space on the device",
		"Clear app caches and data",
	}}},
	{"INSTALL_FAILED_DUPLICATE_PACKAGE", installFailure{"DUPLICATE_PACKAGE", "Package already exists", nil}},
	{"INSTALL_FAILED_NO_SHARED_USER", installFailure{"NO_SHARED_USER", "Shared user does not exist", nil}},
	{"INSTALL_FAILED_UPDATE_INCOMPATIBLE", installFailure{"UPDATE_INCOMPATIBLE", "Package signatures do not match", []string{
		"Uninstall the existing app first",
	}}},
	{"INSTALL_FAILED_SHARED_USER_INCOMPATIBLE", installFailure{"SHARED_USER_INCOMPATIBLE", "Shared user signatures do not match", nil}},
	{"INSTALL_FAILED_MISSING_SHARED_LIBRARY", installFailure{"MISSING_LIBRARY", "Required shared library not found", []string{
		"Check device compatibility",
	}}},
	{"INSTALL_FAILED_CPU_ABI_INCOMPATIBLE", installFailure{"CPU_ABI_INCOMPATIBLE", "App not compatible with device CPU", nil}},
	{"INSTALL_FAILED_NO_MATCHING_ABIS", installFailure{"NO_MATCHING_ABIS", "APK architecture not compatible with device", []string{
		"Download APK for correct architecture (ARM, x86, etc.)",
		"Use universal APK if available",
	}}},
	{"INSTALL_FAILED_OLDER_SDK", installFailure{"OLDER_SDK", "App requires newer Android version", nil}},
	{"INSTALL_FAILED_NEWER_SDK", installFailure{"NEWER_SDK", "App requires older Android version", nil}},
	{"INSTALL_FAILED_TEST_ONLY", installFailure{"TEST_ONLY", "App is marked as test-only", nil}},
	{"INSTALL_FAILED_INVALID_APK", installFailure{"INVALID_APK", "APK file is invalid or corrupted", []string{
		"Re-download the APK file",
		"Verify APK file integrity",
	}}},
	{"INSTALL_FAILED_CONFLICTING_PROVIDER", installFailure{"CONFLICTING_PROVIDER", "Conflicting content provider", nil}},
	{"INSTALL_FAILED_DEXOPT", installFailure{"DEXOPT", "Failed to optimize dex file", nil}},
	{"INSTALL_FAILED_CONTAINER_ERROR", installFailure{"CONTAINER_ERROR", "Secure container mount error", nil}},
	{"INSTALL_FAILED_INVALID_INSTALL_LOCATION", installFailure{"INVALID_INSTALL_LOCATION", "Invalid installation location", nil}},
	{"INSTALL_FAILED_MEDIA_UNAVAILABLE", installFailure{"MEDIA_UNAVAILABLE", "External media is not available", nil}},
	{"INSTALL_FAILED_INTERNAL_ERROR", installFailure{"INTERNAL_ERROR", "Internal system error", nil}},
	{"INSTALL_FAILED_USER_RESTRICTED", installFailure{"USER_RESTRICTED", "User is restricted from installing apps", []string{
		"Allow USB installs in developer options",
	}}},
	{"INSTALL_FAILED_DUPLICATE_PERMISSION", installFailure{"DUPLICATE_PERMISSION", "Duplicate custom permission", nil}},
}

var installFailedRe = regexp.MustCompile(`INSTALL_FAILED_([A-Z_]+)`)

// ParseInstallError maps pm install output to an error code, a friendly
// message and suggestions.
func ParseInstallError(output string) (string, string, []string) {
	upper := strings.ToUpper(output)

	for _, f := range installFailures {
		if strings.Contains(upper, f.pattern) {
			return f.code, f.message, f.suggestions
		}
	}

	if m := installFailedRe.FindStringSubmatch(upper); m != nil {
		return m[1], fmt.Sprintf("Installation failed: %s", m[1]), []string{
			"Check device logs for more details",
			"Verify APK compatibility with device",
		}
	}

	return "UNKNOWN", fmt.Sprintf("Unknown installation error: %s", strings.TrimSpace(output)), []string{
		"Check ADB connection",
		"Verify APK file is valid",
	}
}
