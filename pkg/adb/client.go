// Package adb drives Android devices through the adb command-line tool.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/pkg/utils"
)

const defaultCommandTimeout = 60 * time.Second

// adb prints these itself when it cannot reach the device; anything else on
// a non-zero exit came from the remote command.
var transportErrorRe = regexp.MustCompile(`(?m)^(?:adb: (?:error: )?|error: ).*(?:not found|no devices|offline|unauthorized|closed|more than one device|no emulators)`)

// Client runs adb against one device serial. An empty serial lets adb pick
// the only attached device.
type Client struct {
	path    string
	serial  string
	timeout time.Duration
	logger  utils.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSerial binds the client to a device serial.
func WithSerial(serial string) Option {
	return func(c *Client) {
		c.serial = serial
	}
}

// WithTimeout bounds every adb invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger for command tracing.
func WithLogger(logger utils.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the adb binary at path ("adb" when empty).
func NewClient(path string, opts ...Option) *Client {
	if path == "" {
		path = "adb"
	}
	c := &Client{
		path:    path,
		timeout: defaultCommandTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// ForDevice returns a copy of c bound to serial.
func (c *Client) ForDevice(serial string) *Client {
	clone := *c
	clone.serial = serial
	clone.logger = c.logger.WithField("device", serial)
	return &clone
}

// Serial returns the bound device serial.
func (c *Client) Serial() string {
	return c.serial
}

// Path returns the adb binary path.
func (c *Client) Path() string {
	return c.path
}

// ExecuteShellCommand runs command in the device shell and returns the
// combined output. A failing remote command is not an error; only a
// command that never reached the device is.
func (c *Client) ExecuteShellCommand(ctx context.Context, command string) (string, error) {
	processed := NormalizeCommand(command)
	if processed != command {
		c.logger.Debug("Rewrote command %q as %q", command, processed)
	}
	out, err := c.run(ctx, "shell", processed)
	if err != nil {
		return "", err
	}
	return out, nil
}

// PushFile copies a local file to remote on the device.
func (c *Client) PushFile(ctx context.Context, local, remote string) error {
	_, err := c.run(ctx, "push", local, remote)
	return err
}

// Uninstall removes a package from the device.
func (c *Client) Uninstall(ctx context.Context, pkg string) error {
	out, err := c.ExecuteShellCommand(ctx, "pm uninstall "+pkg)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Success") {
		return errors.NewInstallError("UNINSTALL_FAILED", strings.TrimSpace(out)).
			WithContext("package", pkg)
	}
	return nil
}

// ListPackages returns the installed package names.
func (c *Client) ListPackages(ctx context.Context) ([]string, error) {
	out, err := c.ExecuteShellCommand(ctx, "pm list packages")
	if err != nil {
		return nil, err
	}
	return parsePackageList(out), nil
}

// IsPackageInstalled reports whether pkg is installed.
func (c *Client) IsPackageInstalled(ctx context.Context, pkg string) (bool, error) {
	pkgs, err := c.ListPackages(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range pkgs {
		if p == pkg {
			return true, nil
		}
	}
	return false, nil
}

// PackageInfo describes an installed package.
type PackageInfo struct {
	Name             string `json:"name"`
	VersionName      string `json:"version_name"`
	VersionCode      string `json:"version_code"`
	FirstInstallTime string `json:"first_install_time"`
}

// PackageInfo reads version details from dumpsys.
func (c *Client) PackageInfo(ctx context.Context, pkg string) (*PackageInfo, error) {
	out, err := c.ExecuteShellCommand(ctx, "dumpsys package "+pkg)
	if err != nil {
		return nil, err
	}
	return parsePackageInfo(pkg, out), nil
}

// Version returns the first line of `adb version`, e.g.
// "Android Debug Bridge version 1.0.41".
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.unbound().run(ctx, "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line), nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	full := args
	if c.serial != "" {
		full = append([]string{"-s", c.serial}, args...)
	}

	cmd := exec.CommandContext(ctx, c.path, full...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.WaitDelay = time.Second

	c.logger.Debug("Running: %s %s", c.path, strings.Join(full, " "))
	runErr := cmd.Run()
	out := buf.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return "", errors.WrapError(ctxErr, errors.ErrorTypeTimeout, "ADB_TIMEOUT",
				fmt.Sprintf("adb %s timed out", args[0])).
				WithContext("device", c.serial)
		}
		return "", ctxErr
	}
	if runErr == nil {
		return out, nil
	}
	if _, ok := runErr.(*exec.ExitError); !ok {
		return "", errors.WrapError(runErr, errors.ErrorTypeConfiguration, "ADB_NOT_AVAILABLE",
			fmt.Sprintf("failed to run %s", c.path)).
			WithSuggestions([]string{
				"Install Android platform-tools",
				"Set adb.path in the configuration",
				"Run 'ownerkit doctor'",
			})
	}
	if msg := transportError(out); msg != "" {
		return "", errors.WrapError(runErr, errors.ErrorTypeDevice, deviceErrorCode(msg), msg).
			SetRetryable(true).
			WithContext("device", c.serial).
			WithSuggestions([]string{
				"Check device connection with 'ownerkit devices'",
				"Authorize this computer on the device",
			})
	}
	if args[0] != "shell" {
		return "", fmt.Errorf("adb %s failed: %s", args[0], strings.TrimSpace(out))
	}
	return out, nil
}

func transportError(out string) string {
	return strings.TrimSpace(transportErrorRe.FindString(out))
}

func deviceErrorCode(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no devices"), strings.Contains(lower, "no emulators"):
		return errors.CodeNoDevices
	case strings.Contains(lower, "not found"):
		return "DEVICE_NOT_FOUND"
	case strings.Contains(lower, "unauthorized"):
		return "DEVICE_UNAUTHORIZED"
	default:
		return errors.CodeDeviceOffline
	}
}

func parsePackageList(out string) []string {
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package:") {
			pkgs = append(pkgs, strings.TrimSpace(strings.TrimPrefix(line, "package:")))
		}
	}
	return pkgs
}

func parsePackageInfo(pkg, out string) *PackageInfo {
	info := &PackageInfo{
		Name:             pkg,
		VersionName:      "Unknown",
		VersionCode:      "Unknown",
		FirstInstallTime: "Unknown",
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "versionName="):
			info.VersionName = strings.TrimPrefix(line, "versionName=")
		case strings.HasPrefix(line, "versionCode="):
			if fields := strings.Fields(strings.TrimPrefix(line, "versionCode=")); len(fields) > 0 {
				if _, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
					info.VersionCode = fields[0]
				}
			}
		case strings.HasPrefix(line, "firstInstallTime="):
			info.FirstInstallTime = strings.TrimPrefix(line, "firstInstallTime=")
		}
	}
	return info
}
