package provision

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/huanfeng/ownerkit/pkg/utils"
)

// Installer installs an APK file on one device.
type Installer interface {
	InstallFromFile(ctx context.Context, path string, opts adb.InstallOptions) (*adb.InstallResult, error)
}

// CommandRunner runs one post-install command.
type CommandRunner interface {
	RunWithAccountRecovery(ctx context.Context, command string) (string, error)
}

const (
	DefaultRegisterDelay = 2 * time.Second
	DefaultOwnerDelay    = 3 * time.Second
	DefaultCommandPause  = 500 * time.Millisecond
)

// Delays are the pauses around post-install commands.
type Delays struct {
	// Register is the wait after install before the first command.
	Register time.Duration
	// Owner is the extra wait before device-owner and device-admin commands.
	Owner time.Duration
	// Pause is the wait after each command.
	Pause time.Duration
}

// DefaultDelays returns the stock pauses.
func DefaultDelays() Delays {
	return Delays{
		Register: DefaultRegisterDelay,
		Owner:    DefaultOwnerDelay,
		Pause:    DefaultCommandPause,
	}
}

// CommandResult is the outcome of one post-install command.
type CommandResult struct {
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// EntryResult is the outcome of installing one kit entry.
type EntryResult struct {
	Entry    Entry              `json:"entry"`
	Install  *adb.InstallResult `json:"install,omitempty"`
	Commands []CommandResult    `json:"commands,omitempty"`
	Error    string             `json:"error,omitempty"`
	Err      error              `json:"-"`
}

// Succeeded reports whether the APK was installed. Command failures do not
// count against it.
func (r *EntryResult) Succeeded() bool {
	return r.Err == nil
}

// FailedCommands returns the commands that returned an error.
func (r *EntryResult) FailedCommands() []CommandResult {
	var failed []CommandResult
	for _, c := range r.Commands {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// KitResult collects per-entry results for a kit install.
type KitResult struct {
	Kit      string         `json:"kit"`
	Device   string         `json:"device,omitempty"`
	Entries  []*EntryResult `json:"entries"`
	Duration time.Duration  `json:"duration"`
}

// Succeeded counts installed entries.
func (k *KitResult) Succeeded() int {
	n := 0
	for _, e := range k.Entries {
		if e.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts entries that did not install.
func (k *KitResult) Failed() int {
	return len(k.Entries) - k.Succeeded()
}

// Runner installs kit entries and runs their post-install commands on one
// device.
type Runner struct {
	installer Installer
	commands  CommandRunner
	logger    utils.Logger
	opts      adb.InstallOptions
	delays    Delays
	device    string
	progress  io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger utils.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInstallOptions sets the pm install flags.
func WithInstallOptions(opts adb.InstallOptions) RunnerOption {
	return func(r *Runner) {
		r.opts = opts
	}
}

// WithDelays overrides the command pauses.
func WithDelays(d Delays) RunnerOption {
	return func(r *Runner) {
		r.delays = d
	}
}

// WithDevice labels results with a device serial.
func WithDevice(serial string) RunnerOption {
	return func(r *Runner) {
		r.device = serial
	}
}

// WithProgress renders a progress bar for kit installs to w.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progress = w
	}
}

// NewRunner creates a Runner.
func NewRunner(installer Installer, commands CommandRunner, opts ...RunnerOption) *Runner {
	r := &Runner{
		installer: installer,
		commands:  commands,
		delays:    DefaultDelays(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// InstallEntry installs one APK and then runs its post-install commands.
// Command failures are recorded and logged but never fail the entry.
func (r *Runner) InstallEntry(ctx context.Context, entry Entry) *EntryResult {
	result := &EntryResult{Entry: entry}

	r.logger.Info("Installing %s", entry.Name)
	install, err := r.installer.InstallFromFile(ctx, entry.Path, r.opts)
	result.Install = install
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		r.logger.Error("Failed to install %s: %v", entry.Name, err)
		return result
	}
	r.logger.Info("Installed %s", entry.Name)

	if len(entry.Commands) == 0 {
		return result
	}

	r.logger.Info("Executing post-install commands for %s", entry.Name)
	r.logger.Info("Waiting for app components to register...")
	if err := wait(ctx, r.delays.Register); err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	result.Commands, err = r.RunCommands(ctx, entry.Commands)
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if failed := len(result.FailedCommands()); failed > 0 {
		r.logger.Warn("Post-install setup for %s finished with %d failed command(s)", entry.Name, failed)
	} else {
		r.logger.Info("Post-install setup completed for %s", entry.Name)
	}
	return result
}

// RunCommands runs commands in order through the account-recovery
// orchestrator. The returned error is only set when ctx ends.
func (r *Runner) RunCommands(ctx context.Context, commands []string) ([]CommandResult, error) {
	var results []CommandResult
	for _, command := range commands {
		command = strings.TrimSpace(command)
		if command == "" {
			continue
		}

		if IsDeviceAdminCommand(command) {
			r.logger.Info("Device admin command detected - waiting for component registration...")
			if err := wait(ctx, r.delays.Owner); err != nil {
				return results, err
			}
		}

		r.logger.Info("$ %s", command)
		out, err := r.commands.RunWithAccountRecovery(ctx, command)
		res := CommandResult{Command: command, Output: strings.TrimSpace(out), Err: err}
		if err != nil {
			res.Error = err.Error()
			r.logger.Warn("Command failed: %s - %v", command, err)
		} else if res.Output != "" {
			r.logger.Info("%s", res.Output)
		}
		results = append(results, res)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		if err := wait(ctx, r.delays.Pause); err != nil {
			return results, err
		}
	}
	return results, nil
}

// InstallKit installs every entry in order. A failed entry does not stop
// the kit; a cancelled context does.
func (r *Runner) InstallKit(ctx context.Context, kit *Kit) (*KitResult, error) {
	start := time.Now()
	result := &KitResult{Kit: kit.Name, Device: r.device}

	var bar *utils.ProgressBar
	if r.progress != nil {
		bar = utils.NewProgressBarTo(r.progress, int64(len(kit.Entries)), kit.Name)
	}

	for i, entry := range kit.Entries {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if bar != nil {
			bar.SetDescription(fmt.Sprintf("%s: %s", kit.Name, entry.Name))
		}
		result.Entries = append(result.Entries, r.InstallEntry(ctx, entry))
		if bar != nil {
			bar.Update(int64(i + 1))
		}
	}
	if bar != nil {
		bar.Finish()
	}

	result.Duration = time.Since(start)
	r.logger.Info("Kit %s: %d installed, %d failed", kit.Name, result.Succeeded(), result.Failed())
	return result, ctx.Err()
}

// wait sleeps for d or until ctx ends.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
