package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/huanfeng/ownerkit/internal/config"
	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/internal/version"
	"github.com/huanfeng/ownerkit/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	langFlag  string
	verbose   bool
	debug     bool
	logFile   string
	logFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ownerkit",
	Short: "Install Android apps and assign device owners over adb",
	Long: `ownerkit installs APKs on devices connected through adb, runs their
post-install commands and assigns device-owner apps. When Android refuses a
device owner because accounts are configured, ownerkit disables the account
apps, retries once and restores them afterwards.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = utils.GetGlobalLogger().Sync()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := i18n.Init(langFromArgs(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	applyCommandLocalization()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	start := time.Now()
	ran, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		if debug {
			saveErrorReport(ran, err, time.Since(start))
		}
		os.Exit(1)
	}
}

// saveErrorReport writes a JSON report under the config directory.
func saveErrorReport(ran *cobra.Command, err error, elapsed time.Duration) {
	dir, dirErr := config.DefaultDir()
	if dirErr != nil {
		return
	}
	c := currentConfig()
	op := &errors.OperationContext{
		Command:   rootCmd.Name(),
		Arguments: os.Args[1:],
		Devices:   parseDeviceList(targetDevices),
		Duration:  elapsed,
	}
	if ran != nil {
		op.Command = ran.CommandPath()
	}
	env := &errors.EnvironmentInfo{
		OwnerKitVersion: version.Short(),
		ADBPath:         c.ADB.Path,
		ConfigPath:      cfgFile,
	}

	reporter := errors.NewErrorReporter(filepath.Join(dir, "reports"))
	path, saveErr := reporter.SaveReport(reporter.GenerateReport(err, op, env))
	if saveErr != nil {
		utils.GetGlobalLogger().Warn("Failed to save error report: %v", saveErr)
		return
	}
	fmt.Fprintf(os.Stderr, "📝 %s\n", i18n.T("error.reportSaved", map[string]interface{}{"Path": path}))
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization cycle
	// (initRuntime -> applyCommandLocalization -> rootCmd).
	rootCmd.PersistentPreRunE = initRuntime

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ownerkit.yaml or ~/.config/ownerkit/ownerkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "interface language (en, zh)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// initRuntime loads configuration and sets up logging before any command runs.
func initRuntime(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeConfiguration, "CONFIG_LOAD_FAILED", i18n.T("error.configLoad")).
			WithSuggestion(i18n.T("error.configLoadHint"))
	}
	cfg = c

	if langFlag == "" && cfg.Lang != "" {
		if err := i18n.Init(cfg.Lang); err == nil {
			applyCommandLocalization()
		}
	}

	if err := utils.InitGlobalLogger(loggerConfig(cfg)); err != nil {
		return errors.WrapError(err, errors.ErrorTypeConfiguration, "LOGGER_INIT_FAILED", i18n.T("error.loggerInit"))
	}
	utils.GetGlobalLogger().Debug("Loaded configuration (adb=%s, workers=%d)", cfg.ADB.Path, cfg.Provision.Workers)
	return nil
}

func loggerConfig(c *config.Config) *utils.LoggerConfig {
	lc := utils.DefaultLoggerConfig()
	lc.Level = utils.ParseLogLevel(c.Log.Level)
	if verbose && lc.Level > utils.LogLevelInfo {
		lc.Level = utils.LogLevelInfo
	}
	if debug {
		lc.Level = utils.LogLevelDebug
	}

	format := c.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	lc.Format = utils.ParseLogFormat(format)
	lc.EnableColor = lc.Format == utils.LogFormatText

	lc.FilePath = c.Log.File
	if logFile != "" {
		lc.FilePath = logFile
	}
	return lc
}

// currentConfig returns the loaded configuration, or the defaults when a
// command runs without the root pre-run hook.
func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// langFromArgs finds --lang before cobra parses flags, so help text is
// already localised.
func langFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--lang="); ok {
			return v
		}
		if arg == "--lang" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func printError(w io.Writer, err error) {
	var okErr *errors.OwnerKitError
	if stderrors.As(err, &okErr) {
		fmt.Fprint(w, okErr.FormatDetailed())
		return
	}
	fmt.Fprintf(w, "%s %v\n", i18n.T("common.errorPrefix"), err)
}
