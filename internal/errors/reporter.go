package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// ErrorReport is the JSON document written for a failed command
type ErrorReport struct {
	Timestamp   time.Time            `json:"timestamp"`
	Error       *OwnerKitError       `json:"error"`
	Environment *EnvironmentInfo     `json:"environment"`
	Context     *OperationContext    `json:"context"`
	Suggestions []RecoverySuggestion `json:"suggestions"`
}

// EnvironmentInfo describes the host the command ran on
type EnvironmentInfo struct {
	OS              string `json:"os"`
	Architecture    string `json:"architecture"`
	GoVersion       string `json:"go_version"`
	OwnerKitVersion string `json:"ownerkit_version"`
	ADBPath         string `json:"adb_path"`
	ADBVersion      string `json:"adb_version,omitempty"`
	ConfigPath      string `json:"config_path,omitempty"`
}

// OperationContext describes the command that failed
type OperationContext struct {
	Command   string        `json:"command"`
	Arguments []string      `json:"arguments"`
	Devices   []string      `json:"devices,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// RecoverySuggestion represents a suggested recovery action
type RecoverySuggestion struct {
	Priority    int    `json:"priority"` // 1 = high, 2 = medium, 3 = low
	Action      string `json:"action"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description"`
}

// ErrorReporter builds and stores error reports
type ErrorReporter struct {
	reportDir string
	now       func() time.Time
}

// NewErrorReporter creates a reporter writing into reportDir
func NewErrorReporter(reportDir string) *ErrorReporter {
	return &ErrorReporter{reportDir: reportDir, now: time.Now}
}

// GenerateReport assembles a report for err. env may be nil.
func (er *ErrorReporter) GenerateReport(err error, op *OperationContext, env *EnvironmentInfo) *ErrorReport {
	okErr := AsOwnerKitError(err)
	if env == nil {
		env = &EnvironmentInfo{}
	}
	env.OS = runtime.GOOS
	env.Architecture = runtime.GOARCH
	env.GoVersion = runtime.Version()

	return &ErrorReport{
		Timestamp:   er.now(),
		Error:       okErr,
		Environment: env,
		Context:     op,
		Suggestions: recoverySuggestions(okErr),
	}
}

// SaveReport writes report as indented JSON and returns the file path
func (er *ErrorReporter) SaveReport(report *ErrorReport) (string, error) {
	if err := os.MkdirAll(er.reportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	code := "UNKNOWN"
	if report.Error != nil && report.Error.Code != "" {
		code = report.Error.Code
	}
	filename := fmt.Sprintf("error_report_%s_%s.json", report.Timestamp.Format("20060102_150405"), code)
	path := filepath.Join(er.reportDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func recoverySuggestions(err *OwnerKitError) []RecoverySuggestion {
	var suggestions []RecoverySuggestion
	if err == nil {
		return suggestions
	}

	switch err.Type {
	case ErrorTypeAccounts:
		suggestions = append(suggestions,
			RecoverySuggestion{
				Priority:    1,
				Action:      "Remove every account from the device",
				Description: AccountsRemediation,
			},
			RecoverySuggestion{
				Priority:    2,
				Action:      "Check which accounts are still reported",
				Command:     "ownerkit accounts check",
				Description: "Accounts owned by apps that were not disabled keep blocking the device owner",
			})
	case ErrorTypeDevice:
		suggestions = append(suggestions,
			RecoverySuggestion{
				Priority:    1,
				Action:      "Check the device connection",
				Command:     "ownerkit devices",
				Description: "The device must be listed as online and authorized",
			},
			RecoverySuggestion{
				Priority:    2,
				Action:      "Restart the adb server",
				Command:     "adb kill-server && adb start-server",
				Description: "A stale adb server often reports devices as offline",
			})
	case ErrorTypeTimeout:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Increase the adb timeout",
			Description: "Raise adb.command_timeout in the configuration file",
		})
	case ErrorTypeConfiguration:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Diagnose the setup",
			Command:     "ownerkit doctor",
			Description: "Checks that adb can be run and lists the connected devices",
		})
	case ErrorTypeInstall:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Action:      "Inspect the APK",
			Command:     "ownerkit inspect <apk>",
			Description: "Compare its SDK levels and ABIs with the device",
		})
	case ErrorTypeCommand:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    2,
			Action:      "Run the command by hand",
			Command:     "ownerkit shell <command>",
			Description: "The device output usually names the cause",
		})
	}

	for i, s := range err.Suggestions {
		suggestions = append(suggestions, RecoverySuggestion{Priority: 3 + i, Action: s})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	return suggestions
}
