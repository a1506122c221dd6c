package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeConfiguration
	ErrorTypeDevice
	ErrorTypeCommand
	ErrorTypeAccounts
	ErrorTypeInstall
	ErrorTypeNotFound
	ErrorTypeTimeout
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeDevice:
		return "DEVICE"
	case ErrorTypeCommand:
		return "COMMAND"
	case ErrorTypeAccounts:
		return "ACCOUNTS"
	case ErrorTypeInstall:
		return "INSTALL"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Well-known error codes.
const (
	CodeCommandFailed   = "COMMAND_FAILED"
	CodeAccountsPresent = "ACCOUNTS_PRESENT"
	CodeShellFailed     = "SHELL_FAILED"
	CodeDeviceOffline   = "DEVICE_OFFLINE"
	CodeNoDevices       = "NO_DEVICES"
	CodeInvalidAPK      = "INVALID_APK"
)

// AccountsRemediation is the user-facing instruction attached to a device-owner
// assignment that keeps failing while accounts are configured.
const AccountsRemediation = "accounts found - please go into settings>accounts>remove all accounts - then reboot and try again."

// Sentinels for errors.Is comparisons. Matching is by Type and Code.
var (
	ErrAccountsPresent = &OwnerKitError{Type: ErrorTypeAccounts, Code: CodeAccountsPresent}
	ErrCommandFailed   = &OwnerKitError{Type: ErrorTypeCommand, Code: CodeCommandFailed}
	ErrShellFailed     = &OwnerKitError{Type: ErrorTypeDevice, Code: CodeShellFailed}
)

// OwnerKitError represents an error with context and suggestions
type OwnerKitError struct {
	Type        ErrorType         `json:"type"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"cause,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Stack       []string          `json:"stack,omitempty"`
	Retryable   bool              `json:"retryable"`
}

// Error implements the error interface
func (e *OwnerKitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *OwnerKitError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *OwnerKitError) Is(target error) bool {
	if t, ok := target.(*OwnerKitError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error
func (e *OwnerKitError) WithContext(key, value string) *OwnerKitError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *OwnerKitError) WithSuggestion(suggestion string) *OwnerKitError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *OwnerKitError) WithSuggestions(suggestions []string) *OwnerKitError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// SetRetryable marks the error as retryable or not
func (e *OwnerKitError) SetRetryable(retryable bool) *OwnerKitError {
	e.Retryable = retryable
	return e
}

// FormatDetailed returns a detailed error message with context and suggestions
func (e *OwnerKitError) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("❌ %s Error [%s]: %s\n", e.Type.String(), e.Code, e.Message))

	if len(e.Context) > 0 {
		builder.WriteString("\n📋 Context:\n")
		for key, value := range e.Context {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, value))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\n🔍 Underlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\n💡 Suggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   • %s\n", suggestion))
		}
	}

	if e.Retryable {
		builder.WriteString("\n🔄 This operation can be retried\n")
	}

	return builder.String()
}

// NewError creates a new OwnerKitError
func NewError(errorType ErrorType, code, message string) *OwnerKitError {
	return &OwnerKitError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// WrapError wraps an existing error with OwnerKitError
func WrapError(err error, errorType ErrorType, code, message string) *OwnerKitError {
	e := NewError(errorType, code, message)
	e.Cause = err
	return e
}

// captureStack captures the current stack trace
func captureStack() []string {
	var stack []string

	// Skip this function and the constructor
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		if strings.Contains(fn.Name(), "ownerkit") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}

	return stack
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeValidation, code, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeConfiguration, code, message).
		WithSuggestions([]string{
			"Check the configuration file syntax",
			"Run 'ownerkit config init' to regenerate configuration",
		})
}

// NewDeviceError creates a device error
func NewDeviceError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeDevice, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Check device connection",
			"Enable USB debugging",
			"Authorize this computer on the device",
			"Try reconnecting the device",
		})
}

// NewCommandError reports a shell command that ran but did not succeed.
// The raw device output is the message.
func NewCommandError(command, output string) *OwnerKitError {
	message := strings.TrimSpace(output)
	if message == "" {
		message = "Command failed"
	}
	return NewError(ErrorTypeCommand, CodeCommandFailed, message).
		WithContext("command", command)
}

// NewAccountsError reports a device-owner assignment blocked by accounts
// that survived the temporary disablement of account apps.
func NewAccountsError(command string) *OwnerKitError {
	return NewError(ErrorTypeAccounts, CodeAccountsPresent, AccountsRemediation).
		WithContext("command", command).
		WithSuggestions([]string{
			"Open Settings > Accounts on the device",
			"Remove every account listed there",
			"Reboot the device and run the command again",
		})
}

// NewInstallError creates a package installation error
func NewInstallError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeInstall, code, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeNotFound, code, message).
		WithSuggestions([]string{
			"Verify the resource exists",
			"Check the path or identifier",
		})
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(code, message string) *OwnerKitError {
	return NewError(ErrorTypeTimeout, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Increase adb.command_timeout in the configuration",
			"Check that the device is responsive",
		})
}

// AsOwnerKitError converts any error into an OwnerKitError.
func AsOwnerKitError(err error) *OwnerKitError {
	if err == nil {
		return nil
	}
	for e := err; e != nil; {
		if okErr, ok := e.(*OwnerKitError); ok {
			return okErr
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return WrapError(err, ErrorTypeUnknown, "UNKNOWN", err.Error())
}
