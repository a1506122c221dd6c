package cmd

import (
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/spf13/cobra"
)

// localizedCommands maps message prefixes to commands. Each prefix has a
// ".short" and a ".long" message.
func localizedCommands() map[string]*cobra.Command {
	return map[string]*cobra.Command{
		"cmd.root":            rootCmd,
		"cmd.devices":         devicesCmd,
		"cmd.devicesInfo":     devicesInfoCmd,
		"cmd.install":         installCmd,
		"cmd.kit":             kitCmd,
		"cmd.owner":           ownerCmd,
		"cmd.shell":           shellCmd,
		"cmd.accounts":        accountsCmd,
		"cmd.accountsCheck":   accountsCheckCmd,
		"cmd.accountsDisable": accountsDisableCmd,
		"cmd.accountsEnable":  accountsEnableCmd,
		"cmd.inspect":         inspectCmd,
		"cmd.doctor":          doctorCmd,
		"cmd.config":          configCmd,
		"cmd.configInit":      configInitCmd,
		"cmd.version":         versionCmd,
	}
}

// persistentFlagMessages maps root flags to their usage message IDs.
var persistentFlagMessages = map[string]string{
	"config":     "flags.config",
	"lang":       "flags.lang",
	"verbose":    "flags.verbose",
	"debug":      "flags.debug",
	"log-file":   "flags.logFile",
	"log-format": "flags.logFormat",
}

// applyCommandLocalization updates command and flag descriptions after i18n is initialized.
func applyCommandLocalization() {
	for prefix, cmd := range localizedCommands() {
		setIfTranslated(&cmd.Short, prefix+".short")
		setIfTranslated(&cmd.Long, prefix+".long")
	}

	for name, id := range persistentFlagMessages {
		if flag := rootCmd.PersistentFlags().Lookup(name); flag != nil {
			setIfTranslated(&flag.Usage, id)
		}
	}
}

// setIfTranslated keeps the built-in English text when id has no message.
func setIfTranslated(dst *string, id string) {
	if msg := i18n.T(id); msg != id {
		*dst = msg
	}
}
