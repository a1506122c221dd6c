package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/huanfeng/ownerkit/internal/config"
	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/spf13/cobra"
)

var (
	configOutput string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented configuration template",
	Long:  `Write a configuration template with every key and its default value.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configOutput
		if path == "" {
			dir, err := config.DefaultDir()
			if err != nil {
				return errors.WrapError(err, errors.ErrorTypeConfiguration, "CONFIG_DIR", i18n.T("config.noHome"))
			}
			path = filepath.Join(dir, "ownerkit.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return errors.NewValidationError("CONFIG_EXISTS", i18n.T("config.exists", map[string]interface{}{"Path": path})).
				WithSuggestion(i18n.T("config.existsHint"))
		}

		if err := config.SaveTemplate(path); err != nil {
			return errors.WrapError(err, errors.ErrorTypeConfiguration, "CONFIG_WRITE", i18n.T("config.writeFailed"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", i18n.T("config.written", map[string]interface{}{"Path": path}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", "", "path to write (default ~/.config/ownerkit/ownerkit.yaml)")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
}
