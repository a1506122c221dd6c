//go:build !windows

package i18n

// Unix locales come from LC_* and LANG, which selectLanguage already reads.
func getPlatformLocales() []string {
	return nil
}
