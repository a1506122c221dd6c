package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvLang, "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(key, "")
	}
}

func TestParseLocale(t *testing.T) {
	cases := []struct {
		in   string
		want language.Tag
		ok   bool
	}{
		{"zh_CN.UTF-8", language.Make("zh-CN"), true},
		{"en_US@euro", language.Make("en-US"), true},
		{"zh-Hans", language.SimplifiedChinese, true},
		{"C", language.Und, false},
		{"POSIX", language.Und, false},
		{"", language.Und, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := parseLocale(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestSelectLanguage(t *testing.T) {
	clearLocaleEnv(t)
	assert.Equal(t, language.English, selectLanguage("en"))
	assert.Equal(t, language.SimplifiedChinese, selectLanguage("zh"))

	t.Setenv("LANG", "zh_CN.UTF-8")
	assert.Equal(t, language.SimplifiedChinese, selectLanguage(""))
	assert.Equal(t, language.English, selectLanguage("en"), "flag wins over environment")

	t.Setenv(EnvLang, "en")
	assert.Equal(t, language.English, selectLanguage(""))
}

func TestSelectLanguageUnsupportedFallsBackToEnglish(t *testing.T) {
	clearLocaleEnv(t)
	t.Setenv("LANG", "C")
	assert.Equal(t, language.English, selectLanguage("tlh"))
}

func TestTranslate(t *testing.T) {
	clearLocaleEnv(t)
	t.Cleanup(func() { _ = Init("en") })

	require.NoError(t, Init("en"))
	assert.Equal(t, language.English, CurrentLanguage())
	assert.Equal(t, "No online devices found", T("device.noneOnline"))
	assert.Equal(t, "disabled 1 package", T("accounts.disabled", map[string]interface{}{"Count": 1}))
	assert.Equal(t, "disabled 14 packages", T("accounts.disabled", map[string]interface{}{"Count": 14}))
	assert.Equal(t, "Configuration written to /tmp/o.yaml", T("config.written", map[string]interface{}{"Path": "/tmp/o.yaml"}))
	assert.Equal(t, "no.such.message", T("no.such.message"))

	require.NoError(t, Init("zh"))
	assert.Equal(t, language.SimplifiedChinese, CurrentLanguage())
	assert.Equal(t, "没有在线的设备", T("device.noneOnline"))
	assert.Equal(t, "已停用 3 个应用", T("accounts.disabled", map[string]interface{}{"Count": 3}))
}
