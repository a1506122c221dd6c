// Package i18n localises CLI text. Messages live in embedded TOML files.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// EnvLang overrides the system locale.
const EnvLang = "OWNERKIT_LANG"

var (
	mu              sync.RWMutex
	localizer       *goi18n.Localizer
	currentLanguage = language.English

	supported = []language.Tag{
		language.English,
		language.SimplifiedChinese,
	}
	matcher = language.NewMatcher(supported)
)

//go:embed locales/*.toml
var localeFS embed.FS

// Init loads the message bundle and picks a language from, in order:
// langOverride (--lang), OWNERKIT_LANG, LC_ALL, LC_MESSAGES, LANG and the
// platform UI language. English is the fallback.
func Init(langOverride string) error {
	b := goi18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return fmt.Errorf("load locales: %s: %w", e.Name(), err)
		}
	}

	chosen := selectLanguage(langOverride)

	mu.Lock()
	defer mu.Unlock()
	localizer = goi18n.NewLocalizer(b, chosen.String(), language.English.String())
	currentLanguage = chosen
	return nil
}

// T translates a message by ID with optional template data. Unknown IDs
// come back unchanged.
func T(id string, data ...map[string]interface{}) string {
	mu.RLock()
	loc := localizer
	mu.RUnlock()

	if loc == nil {
		if err := Init(""); err != nil {
			fmt.Fprintf(os.Stderr, "i18n init failed: %v\n", err)
			return id
		}
		mu.RLock()
		loc = localizer
		mu.RUnlock()
	}

	var templateData map[string]interface{}
	if len(data) > 0 {
		templateData = data[0]
	}

	msg, err := loc.Localize(&goi18n.LocalizeConfig{
		MessageID:      id,
		TemplateData:   templateData,
		PluralCount:    pluralCount(templateData),
		DefaultMessage: &goi18n.Message{ID: id, Other: id},
	})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// CurrentLanguage returns the chosen language tag.
func CurrentLanguage() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	return currentLanguage
}

func selectLanguage(langOverride string) language.Tag {
	var candidates []string
	if v := strings.TrimSpace(langOverride); v != "" {
		candidates = append(candidates, v)
	}
	for _, key := range []string{EnvLang, "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		candidates = getPlatformLocales()
	}

	var tags []language.Tag
	for _, cand := range candidates {
		if tag, ok := parseLocale(cand); ok {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return language.English
	}

	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supported[idx]
}

// parseLocale accepts BCP 47 tags and POSIX locales such as zh_CN.UTF-8.
// "C" and "POSIX" carry no language.
func parseLocale(s string) (language.Tag, bool) {
	clean := strings.TrimSpace(s)
	if i := strings.IndexAny(clean, ".@"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.ReplaceAll(clean, "_", "-")
	if clean == "" || strings.EqualFold(clean, "C") || strings.EqualFold(clean, "POSIX") {
		return language.Und, false
	}

	tag, err := language.Parse(clean)
	if err != nil {
		switch lower := strings.ToLower(clean); {
		case strings.HasPrefix(lower, "zh"):
			return language.SimplifiedChinese, true
		case strings.HasPrefix(lower, "en"):
			return language.English, true
		}
		return language.Und, false
	}
	return tag, true
}

// pluralCount picks the plural form from the Count template field.
func pluralCount(data map[string]interface{}) interface{} {
	for _, key := range []string{"count", "Count"} {
		if val, ok := data[key]; ok {
			return val
		}
	}
	return nil
}
