package adb

import (
	"regexp"
	"strings"
)

var (
	componentTokenRe = regexp.MustCompile(`([\w.]+/[\w.]+)`)
	quotedTokenRe    = regexp.MustCompile(`'[^']*'|"[^"]*"`)
)

// NormalizeCommand single-quotes component names in dpm commands so the
// device shell does not mangle them. The component of set-device-owner is
// stripped of existing quotes and re-quoted; other dpm commands get every
// unquoted pkg/Class token quoted.
func NormalizeCommand(command string) string {
	const ownerCmd = "dpm set-device-owner"

	if idx := strings.Index(command, ownerCmd); idx >= 0 {
		head := command[:idx+len(ownerCmd)]
		fields := strings.Fields(command[idx+len(ownerCmd):])
		for i, f := range fields {
			if strings.HasPrefix(f, "-") {
				continue
			}
			bare := strings.Trim(f, `"'`)
			if !strings.Contains(bare, "/") {
				continue
			}
			fields[i] = "'" + bare + "'"
			return head + " " + strings.Join(fields, " ")
		}
		return command
	}

	if strings.Contains(command, "dpm ") && strings.Contains(command, "/") {
		return quoteOutside(command)
	}
	return command
}

// quoteOutside quotes component tokens that are not already inside quotes.
func quoteOutside(command string) string {
	var b strings.Builder
	last := 0
	for _, loc := range quotedTokenRe.FindAllStringIndex(command, -1) {
		b.WriteString(componentTokenRe.ReplaceAllString(command[last:loc[0]], "'$1'"))
		b.WriteString(command[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(componentTokenRe.ReplaceAllString(command[last:], "'$1'"))
	return b.String()
}
