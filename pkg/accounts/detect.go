package accounts

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	accountCountRe    = regexp.MustCompile(`accounts?\s*:\s*(\d+)`)
	accountObjectRe   = regexp.MustCompile(`account\s*\{?\s*name\s*=`)
	emailRe           = regexp.MustCompile(`(?i)@[a-z0-9._%+-]+(?:\.[a-z0-9._%+-]+)+`)
	vendorRe          = regexp.MustCompile(`(?i)com\.google|whatsapp|facebook|telegram|samsung|microsoft|work|exchange|corp`)
	accountLabelRe    = regexp.MustCompile(`accounts?:`)
	indentedSectionRe = regexp.MustCompile(`(?i)accounts?:[^\n]*\n[ \t]+\S+`)

	componentRe     = regexp.MustCompile(`ComponentInfo\{([^/}]+)/[^}]+\}`)
	packageNameRe   = regexp.MustCompile(`packageName=([a-zA-Z0-9_.]+)`)
	authenticatorRe = regexp.MustCompile(`AuthenticatorDescription \{([^}]+)\}`)
	blockTypeRe     = regexp.MustCompile(`type=([^,\s]+)`)
	blockPackageRe  = regexp.MustCompile(`packageName=([^,\s]+)`)
	accountTypeRe   = regexp.MustCompile(`type[=:\s]+([^,\s]+)`)

	validPackageRe = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// platformPackage is never disabled.
const platformPackage = "android"

// HasAccountEvidence applies the account detection rules to combined probe
// output. Rule order matters: earlier rules win even when later ones would
// disagree.
func HasAccountEvidence(out string) bool {
	out = strings.TrimSpace(out)
	if out == "" {
		return false
	}
	lower := strings.ToLower(out)

	if m := accountCountRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n > 0
		}
	}
	if accountObjectRe.MatchString(lower) {
		return true
	}
	if strings.Contains(lower, "type=") && strings.Contains(lower, "name=") {
		return true
	}
	if emailRe.MatchString(out) {
		return true
	}
	if vendorRe.MatchString(out) {
		return true
	}
	if strings.Contains(lower, "no accounts") {
		return false
	}
	if accountLabelRe.MatchString(out) && indentedSectionRe.MatchString(out) {
		return true
	}
	return false
}

// ExtractCandidates returns, in discovery order, the packages that probe
// output implicates as account owners.
func ExtractCandidates(out string) []string {
	set := newPackageSet()
	collectCandidates(set, out)
	return set.list()
}

func collectCandidates(set *packageSet, out string) {
	for _, m := range componentRe.FindAllStringSubmatch(out, -1) {
		set.add(m[1])
	}

	for _, m := range packageNameRe.FindAllStringSubmatch(out, -1) {
		set.add(m[1])
	}

	for _, m := range authenticatorRe.FindAllStringSubmatch(out, -1) {
		block := m[1]
		if pm := blockPackageRe.FindStringSubmatch(block); pm != nil {
			set.add(pm[1])
		}
		if tm := blockTypeRe.FindStringSubmatch(block); tm != nil {
			for _, pkg := range accountTypePackages[tm[1]] {
				set.add(pkg)
			}
		}
	}

	seenTypes := make(map[string]struct{})
	var types []string
	for _, m := range accountTypeRe.FindAllStringSubmatch(out, -1) {
		t := strings.TrimSpace(m[1])
		if t == "" {
			continue
		}
		if _, dup := seenTypes[t]; dup {
			continue
		}
		seenTypes[t] = struct{}{}
		types = append(types, t)
	}
	for _, t := range types {
		for _, pkg := range accountTypePackages[t] {
			set.add(pkg)
		}
	}
}

// IsValidPackageName reports whether name may be passed to pm enable/disable.
func IsValidPackageName(name string) bool {
	return name != platformPackage && validPackageRe.MatchString(name)
}

// packageSet is an insertion-ordered set of package names.
type packageSet struct {
	order []string
	seen  map[string]struct{}
}

func newPackageSet() *packageSet {
	return &packageSet{seen: make(map[string]struct{})}
}

func (s *packageSet) add(pkg string) bool {
	pkg = strings.TrimSpace(pkg)
	if !IsValidPackageName(pkg) {
		return false
	}
	if _, ok := s.seen[pkg]; ok {
		return false
	}
	s.seen[pkg] = struct{}{}
	s.order = append(s.order, pkg)
	return true
}

func (s *packageSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
