package provision

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/pkg/apk"
)

// Entry is one APK of a kit with the shell commands to run after it is
// installed.
type Entry struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Size      int64    `json:"size"`
	PackageID string   `json:"package_id,omitempty"`
	Commands  []string `json:"commands,omitempty"`
}

// HasOwnerCommand reports whether any post-install command assigns device
// ownership.
func (e Entry) HasOwnerCommand() bool {
	for _, c := range e.Commands {
		if IsDeviceOwnerCommand(c) {
			return true
		}
	}
	return false
}

// Kit is an ordered set of APKs installed together.
type Kit struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Entries     []Entry `json:"entries"`
}

type kitManifest struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Apps        []manifestApp `yaml:"apps"`
}

type manifestApp struct {
	Name     string   `yaml:"name"`
	File     string   `yaml:"file"`
	Commands []string `yaml:"commands"`
}

// LoadKit loads a kit from a directory or from a YAML manifest file.
func LoadKit(path string) (*Kit, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("KIT_NOT_FOUND", fmt.Sprintf("kit %s not found", path))
		}
		return nil, err
	}
	if info.IsDir() {
		return LoadKitDir(path)
	}
	return LoadKitManifest(path)
}

// LoadKitDir builds a kit from every .apk in dir, sorted by name. A file
// named like the APK with a .txt extension holds its post-install
// commands, one per line.
func LoadKitDir(dir string) (*Kit, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeNotFound, "KIT_NOT_FOUND",
			fmt.Sprintf("cannot read kit directory %s", dir))
	}

	names := make(map[string]bool, len(files))
	var apks []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		names[f.Name()] = true
		if apk.IsAPKPath(f.Name()) {
			apks = append(apks, f.Name())
		}
	}
	sort.Strings(apks)

	if len(apks) == 0 {
		return nil, errors.NewValidationError("EMPTY_KIT", fmt.Sprintf("no .apk files in %s", dir))
	}

	kit := &Kit{Name: filepath.Base(filepath.Clean(dir))}
	for _, name := range apks {
		entry, err := newEntry(name, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		companion := strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
		if names[companion] {
			commands, err := ReadCommandFile(filepath.Join(dir, companion))
			if err != nil {
				return nil, err
			}
			entry.Commands = commands
		}
		kit.Entries = append(kit.Entries, *entry)
	}
	return kit, nil
}

// LoadKitManifest reads a YAML kit manifest. App files are resolved
// relative to the manifest.
func LoadKitManifest(path string) (*Kit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeNotFound, "KIT_NOT_FOUND",
			fmt.Sprintf("cannot read kit manifest %s", path))
	}

	var m kitManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, "INVALID_KIT",
			fmt.Sprintf("invalid kit manifest %s", path))
	}
	if len(m.Apps) == 0 {
		return nil, errors.NewValidationError("EMPTY_KIT", fmt.Sprintf("kit manifest %s lists no apps", path))
	}

	base := filepath.Dir(path)
	kit := &Kit{Name: m.Name, Description: m.Description}
	if kit.Name == "" {
		kit.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for i, app := range m.Apps {
		if app.File == "" {
			return nil, errors.NewValidationError("INVALID_KIT", fmt.Sprintf("app %d in %s has no file", i+1, path))
		}
		file := app.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		name := app.Name
		if name == "" {
			name = filepath.Base(file)
		}
		entry, err := newEntry(name, file)
		if err != nil {
			return nil, err
		}
		entry.Commands = cleanCommands(app.Commands)
		kit.Entries = append(kit.Entries, *entry)
	}
	return kit, nil
}

// NewEntry describes a single APK on disk with the given commands.
func NewEntry(path string, commands []string) (*Entry, error) {
	entry, err := newEntry(filepath.Base(path), path)
	if err != nil {
		return nil, err
	}
	entry.Commands = cleanCommands(commands)
	return entry, nil
}

func newEntry(name, path string) (*Entry, error) {
	if !apk.IsAPKPath(path) {
		return nil, errors.NewValidationError(errors.CodeInvalidAPK, fmt.Sprintf("%s is not an .apk file", path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewNotFoundError("APK_NOT_FOUND", fmt.Sprintf("%s not found", path))
	}
	entry := &Entry{Name: name, Path: path, Size: info.Size()}
	if id, err := apk.PackageID(path); err == nil {
		entry.PackageID = id
	}
	return entry, nil
}

// ReadCommandFile reads post-install commands, one per line. Blank lines
// and lines starting with # are skipped.
func ReadCommandFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cleanCommands(lines), nil
}

func cleanCommands(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
