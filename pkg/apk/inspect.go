// Package apk reads package metadata from APK files.
package apk

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shogo82148/androidbinary/apk"
)

// Info is the metadata ownerkit needs about an APK before installing it.
type Info struct {
	Path        string   `json:"path"`
	PackageID   string   `json:"package_id"`
	Label       string   `json:"label"`
	VersionName string   `json:"version_name"`
	VersionCode int64    `json:"version_code"`
	MinSDK      int      `json:"min_sdk"`
	TargetSDK   int      `json:"target_sdk"`
	Permissions []string `json:"permissions,omitempty"`
	ABIs        []string `json:"abis,omitempty"`
	Size        int64    `json:"size"`
	SHA256      string   `json:"sha256"`
}

// HasPermission reports whether the APK requests perm.
func (i *Info) HasPermission(perm string) bool {
	for _, p := range i.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// IsAPKPath reports whether path has an .apk extension.
func IsAPKPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk")
}

// Inspect parses the binary manifest of the APK at path.
func Inspect(path string) (*Info, error) {
	if !IsAPKPath(path) {
		return nil, fmt.Errorf("%s is not an .apk file", path)
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	pkg, err := apk.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	defer pkg.Close()

	manifest := pkg.Manifest()

	sum, err := fileSHA256(path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:        path,
		PackageID:   manifest.Package.MustString(),
		VersionName: manifest.VersionName.MustString(),
		VersionCode: int64(manifest.VersionCode.MustInt32()),
		MinSDK:      1,
		Size:        fileInfo.Size(),
		SHA256:      sum,
		ABIs:        nativeABIs(path),
	}
	if label, err := manifest.App.Label.String(); err == nil && label != "" {
		info.Label = label
	} else {
		info.Label = info.PackageID
	}
	if v, err := manifest.SDK.Min.Int32(); err == nil {
		info.MinSDK = int(v)
	}
	if v, err := manifest.SDK.Target.Int32(); err == nil {
		info.TargetSDK = int(v)
	}
	for _, perm := range manifest.UsesPermissions {
		if name, err := perm.Name.String(); err == nil && name != "" {
			info.Permissions = append(info.Permissions, name)
		}
	}

	return info, nil
}

// PackageID returns only the package name of the APK at path.
func PackageID(path string) (string, error) {
	pkg, err := apk.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer pkg.Close()
	manifest := pkg.Manifest()
	return manifest.Package.MustString(), nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// nativeABIs lists the lib/<abi>/ directories packed in the APK.
func nativeABIs(path string) []string {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer reader.Close()

	seen := make(map[string]bool)
	for _, file := range reader.File {
		parts := strings.Split(file.Name, "/")
		if len(parts) >= 3 && parts[0] == "lib" && parts[1] != "" {
			seen[parts[1]] = true
		}
	}

	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis
}
