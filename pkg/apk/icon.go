package apk

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/webp"
)

// DefaultIconSize is the edge length of icons written by ExtractIcon.
const DefaultIconSize = 144

// Densities from largest to smallest; the first match wins.
var iconDensities = []string{"xxxhdpi", "xxhdpi", "xhdpi", "hdpi", "mdpi"}

// ExtractIcon finds the launcher icon of the APK at apkPath and returns it
// as a size x size PNG. Adaptive-icon layers are skipped.
func ExtractIcon(apkPath string, size uint) ([]byte, error) {
	if size == 0 {
		size = DefaultIconSize
	}

	reader, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open APK: %w", err)
	}
	defer reader.Close()

	file := findLauncherIcon(reader.File)
	if file == nil {
		return nil, fmt.Errorf("no launcher icon found in %s", path.Base(apkPath))
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	img, err := decodeIcon(rc, path.Ext(file.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file.Name, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, resize.Resize(size, size, img, resize.Lanczos3)); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func findLauncherIcon(files []*zip.File) *zip.File {
	byName := make(map[string]*zip.File, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}

	for _, dir := range []string{"mipmap", "drawable"} {
		for _, density := range iconDensities {
			for _, ext := range []string{".png", ".webp"} {
				if f, ok := byName[fmt.Sprintf("res/%s-%s/ic_launcher%s", dir, density, ext)]; ok {
					return f
				}
			}
		}
	}

	for _, f := range files {
		name := path.Base(f.Name)
		if !strings.HasPrefix(name, "ic_launcher") {
			continue
		}
		if strings.Contains(name, "_foreground") || strings.Contains(name, "_background") {
			continue
		}
		if ext := path.Ext(name); ext == ".png" || ext == ".webp" {
			return f
		}
	}
	return nil
}

func decodeIcon(r io.Reader, ext string) (image.Image, error) {
	if ext == ".webp" {
		return webp.Decode(r)
	}
	return png.Decode(r)
}
