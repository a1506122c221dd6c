package apk

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZipEntries(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestIsAPKPath(t *testing.T) {
	assert.True(t, IsAPKPath("kit/dpc.apk"))
	assert.True(t, IsAPKPath("DPC.APK"))
	assert.False(t, IsAPKPath("dpc.xapk"))
	assert.False(t, IsAPKPath("dpc.txt"))
}

func TestInspectRejectsNonAPK(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "notes.txt"))
	assert.ErrorContains(t, err, "not an .apk file")
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing.apk"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInspectWithoutManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.apk")
	writeZipEntries(t, path, "classes.dex")

	_, err := Inspect(path)
	assert.Error(t, err)
}

func TestNativeABIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "native.apk")
	writeZipEntries(t, path,
		"lib/x86_64/libfoo.so",
		"lib/arm64-v8a/libfoo.so",
		"lib/arm64-v8a/libbar.so",
		"lib/README",
		"assets/lib/x86/ignored.so",
	)

	assert.Equal(t, []string{"arm64-v8a", "x86_64"}, nativeABIs(path))
	assert.Nil(t, nativeABIs(filepath.Join(t.TempDir(), "missing.apk")))
}

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := fileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}

func TestInfoHasPermission(t *testing.T) {
	info := &Info{Permissions: []string{"android.permission.BIND_DEVICE_ADMIN"}}
	assert.True(t, info.HasPermission("android.permission.BIND_DEVICE_ADMIN"))
	assert.False(t, info.HasPermission("android.permission.INTERNET"))
}
