package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "adb", cfg.ADB.Path)
	assert.Equal(t, 60*time.Second, cfg.ADB.CommandTimeout)
	assert.Equal(t, 2*time.Second, cfg.Provision.RegisterDelay)
	assert.Equal(t, 3*time.Second, cfg.Provision.OwnerDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Provision.CommandPause)
	assert.Equal(t, time.Second, cfg.Accounts.SettleDelay)
	assert.Equal(t, 0, cfg.Accounts.User)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ownerkit.yaml")
	require.NoError(t, SaveTemplate(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, *Default(), *cfg)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
adb:
  path: /opt/platform-tools/adb
  default_device: R58M123
provision:
  owner_delay: 5s
accounts:
  user: 10
`), 0644))
	t.Setenv("OWNERKIT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/platform-tools/adb", cfg.ADB.Path)
	assert.Equal(t, "R58M123", cfg.ADB.DefaultDevice)
	assert.Equal(t, 5*time.Second, cfg.Provision.OwnerDelay)
	assert.Equal(t, 2*time.Second, cfg.Provision.RegisterDelay)
	assert.Equal(t, 10, cfg.Accounts.User)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts:\n  user: -1\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "accounts.user")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
