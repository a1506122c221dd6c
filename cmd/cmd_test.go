package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huanfeng/ownerkit/internal/config"
	"github.com/huanfeng/ownerkit/internal/device"
	"github.com/huanfeng/ownerkit/internal/errors"
	"github.com/huanfeng/ownerkit/internal/i18n"
	"github.com/huanfeng/ownerkit/pkg/adb"
	"github.com/huanfeng/ownerkit/pkg/provision"
	"github.com/huanfeng/ownerkit/pkg/utils"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// withConfig installs c as the loaded configuration for one test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func fakeADB(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "adb")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestLangFromArgs(t *testing.T) {
	assert.Equal(t, "zh", langFromArgs([]string{"devices", "--lang", "zh"}))
	assert.Equal(t, "en", langFromArgs([]string{"--lang=en", "doctor"}))
	assert.Equal(t, "", langFromArgs([]string{"shell", "--", "--lang", "zh"}))
	assert.Equal(t, "", langFromArgs([]string{"--lang"}))
}

func TestParseDeviceList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseDeviceList([]string{" a", "b", "", "a "}))
	assert.Empty(t, parseDeviceList(nil))
}

func TestResolveTargetDevices(t *testing.T) {
	c := config.Default()
	withConfig(t, c)
	twoOnline := fakeADB(t, `printf 'List of devices attached\nemulator-5554 device\nR58M offline\nZY22 device\n'`)
	client := adb.NewClient(twoOnline)
	ctx := context.Background()

	serials, err := resolveTargetDevices(ctx, client, []string{"X1", "X1", "X2"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"X1", "X2"}, serials)

	serials, err = resolveTargetDevices(ctx, client, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator-5554", "ZY22"}, serials)

	_, err = resolveTargetDevices(ctx, client, nil, false)
	require.Error(t, err)
	assert.Equal(t, "MULTIPLE_DEVICES", errors.AsOwnerKitError(err).Code)

	c.ADB.DefaultDevice = "ZY22"
	serials, err = resolveTargetDevices(ctx, client, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ZY22"}, serials)
}

func TestResolveTargetDevicesNoneOnline(t *testing.T) {
	withConfig(t, config.Default())
	client := adb.NewClient(fakeADB(t, `printf 'List of devices attached\nR58M unauthorized\n'`))

	_, err := resolveTargetDevices(context.Background(), client, nil, false)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.NewDeviceError(errors.CodeNoDevices, "")))

	_, err = resolveTargetDevices(context.Background(), client, nil, true)
	assert.Equal(t, errors.CodeNoDevices, errors.AsOwnerKitError(err).Code)
}

func TestDeviceFailures(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, deviceFailures(&buf, []device.Result[int]{{Serial: "a"}}))

	single := stderrors.New("offline")
	assert.Equal(t, single, deviceFailures(&buf, []device.Result[int]{{Serial: "a", Err: single}}))
	assert.Empty(t, buf.String())

	err := deviceFailures(&buf, []device.Result[int]{{Serial: "a"}, {Serial: "b", Err: single}})
	require.Error(t, err)
	assert.Equal(t, "DEVICES_FAILED", errors.AsOwnerKitError(err).Code)
	assert.Equal(t, "1 of 2 devices failed", err.Error())
	assert.Contains(t, buf.String(), "b: offline")
}

func TestBuildInstallKit(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"dpc.apk", "launcher.apk"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("apk"), 0o644))
	}
	commands := filepath.Join(dir, "post.txt")
	require.NoError(t, os.WriteFile(commands, []byte("# grants\npm grant com.example.dpc android.permission.CAMERA\n"), 0o644))

	kit, err := buildInstallKit([]string{filepath.Join(dir, "dpc.apk"), filepath.Join(dir, "launcher.apk")}, commands, " com.example.dpc/.AdminReceiver ")
	require.NoError(t, err)
	require.Len(t, kit.Entries, 2)
	assert.Empty(t, kit.Entries[0].Commands)
	assert.Equal(t, []string{
		"pm grant com.example.dpc android.permission.CAMERA",
		"dpm set-device-owner com.example.dpc/.AdminReceiver",
	}, kit.Entries[1].Commands)
	assert.True(t, kit.Entries[1].HasOwnerCommand())
}

func TestBuildInstallKitRejectsMissingAPK(t *testing.T) {
	_, err := buildInstallKit([]string{filepath.Join(t.TempDir(), "gone.apk")}, "", "")
	assert.Error(t, err)
}

func TestLoggerConfig(t *testing.T) {
	t.Cleanup(func() { verbose, debug, logFormat, logFile = false, false, "", "" })
	c := config.Default()
	c.Log.Level = "error"

	verbose = true
	assert.Equal(t, utils.LogLevelInfo, loggerConfig(c).Level)

	debug = true
	logFormat = "json"
	logFile = "/tmp/ownerkit.log"
	lc := loggerConfig(c)
	assert.Equal(t, utils.LogLevelDebug, lc.Level)
	assert.Equal(t, utils.LogFormatJSON, lc.Format)
	assert.False(t, lc.EnableColor)
	assert.Equal(t, "/tmp/ownerkit.log", lc.FilePath)
}

func TestApplyCommandLocalization(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, i18n.Init("en"))
		applyCommandLocalization()
	})

	require.NoError(t, i18n.Init("zh"))
	applyCommandLocalization()
	assert.Equal(t, "列出已连接的 Android 设备", devicesCmd.Short)
	assert.Equal(t, "界面语言（en、zh）", rootCmd.PersistentFlags().Lookup("lang").Usage)

	// No Chinese long text for kit: the English built-in stays.
	assert.True(t, strings.HasPrefix(kitCmd.Long, "Install every APK"))

	require.NoError(t, i18n.Init("en"))
	applyCommandLocalization()
	assert.Equal(t, "List connected Android devices", devicesCmd.Short)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.NewAccountsError("dpm set-device-owner x/.R"))
	assert.Contains(t, buf.String(), "ACCOUNTS_PRESENT")
	assert.Contains(t, buf.String(), errors.AccountsRemediation)

	buf.Reset()
	printError(&buf, stderrors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())
}

func TestShowDevices(t *testing.T) {
	status := adb.GroupDevices([]adb.Device{
		{ID: "emulator-5554", Status: "device", Model: "sdk_gphone64", AndroidVer: "14", AndroidAPI: 34, IsEmulator: true},
		{ID: "R58M", Status: "unauthorized"},
	})

	var buf bytes.Buffer
	showDevicesDefault(&buf, status)
	out := buf.String()
	assert.Contains(t, out, "Online (1)")
	assert.Contains(t, out, "sdk_gphone64 (Emulator: emulator-5554) - Android 14 (API 34)")
	assert.Contains(t, out, "Unauthorized (1)")
	assert.Contains(t, out, "Summary: 2 total, 1 online, 0 offline, 1 unauthorized")

	buf.Reset()
	showDevicesTable(&buf, status)
	assert.Contains(t, buf.String(), "DEVICE ID")
	assert.Contains(t, buf.String(), "Emulator")

	buf.Reset()
	require.NoError(t, showDevicesJSON(&buf, status))
	assert.Contains(t, buf.String(), `"total": 2`)

	buf.Reset()
	showDevicesDefault(&buf, adb.GroupDevices(nil))
	assert.Contains(t, buf.String(), "No devices found")
}

func TestPrintKitResult(t *testing.T) {
	res := &provision.KitResult{
		Kit:    "kiosk",
		Device: "emulator-5554",
		Entries: []*provision.EntryResult{
			{Entry: provision.Entry{Name: "dpc.apk"}, Commands: []provision.CommandResult{
				{Command: "dpm set-device-owner x/.R", Error: errors.AccountsRemediation, Err: errors.NewAccountsError("dpm set-device-owner x/.R")},
			}},
			{Entry: provision.Entry{Name: "bad.apk"}, Error: "Invalid APK file", Err: errors.NewInstallError("INSTALL_FAILED_INVALID_APK", "Invalid APK file").WithSuggestion("Re-download the APK")},
		},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	printKitResult(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "kiosk on emulator-5554")
	assert.Contains(t, out, "✅ dpc.apk")
	assert.Contains(t, out, "dpm set-device-owner x/.R")
	assert.Contains(t, out, "❌ bad.apk: Invalid APK file")
	assert.Contains(t, out, "💡 Re-download the APK")
	assert.Contains(t, out, "1 installed, 1 failed in 1.5s")
}

func TestKitDryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fleet")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dpc.apk"), []byte("apk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dpc.txt"), []byte("dpm set-device-owner com.example.dpc/.R\n"), 0o644))
	t.Cleanup(func() { kitDryRun = false })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"kit", dir, "--dry-run", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	// A missing explicit config file is a load error.
	require.Error(t, rootCmd.Execute())

	cfgPath := filepath.Join(t.TempDir(), "ownerkit.yaml")
	require.NoError(t, config.SaveTemplate(cfgPath))
	rootCmd.SetArgs([]string{"kit", dir, "--dry-run", "--config", cfgPath})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "📦 fleet")
	assert.Contains(t, out, "1 APK:")
	assert.Contains(t, out, "dpc.apk - 3 B 👑")
	assert.Contains(t, out, "$ dpm set-device-owner com.example.dpc/.R")
}

func TestOwnerRejectsNonComponent(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "ownerkit.yaml")
	require.NoError(t, config.SaveTemplate(cfgPath))
	rootCmd.SetArgs([]string{"owner", "com.example.dpc", "--config", cfgPath})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, "INVALID_COMPONENT", errors.AsOwnerKitError(err).Code)
}
