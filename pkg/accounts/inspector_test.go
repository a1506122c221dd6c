package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/huanfeng/ownerkit/internal/shelltest"
	"github.com/huanfeng/ownerkit/pkg/utils"
)

func newTestInspector(shell Shell, opts ...Option) *Inspector {
	return NewInspector(shell, append([]Option{WithSettleDelay(0)}, opts...)...)
}

func observedLogger() (utils.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return utils.NewZapLogger(zap.New(core)), logs
}

func TestDeviceHasAccountsEmptyProbes(t *testing.T) {
	fake := shelltest.New()
	for _, probe := range presenceProbes {
		fake.On(probe, "")
	}

	assert.False(t, newTestInspector(fake).DeviceHasAccounts(context.Background()))
	assert.Equal(t, presenceProbes, fake.Calls())
}

func TestDeviceHasAccountsLabelledCount(t *testing.T) {
	fake := shelltest.New().On("dumpsys account", "Accounts: 2")

	assert.True(t, newTestInspector(fake).DeviceHasAccounts(context.Background()))
}

func TestDeviceHasAccountsSwallowsProbeFailures(t *testing.T) {
	fake := shelltest.New().
		OnResponse("cmd account list --user 0", shelltest.Response{Err: errors.New("cmd: Failure calling service account")}).
		OnResponse("cmd account list", shelltest.Response{Err: errors.New("boom")}).
		On("dumpsys account", "Accounts: 1\n  Account {name=a@b.com, type=com.google}")

	inspector := newTestInspector(fake)
	assert.True(t, inspector.DeviceHasAccounts(context.Background()))
	// Every probe is still issued after earlier ones fail.
	assert.Len(t, fake.Calls(), len(presenceProbes))
}

func TestDeviceHasAccountsIsIdempotent(t *testing.T) {
	fake := shelltest.New().On("cmd account list", "Account {name=jane, type=com.example}")
	inspector := newTestInspector(fake)

	first := inspector.DeviceHasAccounts(context.Background())
	second := inspector.DeviceHasAccounts(context.Background())
	assert.True(t, first)
	assert.Equal(t, first, second)
}

func TestDeviceHasAccountsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := shelltest.New().On("dumpsys account", "Accounts: 3")
	assert.False(t, newTestInspector(fake).DeviceHasAccounts(ctx))
}

func TestDisableAccountAppsManualList(t *testing.T) {
	fake := shelltest.New()
	disabled := newTestInspector(fake).DisableAccountApps(context.Background())

	assert.Equal(t, DisabledSet(manualPackages), disabled)

	disables := fake.CallsWithPrefix("pm disable-user")
	require.Len(t, disables, len(manualPackages))
	assert.Equal(t, "pm disable-user --user 0 com.microsoft.office.officehubrow", disables[0])
	assert.Equal(t, "pm disable-user --user 0 com.samsung.android.mobileservice", disables[len(disables)-1])
}

func TestDisableAccountAppsDiscoversCandidates(t *testing.T) {
	fake := shelltest.New().
		On("dumpsys account", "ServiceInfo: AuthenticatorDescription {type=org.acme}, ComponentInfo{org.acme.sync/org.acme.sync.Auth}, uid 10400")

	disabled := newTestInspector(fake).DisableAccountApps(context.Background())

	assert.True(t, disabled.Contains("org.acme.sync"))
	assert.Len(t, disabled, len(manualPackages)+1)
	assert.Equal(t, "org.acme.sync", disabled[len(disabled)-1])
}

func TestDisableAccountAppsExcludesFailures(t *testing.T) {
	logger, logs := observedLogger()
	fake := shelltest.New().
		OnResponse("pm disable-user --user 0 com.whatsapp", shelltest.Response{Err: errors.New("transport hiccup")}).
		On("pm disable-user --user 0 com.facebook.orca", "Exception occurred while executing 'disable-user':\njava.lang.IllegalArgumentException: Unknown package: com.facebook.orca").
		On("pm disable-user --user 0 com.facebook.katana", "Package com.facebook.katana new state: disabled-user")

	disabled := newTestInspector(fake, WithLogger(logger)).DisableAccountApps(context.Background())

	assert.False(t, disabled.Contains("com.whatsapp"))
	assert.False(t, disabled.Contains("com.facebook.orca"))
	assert.True(t, disabled.Contains("com.facebook.katana"))
	assert.Len(t, disabled, len(manualPackages)-2)
	// The loop continues past failures.
	assert.Len(t, fake.CallsWithPrefix("pm disable-user"), len(manualPackages))
	assert.NotZero(t, logs.FilterMessageSnippet("Failed to disable com.whatsapp").Len())
}

func TestDisableAccountAppsUsesConfiguredUser(t *testing.T) {
	fake := shelltest.New()
	newTestInspector(fake, WithUser(10)).DisableAccountApps(context.Background())

	assert.Contains(t, fake.Calls(), "pm disable-user --user 10 com.whatsapp")
}

func TestDisableAccountAppsSettleDelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	disabled := NewInspector(shelltest.New(), WithSettleDelay(time.Hour)).DisableAccountApps(ctx)
	assert.NotEmpty(t, disabled)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDisableAccountAppsNothingDisabledSkipsSettle(t *testing.T) {
	fake := shelltest.New().OnPrefix("pm disable-user", shelltest.Response{Output: "Error: java.lang.SecurityException"})

	start := time.Now()
	disabled := NewInspector(fake, WithSettleDelay(time.Hour)).DisableAccountApps(context.Background())
	assert.Empty(t, disabled)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestReenablePackagesContinuesAfterFailure(t *testing.T) {
	logger, logs := observedLogger()
	fake := shelltest.New().
		OnResponse("pm enable --user 0 com.a", shelltest.Response{Err: shelltest.Disconnected("pm enable --user 0 com.a")}).
		On("pm enable --user 0 com.b", "Package com.b new state: enabled")

	newTestInspector(fake, WithLogger(logger)).ReenablePackages(context.Background(), DisabledSet{"com.a", "com.b", "com.c"})

	assert.Equal(t, []string{
		"pm enable --user 0 com.a",
		"pm enable --user 0 com.b",
		"pm enable --user 0 com.c",
	}, fake.Calls())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 2, logs.FilterMessageSnippet("Re-enabled").Len())
}

func TestReenablePackagesEmpty(t *testing.T) {
	fake := shelltest.New()
	inspector := newTestInspector(fake)

	inspector.ReenablePackages(context.Background(), nil)
	inspector.ReenablePackages(context.Background(), DisabledSet{})
	assert.Empty(t, fake.Calls())
}

func TestDisabledSetContains(t *testing.T) {
	set := DisabledSet{"com.a", "com.b"}
	assert.True(t, set.Contains("com.b"))
	assert.False(t, set.Contains("com.c"))
	assert.False(t, DisabledSet(nil).Contains("com.a"))
}
