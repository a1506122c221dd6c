package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAccountEvidence(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want bool
	}{
		{name: "empty", out: "", want: false},
		{name: "whitespace only", out: " \n\t\n", want: false},
		{name: "labelled count positive", out: "Accounts: 2", want: true},
		{name: "labelled count zero", out: "User UserInfo{0:Owner:c13}:\n  Accounts: 0\n", want: false},
		{
			// The count rule short-circuits before the structured record rule.
			name: "count zero beats account record",
			out:  "Accounts: 0\n  Account {name=someone@example.com, type=com.google}",
			want: false,
		},
		{name: "account record", out: "Account {name=jane, type=com.example}", want: true},
		{name: "account record without braces", out: "account name=jane", want: true},
		{name: "type and name tokens", out: "entry: type=x.y.z\nother: name=thing", want: true},
		{name: "email token", out: "registered owner jane.doe@Example.COM here", want: true},
		{name: "vendor hint", out: "authenticator com.google.android.gms registered", want: true},
		{name: "exchange hint", out: "Exchange ActiveSync", want: true},
		{name: "telegram hint", out: "org.telegram.messenger", want: true},
		{name: "no accounts", out: "No accounts", want: false},
		{name: "indented accounts section", out: "accounts:\n  some entry", want: true},
		{name: "indented section needs lower-case label", out: "Accounts:\n  some entry", want: false},
		{name: "accounts label without indented body", out: "Accounts:\nnothing here", want: false},
		{name: "unrelated output", out: "cmd: Can't find service: account", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAccountEvidence(tt.out))
		})
	}
}

func TestHasAccountEvidenceIsDeterministic(t *testing.T) {
	out := "Accounts:\n    Account {name=x@y.org, type=com.google}"
	first := HasAccountEvidence(out)
	assert.Equal(t, first, HasAccountEvidence(out))
}

func TestExtractCandidates(t *testing.T) {
	dump := `Accounts: 1
  Account {name=jane@example.com, type=com.google}

Active Sessions: 0

RegisteredServicesCache: 4 services
  ServiceInfo: AuthenticatorDescription {type=com.google}, ComponentInfo{com.google.android.gms/com.google.android.gms.auth.authzen.GoogleAccountAuthenticatorService}, uid 10120
  ServiceInfo: AuthenticatorDescription {type=com.whatsapp, packageName=com.whatsapp.w4b}, ComponentInfo{com.whatsapp/com.whatsapp.accountsync.AccountAuthenticatorService}, uid 10200
  ServiceInfo: AuthenticatorDescription {type=org.example.sync}, ComponentInfo{org.example.app/org.example.app.Auth}, uid 10300
  packageName=com.example.bad-name
  ComponentInfo{android/com.android.server.Something}
  type: com.facebook.auth.login`

	got := ExtractCandidates(dump)

	assert.Equal(t, []string{
		"com.google.android.gms",
		"com.whatsapp",
		"org.example.app",
		"com.whatsapp.w4b",
		"com.example.bad",
		"com.google.android.gsf.login",
		"com.facebook.katana",
		"com.facebook.orca",
	}, got)
	assert.NotContains(t, got, "android")
}

func TestExtractCandidatesEmpty(t *testing.T) {
	assert.Empty(t, ExtractCandidates(""))
	assert.Empty(t, ExtractCandidates("No accounts"))
}

func TestIsValidPackageName(t *testing.T) {
	assert.True(t, IsValidPackageName("com.google.android.gms"))
	assert.True(t, IsValidPackageName("com.example_app.v2"))
	assert.False(t, IsValidPackageName("android"))
	assert.False(t, IsValidPackageName(""))
	assert.False(t, IsValidPackageName("com.example; reboot"))
	assert.False(t, IsValidPackageName("com.example/.Receiver"))
}

func TestPackagesForAccountType(t *testing.T) {
	assert.Equal(t, []string{"com.google.android.gm"}, PackagesForAccountType("com.android.exchange"))
	assert.Nil(t, PackagesForAccountType("org.unknown"))

	pkgs := PackagesForAccountType("com.whatsapp")
	pkgs[0] = "mutated"
	assert.Equal(t, []string{"com.whatsapp"}, PackagesForAccountType("com.whatsapp"))
	assert.Len(t, ManualPackages(), 14)
}
