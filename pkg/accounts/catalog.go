package accounts

// presenceProbes list accounts for DeviceHasAccounts, in issuance order.
var presenceProbes = []string{
	"cmd account list --user 0",
	"cmd account list",
	"dumpsys account",
	"cmd accounts list",
}

// discoveryProbes feed authenticator discovery in DisableAccountApps.
var discoveryProbes = []string{
	"cmd account list --user 0",
	"cmd account list",
	"dumpsys account",
}

// manualPackages commonly own device accounts and are always tried first.
var manualPackages = []string{
	"com.microsoft.office.officehubrow",
	"com.microsoft.office.word",
	"com.microsoft.office.excel",
	"com.microsoft.office.outlook",
	"com.microsoft.office.powerpoint",
	"com.microsoft.skydrive",
	"com.microsoft.appmanager",
	"com.facebook.katana",
	"com.facebook.orca",
	"com.whatsapp",
	"com.google.android.gm",
	"com.google.android.gsf.login",
	"com.google.android.gms",
	"com.samsung.android.mobileservice",
}

// accountTypePackages maps authenticator account types to the packages
// known to register them.
var accountTypePackages = map[string][]string{
	"com.google":                        {"com.google.android.gsf.login", "com.google.android.gms"},
	"com.google.work":                   {"com.google.android.gm", "com.google.android.gsf.login", "com.google.android.gms"},
	"com.google.android.gm.exchange":    {"com.google.android.gm"},
	"com.android.exchange":              {"com.google.android.gm"},
	"com.microsoft.exchange":            {"com.microsoft.office.outlook"},
	"com.microsoft.workaccount":         {"com.microsoft.appmanager"},
	"com.facebook.auth.login":           {"com.facebook.katana", "com.facebook.orca"},
	"com.whatsapp":                      {"com.whatsapp"},
	"com.samsung.android.mobileservice": {"com.samsung.android.mobileservice"},
}

// ManualPackages returns a copy of the packages tried on every disable pass.
func ManualPackages() []string {
	out := make([]string, len(manualPackages))
	copy(out, manualPackages)
	return out
}

// PackagesForAccountType returns the packages registered for an account
// type, or nil when the type is unknown.
func PackagesForAccountType(accountType string) []string {
	pkgs, ok := accountTypePackages[accountType]
	if !ok {
		return nil
	}
	out := make([]string, len(pkgs))
	copy(out, pkgs)
	return out
}
