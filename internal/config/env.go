package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "SYNCMW_CONFIG"
	EnvProfile = "SYNCMW_PROFILE"
	EnvCredential = "SYNCMW_CREDENTIAL"
)

// EnvOverrides holds values derived from environment variables.
// These are resolved by ReadEnvOverrides and made available to callers.
type EnvOverrides struct {
	ConfigPath string // SYNCMW_CONFIG: override config file path
	Profile    string // SYNCMW_PROFILE: active profile name
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Profile:    os.Getenv(EnvProfile),
	}
}
