package config

import (
	"fmt"
)

// validateProfiles checks all profile-level constraints.
func validateProfiles(profiles map[string]Profile) []error {
	if len(profiles) == 0 {
		return nil
	}

	var errs []error

	paths := make(map[string]string, len(profiles))

	for name := range profiles {
		p := profiles[name]
		errs = append(errs, validateSingleProfile(name, &p)...)
		errs = append(errs, checkDuplicateLocalStorePath(name, &p, paths)...)
	}

	return errs
}

// validateSingleProfile validates one profile's fields.
func validateSingleProfile(name string, p *Profile) []error {
	var errs []error

	errs = append(errs, validateLocalStorePath(name, p.LocalStorePath)...)
	errs = append(errs, validateProfileTables(name, p.Tables)...)
	errs = append(errs, validateProfileOverrides(p)...)

	return errs
}

// validateLocalStorePath checks that local_store_path is set.
func validateLocalStorePath(profileName, path string) []error {
	if path == "" {
		return []error{fmt.Errorf("profile.%s.local_store_path: must not be empty", profileName)}
	}

	return nil
}

// validateProfileTables checks that at least one table is configured.
func validateProfileTables(profileName string, tables []string) []error {
	if len(tables) == 0 {
		return []error{fmt.Errorf("profile.%s.tables: must list at least one table", profileName)}
	}

	return nil
}

// checkDuplicateLocalStorePath ensures no two profiles share the same
// expanded local_store_path, which would have them silently racing over
// the same local store database.
func checkDuplicateLocalStorePath(name string, p *Profile, seen map[string]string) []error {
	if p.LocalStorePath == "" {
		return nil
	}

	expanded := expandTilde(p.LocalStorePath)

	if other, exists := seen[expanded]; exists {
		return []error{fmt.Errorf(
			"profile.%s.local_store_path: %q conflicts with profile.%s (same path)",
			name, p.LocalStorePath, other)}
	}

	seen[expanded] = name

	return nil
}

// validateProfileOverrides validates per-profile section overrides.
func validateProfileOverrides(p *Profile) []error {
	var errs []error

	if p.Filter != nil {
		errs = append(errs, validateFilter(p.Filter)...)
	}

	if p.Batch != nil {
		errs = append(errs, validateBatch(p.Batch)...)
	}

	if p.Safety != nil {
		errs = append(errs, validateSafety(p.Safety)...)
	}

	if p.Sync != nil {
		errs = append(errs, validateSync(p.Sync)...)
	}

	if p.Logging != nil {
		errs = append(errs, validateLogging(p.Logging)...)
	}

	if p.Network != nil {
		errs = append(errs, validateNetwork(p.Network)...)
	}

	return errs
}
