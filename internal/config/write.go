package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the default config file content written on first
// setup. A few common global settings (log_level, auto_sync_cron,
// conflict_strategy) are present as commented-out defaults. This
// template is written once and never regenerated — user modifications
// are preserved by subsequent text-level edits.
const configTemplate = `# sync middleware configuration

# ── Global settings ──
# Uncomment and modify to override defaults.

# Log verbosity: debug, info, warn, error
# log_level = "info"

# How often auto-sync runs when online (robfig/cron spec, with seconds)
# auto_sync_cron = "@every 5m"

# Conflict resolution policy: local_wins, remote_wins, latest_wins, merge, manual
# conflict_strategy = "latest_wins"

# ── Profiles ──
# Each [profile.NAME] section is one local-store/remote-store pairing.
`

// profileSection generates the TOML text for a new profile section. The
// blank line before the header visually separates profile sections from
// each other and from the global settings.
func profileSection(name, localStorePath string, tables []string) string {
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = fmt.Sprintf("%q", t)
	}

	return fmt.Sprintf("\n[profile.%s]\nlocal_store_path = %q\ntables = [%s]\n",
		name, localStorePath, strings.Join(quoted, ", "))
}

// CreateConfigWithProfile creates a new config file from the default
// template and appends a profile section. Used on first setup when no
// config file exists. The write is atomic (temp file + rename) and
// parent directories are created as needed.
func CreateConfigWithProfile(path, name, localStorePath string, tables []string) error {
	slog.Info("creating config file with profile",
		"path", path,
		"profile", name,
		"local_store_path", localStorePath,
	)

	content := configTemplate + profileSection(name, localStorePath, tables)

	return atomicWriteFile(path, []byte(content))
}

// AppendProfileSection appends a new profile section at the end of an
// existing config file. The write is atomic to avoid partial writes on
// crash.
func AppendProfileSection(path, name, localStorePath string, tables []string) error {
	slog.Info("appending profile section to config",
		"path", path,
		"profile", name,
		"local_store_path", localStorePath,
	)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	content += profileSection(name, localStorePath, tables)

	return atomicWriteFile(path, []byte(content))
}

// sectionHeaderPrefix is the line prefix that starts any TOML section
// header, used by findSectionEnd to recognize where a section stops.
const sectionHeaderPrefix = "["

// SetProfileKey sets a single key's value within an existing
// [profile.NAME] section, preserving the rest of the file's text and
// comments. Used by pause/resume to flip the paused/paused_until keys
// without rewriting the whole config.
func SetProfileKey(path, profileName, key, value string) error {
	slog.Info("setting profile key in config",
		"path", path,
		"profile", profileName,
		"key", key,
		"value", value,
	)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(string(data), "\n")

	headerLine, sectionStart := findProfileSectionHeader(lines, profileName)
	if sectionStart < 0 {
		return fmt.Errorf("profile section %q not found in config", profileName)
	}

	newLine := fmt.Sprintf("%s = %s", key, formatTOMLValue(value))
	lines = setKeyInSection(lines, headerLine, sectionStart, key, newLine)

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")))
}

// findProfileSectionHeader locates the "[profile.NAME]" header line.
func findProfileSectionHeader(lines []string, name string) (int, int) {
	header := fmt.Sprintf("[profile.%s]", name)

	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			return i, i + 1
		}
	}

	return -1, -1
}

// findSectionEnd returns the index of the first line after the
// section's own content — the next section header, or EOF.
func findSectionEnd(lines []string, sectionStart int) int {
	for i := sectionStart; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), sectionHeaderPrefix) {
			return i
		}
	}

	return len(lines)
}

// setKeyInSection replaces key's existing line within [headerLine,
// sectionEnd), or inserts newLine right after the header if absent.
func setKeyInSection(lines []string, headerLine, sectionStart int, key, newLine string) []string {
	sectionEnd := findSectionEnd(lines, sectionStart)
	keyPrefix := key + " "
	keyPrefixEq := key + "="

	for i := headerLine + 1; i < sectionEnd; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, keyPrefix) || strings.HasPrefix(trimmed, keyPrefixEq) {
			lines[i] = newLine
			return lines
		}
	}

	inserted := make([]string, 0, len(lines)+1)
	inserted = append(inserted, lines[:headerLine+1]...)
	inserted = append(inserted, newLine)
	inserted = append(inserted, lines[headerLine+1:]...)

	return inserted
}

// formatTOMLValue formats a value for TOML output. Booleans are
// written bare (true/false); everything else is quoted.
func formatTOMLValue(value string) string {
	if value == "true" || value == "false" {
		return value
	}

	return fmt.Sprintf("%q", value)
}

// atomicWriteFile writes data to path via a temp file + rename, so a
// crash mid-write never leaves a truncated config file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting config file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}

	succeeded = true

	return nil
}
