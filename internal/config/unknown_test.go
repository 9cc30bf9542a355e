package config

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, `unknown_section = "value"`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_TypoInFlatKey(t *testing.T) {
	path := writeTestConfig(t, `concurrncy = 4`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), "concurrency")
}

func TestLoad_UnknownKey_TypoInFilter(t *testing.T) {
	path := writeTestConfig(t, `exclud = ["logs"]`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude")
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, `completely_unrelated_key = true`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"exclud", "exclude", 1},
		{"concurrncy", "concurrency", 1},
		{"completely_different", "xyz", 19},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshtein(tt.a, tt.b))
		})
	}
}

func TestClosestMatch_Found(t *testing.T) {
	known := []string{"exclude", "exclude_patterns", "include"}
	assert.Equal(t, "exclude", closestMatch("exclud", known))
	assert.Equal(t, "include", closestMatch("includ", known))
}

func TestClosestMatch_NotFound(t *testing.T) {
	known := []string{"exclude", "include"}
	assert.Equal(t, "", closestMatch("completely_unrelated", known))
}

// --- Edge case: known parent with sub-field is not flagged ---

func TestBuildGlobalKeyError_KnownParent_SubField(t *testing.T) {
	// A nested key like "exclude.0" has a known parent ("exclude"), so
	// buildGlobalKeyError should return nil.
	err := buildGlobalKeyError("exclude.0")
	assert.Nil(t, err)
}

func TestBuildGlobalKeyError_UnknownParent_SubField(t *testing.T) {
	err := buildGlobalKeyError("nonexistent_section.field")
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestBuildGlobalKeyError_ProfileSectionSkipped(t *testing.T) {
	// Profile section contents are decoded by their own struct; a known
	// key inside a profile section is never flagged as unknown.
	err := buildGlobalKeyError("profile.work.local_store_path")
	assert.Nil(t, err)
}

func TestKnownGlobalKeysList_Sorted(t *testing.T) {
	assert.True(t, sort.StringsAreSorted(knownGlobalKeysList),
		"knownGlobalKeysList must be sorted")
}
