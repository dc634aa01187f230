package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigIsValid checks the shipped defaults pass validation.
func TestDefaultConfigIsValid(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	require.NoError(t, projectConfig.Validate())

	assert.Greater(t, projectConfig.Fuzzing.Workers, 0)
	assert.Greater(t, projectConfig.Fuzzing.Runs, 0)
	assert.Greater(t, projectConfig.Fuzzing.Depth, 0)
	assert.GreaterOrEqual(t, projectConfig.Fuzzing.MaxAssumeRejects, 0)
}

// TestConfigFileRoundTrip checks a config written to disk reads back equal.
func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charybdis.json")

	original := GetDefaultProjectConfig()
	original.Fuzzing.Runs = 12345
	original.Fuzzing.FailOnRevert = true
	original.Fuzzing.SenderAddresses = []string{"0x0000000000000000000000000000000000001234"}
	require.NoError(t, original.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, read)
}

// TestConfigFileOmittedKeysKeepDefaults checks a partial config file inherits defaults for every omitted key.
func TestConfigFileOmittedKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charybdis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fuzzing": {"runs": 7}}`), 0644))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)

	defaults := GetDefaultProjectConfig()
	assert.Equal(t, 7, read.Fuzzing.Runs)
	assert.Equal(t, defaults.Fuzzing.Workers, read.Fuzzing.Workers)
	assert.Equal(t, defaults.Fuzzing.Depth, read.Fuzzing.Depth)
	assert.Equal(t, defaults.Fuzzing.ValueGeneration, read.Fuzzing.ValueGeneration)
}

// TestReadMissingConfigFile checks a missing file surfaces an error.
func TestReadMissingConfigFile(t *testing.T) {
	_, err := ReadProjectConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestValidateRejections checks the individual validation rules.
func TestValidateRejections(t *testing.T) {
	mutate := func(mutator func(*ProjectConfig)) *ProjectConfig {
		projectConfig := GetDefaultProjectConfig()
		mutator(projectConfig)
		return projectConfig
	}

	tests := []struct {
		name    string
		mutator func(*ProjectConfig)
	}{
		{"zero workers", func(c *ProjectConfig) { c.Fuzzing.Workers = 0 }},
		{"zero runs", func(c *ProjectConfig) { c.Fuzzing.Runs = 0 }},
		{"zero depth", func(c *ProjectConfig) { c.Fuzzing.Depth = 0 }},
		{"negative assume budget", func(c *ProjectConfig) { c.Fuzzing.MaxAssumeRejects = -1 }},
		{"negative shrink limit", func(c *ProjectConfig) { c.Fuzzing.ShrinkRunLimit = -1 }},
		{"negative timeout", func(c *ProjectConfig) { c.Fuzzing.Timeout = -1 }},
		{"malformed sender", func(c *ProjectConfig) { c.Fuzzing.SenderAddresses = []string{"not an address"} }},
		{"zero array bound", func(c *ProjectConfig) { c.Fuzzing.ValueGeneration.MaxArrayLength = 0 }},
		{"zero bytes bound", func(c *ProjectConfig) { c.Fuzzing.ValueGeneration.MaxBytesLength = 0 }},
		{"zero string bound", func(c *ProjectConfig) { c.Fuzzing.ValueGeneration.MaxStringLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, mutate(tt.mutator).Validate())
		})
	}
}
