package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pescuma/minwatch/lib/minifier"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "minwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.Equal(t, 2724, cfg.Port)
	assert.Equal(t, minifier.V1_3_6, cfg.Minifier.Version)
	assert.Equal(t, minifier.FormatIndented, cfg.Minifier.Options.Format)
	assert.Equal(t, minifier.SwizzleRGBA, cfg.Minifier.Options.FieldNames)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
debug: true
tick: 50ms
port: 8080
minifier:
  version: 1.4.0
  verify: true
  binaries:
    1.4.0: /opt/shader_minifier
  options:
    format: c-variables
    no-renaming-list: [main, mainImage]
    aggressive-inlining: true
build:
  command: [make, intro]
  dir: /src/intro
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, minifier.V1_4_0, cfg.Minifier.Version)
	assert.Equal(t, minifier.KnownVersions, cfg.Minifier.Versions)
	assert.Equal(t, minifier.FormatCVariables, cfg.Minifier.Options.Format)
	assert.Equal(t, minifier.SwizzleRGBA, cfg.Minifier.Options.FieldNames)
	assert.Equal(t, []string{"main", "mainImage"}, cfg.Minifier.Options.NoRenamingList)
	assert.True(t, cfg.Minifier.Options.AggressiveInlining)
	assert.Equal(t, []string{"make", "intro"}, cfg.Build.Command)
	assert.Equal(t, "/src/intro", cfg.Build.Dir)

	mc := cfg.MinifierConfig()
	assert.True(t, mc.Verify)
	assert.Equal(t, "/opt/shader_minifier", mc.Binaries[minifier.V1_4_0])
	assert.Equal(t, minifier.ValidatorName, mc.Validator)
}

func TestLoadUnknownVersion(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "minifier:\n  version: 0.1\n"))
	assert.Error(t, err)
}

func TestLoadSelectedVersionNotConfigured(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "minifier:\n  version: 1.3.6\n  versions: [1.4.0, 1.3.5]\n"))
	assert.ErrorContains(t, err, "not in the configured versions")

	cfg := Defaults()
	cfg.Minifier.Versions = []minifier.Version{minifier.V1_4_0}
	assert.Error(t, cfg.Validate())

	cfg.Minifier.Version = minifier.V1_4_0
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidYaml(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "tick: [\n"))
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
