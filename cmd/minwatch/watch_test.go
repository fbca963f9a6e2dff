package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pescuma/minwatch/lib/config"
	"github.com/pescuma/minwatch/lib/minifier"
)

func TestWatchFlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	c := &WatchCmd{
		Build:            "make  intro",
		WorkingDirectory: "/src",
		Minifier:         "v1.4.0",
		Port:             9000,
		Dark:             true,
	}

	require.NoError(t, c.apply(cfg))

	assert.Equal(t, []string{"make", "intro"}, cfg.Build.Command)
	assert.Equal(t, "/src", cfg.Build.Dir)
	assert.Equal(t, minifier.V1_4_0, cfg.Minifier.Version)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Dark)
}

func TestWatchKeepsConfigWithoutFlags(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Build.Command = []string{"build.bat"}

	require.NoError(t, (&WatchCmd{}).apply(cfg))

	assert.Equal(t, []string{"build.bat"}, cfg.Build.Command)
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, minifier.DefaultVersion, cfg.Minifier.Version)
}

func TestWatchRejectsUnknownMinifier(t *testing.T) {
	t.Parallel()

	assert.Error(t, (&WatchCmd{Minifier: "2.0"}).apply(config.Defaults()))
}
