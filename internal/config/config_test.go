package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/pwmctl/internal/config"
	"codeberg.org/mutker/pwmctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pwmctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sysfs_root = "/tmp/sys"
log_level = "debug"
output = "yaml"
history = true
history_db = "/path/to/history.db"
mqtt_broker = "tcp://broker:1883"
mqtt_topic = "lab/pwm"
lock_dir = "/run/pwmctl"
`)
	t.Setenv("PWMCTL_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sys", cfg.SysfsRoot, "Expected SysfsRoot /tmp/sys")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.Equal(t, config.OutputYAML, cfg.GetOutput(), "Expected yaml output")
	assert.True(t, cfg.History, "Expected History true")
	assert.Equal(t, "/path/to/history.db", cfg.HistoryDB)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBroker)
	assert.Equal(t, "lab/pwm", cfg.MQTTTopic)
	assert.Equal(t, "/run/pwmctl", cfg.LockDir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultSysfsRoot, cfg.SysfsRoot)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.OutputText, cfg.GetOutput())
	assert.False(t, cfg.History)
	assert.Equal(t, config.DefaultHistoryDB, cfg.HistoryDB)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, config.DefaultMQTTTopic, cfg.MQTTTopic)
	assert.Equal(t, os.TempDir(), cfg.LockDir)
	assert.Empty(t, cfg.Args)
}

func TestLoadPositionalArgs(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	cfg, err := config.Load([]string{"--output", "yaml", "/sys/class/pwm/pwmchip0", "0", "1000", "0.5"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/sys/class/pwm/pwmchip0", "0", "1000", "0.5"}, cfg.Args)
	assert.Equal(t, config.OutputYAML, cfg.GetOutput())
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "error"
sysfs_root = "/from/file"
`)
	t.Setenv("PWMCTL_CONFIG", path)

	cfg, err := config.Load([]string{"--log-level", "info"})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.Equal(t, "/from/file", cfg.SysfsRoot)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `sysfs_root = "/from/file"`)
	t.Setenv("PWMCTL_CONFIG", path)
	t.Setenv("PWMCTL_SYSFS_ROOT", "/from/env")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.SysfsRoot)
}

func TestDebugFlagSetsLevel(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	cfg, err := config.Load([]string{"--debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = config.Load([]string{"--verbose"})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("PWMCTL_CONFIG", path)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level = "invalid"`)
	t.Setenv("PWMCTL_CONFIG", path)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidOutput(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	_, err := config.Load([]string{"--output", "json"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidOutput))
}

func TestUnknownFlag(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	_, err := config.Load([]string{"--frobnicate"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestHelpFlag(t *testing.T) {
	t.Setenv("PWMCTL_CONFIG", "")

	_, err := config.Load([]string{"--help"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestValidate(t *testing.T) {
	base := config.Config{
		SysfsRoot: "/sys",
		LogLevel:  "warning",
		Output:    "text",
		HistoryDB: "/x.db",
	}
	require.NoError(t, base.Validate())

	noRoot := base
	noRoot.SysfsRoot = ""
	assert.Error(t, noRoot.Validate())

	noDB := base
	noDB.History = true
	noDB.HistoryDB = ""
	assert.Error(t, noDB.Validate())

	negative := base
	negative.ShowHistory = -1
	assert.Error(t, negative.Validate())
}
