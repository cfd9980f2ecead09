package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigFileAway keeps a stray config.yaml in the working directory from
// leaking into tests.
func pointConfigFileAway(t *testing.T) {
	t.Helper()
	t.Setenv("QCP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
}

// TestLoadDefaults tests the built-in defaults with a clean environment
func TestLoadDefaults(t *testing.T) {
	pointConfigFileAway(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "measurements.xlsx", cfg.Paths.Workbook)
	assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
}

// TestLoadFromEnvironment tests QCP_-prefixed variable overrides
func TestLoadFromEnvironment(t *testing.T) {
	pointConfigFileAway(t)
	t.Setenv("QCP_SERVER_PORT", "9090")
	t.Setenv("QCP_LOGGING_LEVEL", "debug")
	t.Setenv("QCP_PATHS_DATA_DIR", "/var/lib/qcpulse")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/qcpulse", cfg.Paths.DataDir)
}

// TestLoadFromFile tests that a yaml file overlays the env-derived config
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 3030
logging:
  level: warn
paths:
  data_dir: ` + dir + `
  workbook: qc.xlsx
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("QCP_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3030, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "qc.xlsx", cfg.Paths.Workbook)
}

// TestLoadInvalidPort tests validation of the port range
func TestLoadInvalidPort(t *testing.T) {
	pointConfigFileAway(t)
	t.Setenv("QCP_SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

// TestLoadMalformedFile tests that unparseable yaml fails loudly
func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))
	t.Setenv("QCP_CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

// TestWorkbookPath tests relative and absolute workbook resolution
func TestWorkbookPath(t *testing.T) {
	rel := PathsConfig{DataDir: "data", Workbook: "measurements.xlsx"}
	assert.Equal(t, filepath.Join("data", "measurements.xlsx"), rel.WorkbookPath())

	abs := PathsConfig{DataDir: "data", Workbook: "/srv/qc/measurements.xlsx"}
	assert.Equal(t, "/srv/qc/measurements.xlsx", abs.WorkbookPath())
}

// TestEnsureDirectories tests directory creation for data and log output
func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{
		Logging: LoggingConfig{Output: "file", FilePath: filepath.Join(base, "logs", "qcpulse.log")},
		Paths:   PathsConfig{DataDir: filepath.Join(base, "data")},
	}

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, filepath.Join(base, "data"))
	assert.DirExists(t, filepath.Join(base, "logs"))
}
