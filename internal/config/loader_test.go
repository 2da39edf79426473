package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \"127.0.0.1:9000\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "dyright", cfg.Service.Name)
	assert.Equal(t, 4, cfg.Execute.Workers)
	assert.Equal(t, 5*time.Second, cfg.Execute.DefaultTimeout)
	assert.Equal(t, 128, cfg.Scripts.VMMemoryLimitMB)
	assert.Equal(t, 500*time.Millisecond, cfg.Execute.ShutdownDelay)
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	content := `
service:
  name: dyright-test
  log_level: DEBUG
listen: "localhost:8800"
scripts:
  dir: /opt/scripts
  vm_memory_limit_mb: 64
execute:
  workers: 8
  queue_depth: 32
  default_timeout: 2s
  default_ram_mb: 256
api:
  api_key: secret
history:
  enabled: true
  keep: 100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dyright-test", cfg.Service.Name)
	assert.Equal(t, "DEBUG", cfg.Service.LogLevel)
	assert.Equal(t, "/opt/scripts", cfg.Scripts.Dir)
	assert.Equal(t, 8, cfg.Execute.Workers)
	assert.Equal(t, 32, cfg.Execute.QueueDepth)
	assert.Equal(t, 2*time.Second, cfg.Execute.DefaultTimeout)
	assert.Equal(t, 256, cfg.Execute.DefaultRAMMB)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 100, cfg.History.Keep)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "negative workers", content: "execute:\n  workers: -1\n"},
		{name: "negative ram", content: "execute:\n  default_ram_mb: -5\n"},
		{name: "negative queue depth", content: "execute:\n  queue_depth: -2\n"},
		{name: "negative vm limit", content: "scripts:\n  vm_memory_limit_mb: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "127.0.0.1:8765", cfg.Listen)
	assert.Equal(t, 4, cfg.Execute.Workers)
	assert.Equal(t, 256, cfg.History.Keep)
}
