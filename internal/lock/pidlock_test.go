package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "dyright.lock")
	l, err := Acquire(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Acquire("")
	require.Error(t, err)
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	l, err := Acquire(filepath.Join(t.TempDir(), "dyright.lock"))
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	p := DefaultPath("127.0.0.1:8765")
	assert.Contains(t, p, "dyright-127.0.0.1-8765.lock")
	assert.False(t, strings.Contains(filepath.Base(p), ":"))
}
