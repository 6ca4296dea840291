package ipc

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockfileAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinker.pid")
	l := NewLockfile(path)

	require.NoError(t, l.Acquire())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, l.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLockfileReacquireOwnPIDIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinker.pid")
	l := NewLockfile(path)

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire()) // reacquiring our own PID must not error
}

func TestLockfileRejectsLiveForeignPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinker.pid")
	// pid 1 is always alive in any container/namespace that can run this test
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	l := NewLockfile(path)
	err := l.Acquire()
	assert.Error(t, err)
}

func TestLockfileCleansUpStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinker.pid")
	// a PID astronomically unlikely to be alive
	require.NoError(t, os.WriteFile(path, []byte("999999"), 0o644))

	l := NewLockfile(path)
	require.NoError(t, l.Acquire())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestLockfileReleaseIgnoresForeignPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlinker.pid")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	l := NewLockfile(path)
	require.NoError(t, l.Release()) // not our PID, must not touch the file

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
