package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points CWD and the user config dir at fresh temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Setenv("HOME", filepath.Join(root, "home"))
	for _, key := range []string{"db", "actor", "log.level", "versions.keep", "cache.ttl", "lock-timeout"} {
		t.Setenv(EnvKey(key), "")
	}
	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Chdir(work)
	return work
}

func TestDefaults(t *testing.T) {
	isolate(t)
	require.NoError(t, Initialize())

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, s.KeepVersions)
	assert.Equal(t, 0, s.MaxMajor)
	assert.Equal(t, "demote", s.MajorOverflow)
	assert.True(t, s.CacheEnabled)
	assert.Equal(t, time.Hour, s.CacheTTL)
	assert.Equal(t, 30*time.Second, s.LockTimeout)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 10, s.LogMaxSizeMB)
	assert.Equal(t, 3, s.LogMaxBackups)
	assert.Equal(t, 28, s.LogMaxAgeDays)
	assert.Empty(t, ConfigFileUsed())
	assert.Equal(t, SourceDefault, GetValueSource("versions.keep"))
}

func TestProjectConfigFoundFromSubdirectory(t *testing.T) {
	work := isolate(t)
	dataDir := filepath.Join(work, DataDirName)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(`
versions:
  keep: 4
  max-major: 2
  major-overflow: reject
log:
  level: debug
`), 0o600))

	sub := filepath.Join(work, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	require.NoError(t, Initialize())
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, s.KeepVersions)
	assert.Equal(t, 2, s.MaxMajor)
	assert.Equal(t, "reject", s.MajorOverflow)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, SourceConfigFile, GetValueSource("versions.keep"))
	assert.Contains(t, ConfigFileUsed(), DataDirName)
}

func TestUserConfigFallback(t *testing.T) {
	work := isolate(t)
	userDir := filepath.Join(filepath.Dir(work), "xdg", "il")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("actor: alice\n"), 0o600))

	require.NoError(t, Initialize())
	assert.Equal(t, "alice", GetString("actor"))
	assert.Equal(t, "alice", GetActor(""))
	assert.Equal(t, "bob", GetActor("bob"))
}

func TestEnvOverridesFile(t *testing.T) {
	work := isolate(t)
	dataDir := filepath.Join(work, DataDirName)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("versions:\n  keep: 4\n"), 0o600))
	t.Setenv("IL_VERSIONS_KEEP", "7")
	t.Setenv("IL_LOCK_TIMEOUT", "5s")

	require.NoError(t, Initialize())
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, s.KeepVersions)
	assert.Equal(t, 5*time.Second, s.LockTimeout)
	assert.Equal(t, SourceEnvVar, GetValueSource("versions.keep"))
}

func TestLoadRejectsNegativeKeep(t *testing.T) {
	isolate(t)
	t.Setenv("IL_VERSIONS_KEEP", "-1")
	require.NoError(t, Initialize())
	_, err := Load()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "IL_LOG_MAX_SIZE_MB", EnvKey("log.max-size-mb"))
	assert.Equal(t, "IL_DB", EnvKey("db"))
}

func TestDBPath(t *testing.T) {
	work := isolate(t)
	require.NoError(t, Initialize())

	_, err := DBPath("")
	assert.ErrorIs(t, err, ErrNoDataDir)

	got, err := DBPath("/tmp/explicit.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", got)

	require.NoError(t, os.MkdirAll(filepath.Join(work, DataDirName), 0o755))
	sub := filepath.Join(work, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	got, err = DBPath("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBName, filepath.Base(got))
	wantDir, err := filepath.EvalSymlinks(filepath.Join(work, DataDirName))
	require.NoError(t, err)
	gotDir, err := filepath.EvalSymlinks(filepath.Dir(got))
	require.NoError(t, err)
	assert.Equal(t, wantDir, gotDir)

	Set("db", "/from/config.db")
	got, err = DBPath("")
	require.NoError(t, err)
	assert.Equal(t, "/from/config.db", got)
}
