package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dir", ".", "")
	fs.String("store", "memory", "")
	fs.Int("port", 8080, "")
	fs.Duration("delay", 50*time.Millisecond, "")
	fs.String("redis-addr", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(testFlags())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Dir)
	assert.Equal(t, "start", cfg.Entry)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, SourceFile, cfg.Source)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.AutoDelay)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.Empty(t, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyweave.yaml"), []byte(
		"entry: intro\nport: 9000\nstore: file\nauto_delay: 1s\nredis_addr: file:6379\n",
	), 0o644))

	t.Setenv("STORYWEAVE_PORT", "9100")
	t.Setenv("STORYWEAVE_REDIS_ADDR", "env:6379")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--dir", dir, "--redis-addr", "flag:6379", "--delay", "0s"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, filepath.Join(dir, "storyweave.yaml"), cfg.File)
	assert.Equal(t, "intro", cfg.Entry, "file overrides defaults")
	assert.Equal(t, StoreFile, cfg.Store, "unchanged flags do not override the file")
	assert.Equal(t, 9100, cfg.Port, "env overrides the file")
	assert.Equal(t, "flag:6379", cfg.RedisAddr, "flags override env")
	assert.Equal(t, time.Duration(0), cfg.AutoDelay, "--delay maps to auto_delay")
}

func TestLoad_DirFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyweave.yml"), []byte("entry: prologue\n"), 0o644))
	t.Setenv("STORYWEAVE_DIR", dir)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "prologue", cfg.Entry)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyweave.yaml"), []byte("store: mongo\nsource: git\nmax_input_size: 0\n"), 0o644))

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--dir", dir}))

	_, err := Load(fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store "mongo"`)
	assert.Contains(t, err.Error(), `unknown source "git"`)
	assert.Contains(t, err.Error(), "max_input_size must be positive")
}

func TestLoad_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyweave.yaml"), []byte("entry: [unclosed\n"), 0o644))
	t.Setenv("STORYWEAVE_DIR", dir)

	_, err := Load(nil)
	assert.ErrorContains(t, err, "error reading config file")
}
