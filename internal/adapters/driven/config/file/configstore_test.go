package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("broker.url", "tcp://localhost:1883"))
	require.NoError(t, store.Set("sync.interval_seconds", 300))
	require.NoError(t, store.Set("verbose", true))

	assert.Equal(t, "tcp://localhost:1883", store.GetString("broker.url"))
	assert.Equal(t, 300, store.GetInt("sync.interval_seconds"))
	assert.True(t, store.GetBool("verbose"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("lark.app_id", "cli_abc"))
	require.NoError(t, store.Set("sync.interval_seconds", 120))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "cli_abc", reopened.GetString("lark.app_id"))
	assert.Equal(t, 120, reopened.GetInt("sync.interval_seconds"))
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	config := `
[broker]
url = "mqtts://broker:8883"
base_topic = "home/desk"

[lark]
app_id = "cli_abc"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "mqtts://broker:8883", store.GetString("broker.url"))
	assert.Equal(t, "home/desk", store.GetString("broker.base_topic"))
	assert.Equal(t, "cli_abc", store.GetString("lark.app_id"))
}

func TestConfigStore_WrongTypesReturnZeroValues(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "a string"))

	assert.Equal(t, 0, store.GetInt("key"))
	assert.False(t, store.GetBool("key"))
	assert.Equal(t, "", store.GetString("absent"))
}
