package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryStoreDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 30, cfg.SendRatePerMinute)
	assert.False(t, cfg.WebPushEnabled())
}

func TestLoadYAMLOverlayLosesToEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bunkmate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: memory
server_port: "9000"
invite_origin: https://bunkmate.example/
send_burst: 4
system_group_ids: [everyone]
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("INVITE_ORIGIN", "https://bunkmate.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.ServerPort)
	assert.Equal(t, "https://bunkmate.example", cfg.InviteOrigin)
	assert.Equal(t, 4, cfg.SendBurst)
	assert.Equal(t, []string{"everyone"}, cfg.SystemGroupIDs)
}

func TestLoadSystemGroupIDsFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE", "memory")
	t.Setenv("SYSTEM_GROUP_IDS", " everyone, announcements ,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"everyone", "announcements"}, cfg.SystemGroupIDs)
}

func TestLoadRejectsFirestoreWithoutProject(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	assert.Error(t, err)
}
