package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/internal/config"
)

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv("SCANCTL_CONFIG", path)

	cfg := &Config{}
	cfg.SetContext("lab", ContextDetail{Server: "sc.lab.local", Username: "auto", Password: "s3cret"})
	cfg.SetContext("prod", ContextDetail{Server: "sc.example.com", Username: "svc"})
	cfg.SetContext("lab", ContextDetail{Server: "sc2.lab.local", Username: "auto"})
	cfg.CurrentContext = "lab"
	require.NoError(t, saveConfig(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "scanctl.openctem.io/v1", loaded.APIVersion)
	assert.Len(t, loaded.Contexts, 2)
	require.NotNil(t, loaded.GetContext("lab"))
	assert.Equal(t, "sc2.lab.local", loaded.GetContext("lab").Context.Server)
	assert.Nil(t, loaded.GetContext("missing"))
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{Contexts: []NamedContext{
		{Name: "lab", Context: ContextDetail{Server: "sc", Password: "s3cret"}},
	}}

	out := cfg.redacted()

	assert.Equal(t, "[REDACTED]", out.Contexts[0].Context.Password)
	assert.Equal(t, "s3cret", cfg.Contexts[0].Context.Password, "original is untouched")
}

func TestApplyContext(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(secret, []byte("from-file\n"), 0600))

	t.Run("fills empty fields", func(t *testing.T) {
		p := config.PlatformConfig{RepositoryID: config.DefaultRepositoryID}
		applyContext(&p, ContextDetail{
			Server:       "sc.lab.local",
			Username:     "auto",
			PasswordFile: secret,
			RepositoryID: "4",
		})

		assert.Equal(t, "sc.lab.local", p.Server)
		assert.Equal(t, "auto", p.Username)
		assert.Equal(t, "from-file", p.Password)
		assert.Equal(t, "4", p.RepositoryID)
	})

	t.Run("environment wins", func(t *testing.T) {
		p := config.PlatformConfig{Server: "env.local", Username: "env", Password: "env-pw"}
		applyContext(&p, ContextDetail{Server: "sc.lab.local", Username: "auto", Password: "ctx-pw"})

		assert.Equal(t, "env.local", p.Server)
		assert.Equal(t, "env", p.Username)
		assert.Equal(t, "env-pw", p.Password)
	})
}
