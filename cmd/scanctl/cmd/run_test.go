package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	t.Setenv("SCANCTL_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("SCANCTL_SERVER", "")
	t.Setenv("SCANCTL_METRICS_FILE", "")
	t.Cleanup(func() {
		flagCheck = false
		flagOutput = outputJSON
		flagServer, flagUsername, flagPassword = "", "", ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	return got, err
}

func TestCheckMode(t *testing.T) {
	got, err := execute(t, "scan", "create", "--check",
		"--scan-name", "Weekly DMZ", "--policy", "Basic Network Scan", "--target", "web1")

	require.NoError(t, err)
	assert.Equal(t, false, got["changed"])
	assert.Nil(t, got["failed"])
}

func TestCheckMode_InvalidInput(t *testing.T) {
	got, err := execute(t, "asset", "create", "--check",
		"--asset-name", "web", "--asset-type", "FQDN", "--source", "inventory.csv")

	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Equal(t, true, got["failed"])
	assert.Equal(t, "InputError", got["kind"])
	assert.Contains(t, got["msg"], "asset_type")
}

func TestStage_MissingServer(t *testing.T) {
	got, err := execute(t, "scan", "launch", "--scan-name", "Weekly DMZ")

	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Equal(t, "InputError", got["kind"])
	assert.Contains(t, got["msg"], "server is required")
}

func TestStage_ValidatesBeforeConnecting(t *testing.T) {
	got, err := execute(t, "scan", "fetch", "--server", "sc.example.com")

	require.Error(t, err)
	assert.Equal(t, "InputError", got["kind"])
	assert.Contains(t, got["msg"], "scan_name")
}
