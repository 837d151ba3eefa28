package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	documentsPath := filepath.Join(home, "documents.toml")
	require.NoError(t, writeDocumentsFixture(documentsPath))

	stdout, stderr, err := runKeeper(t, binaryPath, home, documentsPath, "info")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Account: player@example.com (active)")

	stdout, stderr, err = runKeeper(t, binaryPath, home, documentsPath, "sync")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Document synced at")

	stdout, stderr, err = runKeeper(t, binaryPath, home, documentsPath, "info", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `"state": "ready"`)
	assert.NotContains(t, stdout, "smoke-cookie")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "keeper-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/keeper")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build keeper binary: %s", string(output))
	return binaryPath
}

func runKeeper(t *testing.T, binaryPath, home, documentsPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"KEEPER_STORE=file",
		"KEEPER_FILE_PATH="+documentsPath,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeDocumentsFixture(path string) error {
	documents := `version = 1

[[documents]]
name = "boxtoplay.json"
updated_at = "2026-03-01T10:00:00Z"
content = """
{
  "accounts": [
    {"email": "player@example.com", "cookies": {"BOXTOPLAY_SESSION": "smoke-cookie"}}
  ],
  "active_account_index": 0,
  "current_server_id": "1001",
  "last_sync_time": "2026-03-01T10:00:00Z"
}
"""
`

	return os.WriteFile(path, []byte(documents), 0o600)
}
