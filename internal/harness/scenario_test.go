package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, "ok.yaml", `
name: ok
request: '{"action":"resolve","query":"x"}'
fail_scripts:
  - send-to-chat-id
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, `{"action":"resolve","query":"x"}`, s.Request)
	assert.Equal(t, []string{"send-to-chat-id"}, s.FailScripts)
}

func TestLoadScenarioMissingName(t *testing.T) {
	path := writeScenario(t, "bad.yaml", `request: '{}'`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenarioMissingRequest(t *testing.T) {
	path := writeScenario(t, "bad.yaml", `name: bad`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request is required")
}

func TestLoadScenarioBadYAML(t *testing.T) {
	path := writeScenario(t, "bad.yaml", "name: [unterminated")
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenariosSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yaml"} {
		body := "name: " + name + "\nrequest: '{}'\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a.yaml", scenarios[0].Name)
	assert.Equal(t, "b.yaml", scenarios[1].Name)
}
