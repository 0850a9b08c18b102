package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlText := "driver: sqlite3\nurl: \"" + filepath.Join(dir, "data.db") + "\"\nschema: default\nschemaObjectPrefix: JR\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))
	return path
}

func TestInitSchemaThenPutThenGet(t *testing.T) {
	configPath := writeTestConfig(t)

	initCmd := NewRootCommand()
	initCmd.SetArgs([]string{"--config", configPath, "init-schema"})
	require.NoError(t, initCmd.Execute())

	putCmd := NewRootCommand()
	var putOut bytes.Buffer
	putCmd.SetOut(&putOut)
	putCmd.SetArgs([]string{"--config", configPath, "put", "--prop", "1:2=hello"})
	require.NoError(t, putCmd.Execute())

	id := bytes.TrimSpace(putOut.Bytes())
	require.NotEmpty(t, id)

	getCmd := NewRootCommand()
	var getOut bytes.Buffer
	getCmd.SetOut(&getOut)
	getCmd.SetArgs([]string{"--config", configPath, "get", "--id", string(id)})
	require.NoError(t, getCmd.Execute())
	require.Contains(t, getOut.String(), "hello")
}

func TestCheckReportsCleanTreeAsExitSuccess(t *testing.T) {
	configPath := writeTestConfig(t)

	initCmd := NewRootCommand()
	initCmd.SetArgs([]string{"--config", configPath, "init-schema"})
	require.NoError(t, initCmd.Execute())

	checkCmd := NewRootCommand()
	var out bytes.Buffer
	checkCmd.SetOut(&out)
	checkCmd.SetArgs([]string{"--config", configPath, "check"})
	require.NoError(t, checkCmd.Execute())
	require.Contains(t, out.String(), "scanned=0")
}
