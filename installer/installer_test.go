package installer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcomposer/agentcomposer/log"
)

// fakeGoGet writes a script that succeeds for every module except example.com/missing.
func fakeGoGet(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script installer")
	}
	dir := t.TempDir()
	record := filepath.Join(dir, "calls.txt")
	script := filepath.Join(dir, "fake-go")
	body := `#!/bin/sh
echo "$2" >> "` + record + `"
if [ "$2" = "example.com/missing" ]; then
  echo "go: module example.com/missing: not found" >&2
  exit 1
fi
echo "go: added $2 v1.0.0"
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script, record
}

func TestInstallAllContinuesPastFailure(t *testing.T) {
	script, record := fakeGoGet(t)
	var logs bytes.Buffer
	inst := New(WithCommand(script, "get"), WithLogger(log.NewCustomLogger(&logs, log.LogLevelDebug)))

	modules := []string{"github.com/google/uuid", "example.com/missing", "github.com/joho/godotenv"}
	outcomes := inst.InstallAll(context.Background(), modules)

	require.Len(t, outcomes, 3)
	assert.Equal(t, StatusInstalled, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Equal(t, 1, outcomes[1].ExitCode)
	assert.Contains(t, outcomes[1].Stderr, "not found")
	assert.Equal(t, StatusInstalled, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Stdout, "added github.com/joho/godotenv")

	var failure *InstallFailure
	require.ErrorAs(t, outcomes[1].Err, &failure)
	assert.Equal(t, "example.com/missing", failure.Module)

	calls, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, "github.com/google/uuid\nexample.com/missing\ngithub.com/joho/godotenv\n", string(calls))

	assert.Contains(t, logs.String(), "install example.com/missing")
	assert.Len(t, Failed(outcomes), 1)
}

func TestInstallSkipsStandardLibrary(t *testing.T) {
	script, record := fakeGoGet(t)
	inst := New(WithCommand(script, "get"))

	outcomes := inst.InstallAll(context.Background(), []string{"context", "net/http"})
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, StatusSkipped, o.Status)
	}
	assert.NoFileExists(t, record)
}

func TestInstallRejectsInvalidPath(t *testing.T) {
	o := New().Install(context.Background(), "example.com/bad path")
	assert.Equal(t, StatusFailed, o.Status)
	assert.Error(t, o.Err)
}

func TestInstallMissingCommand(t *testing.T) {
	inst := New(WithCommand(filepath.Join(t.TempDir(), "no-such-binary")))
	o := inst.Install(context.Background(), "github.com/google/uuid")
	assert.Equal(t, StatusFailed, o.Status)
	assert.Zero(t, o.ExitCode)
	assert.Error(t, o.Err)
}

func TestIsStandardLibrary(t *testing.T) {
	assert.True(t, IsStandardLibrary("context"))
	assert.True(t, IsStandardLibrary("net/http"))
	assert.False(t, IsStandardLibrary("github.com/google/uuid"))
	assert.False(t, IsStandardLibrary("golang.org/x/mod/module"))
}
