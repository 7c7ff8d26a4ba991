package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/racer/internal/config"
	"github.com/zeusync/racer/internal/core/track"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "racer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

const straightCourse = `
logging:
  level: error
track:
  checkpoints:
    - label: "Checkpoint (2)"
      position: {x: 0, y: 0, z: 20}
    - label: "Checkpoint (1)"
      position: {x: 0, y: 0, z: 10}
`

func TestCourseCommand(t *testing.T) {
	out, err := execute(t, "course", "--config", writeConfig(t, straightCourse))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "INDEX"))
	assert.Contains(t, lines[1], "Checkpoint (1)")
	assert.Contains(t, lines[2], "Checkpoint (2)")
	assert.Regexp(t, `^fingerprint [0-9a-f]{16}$`, lines[3])
}

func TestCourseCommandLabel(t *testing.T) {
	path := writeConfig(t, straightCourse)
	out, err := execute(t, "course", "--config", path, "--label", "Checkpoint (2)")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1 "))
	assert.Contains(t, lines[1], "20.00")

	_, err = execute(t, "course", "--config", path, "--label", "Checkpoint (9)")
	assert.ErrorIs(t, err, track.ErrUnknownLabel)
}

func TestCourseCommandUsesEnvVar(t *testing.T) {
	t.Setenv(config.EnvVar, writeConfig(t, straightCourse))
	out, err := execute(t, "course")
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint (2)")
	assert.NotContains(t, out, "Checkpoint (8)")
}

func TestCourseCommandDefaults(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	out, err := execute(t, "course")
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint (8)")
}

func TestRunCommand(t *testing.T) {
	path := writeConfig(t, straightCourse)
	out, err := execute(t, "run", "--config", path,
		"--agents", "2", "--episodes", "2", "--policy", "heading")
	require.NoError(t, err)
	assert.Contains(t, out, "4 episodes")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "contacts: 8 checkpoint entries, 0 wall contacts")
}

func TestRunCommandRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "run", "--config", writeConfig(t, straightCourse), "--agents", "0")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
