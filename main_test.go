package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"shotbench/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-log"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestHelpListsTests(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Regexp(t, `orm_02\s+all shots, gorm`, out)
	assert.Regexp(t, `sql_seed\s+insert the fixture projects`, out)
}

func TestBuildConfigOverridesOnlyGivenKeys(t *testing.T) {
	var out bytes.Buffer
	cfg, err := buildConfig(&options{globals: []string{"PROJECT_NAME=perf_test_3", "FTRACK_APIKEY=secret"}}, &out)
	require.NoError(t, err)

	want := config.Default()
	want.ProjectName = "perf_test_3"
	want.FtrackAPIKey = "secret"
	assert.Equal(t, want, cfg)
	assert.Equal(t, "Overriding PROJECT_NAME with perf_test_3\nOverriding FTRACK_APIKEY with ****\n", out.String())

	_, err = buildConfig(&options{globals: []string{"NOPE=1"}}, &out)
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestInvalidArguments(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)

	_, err = execute(t, "orm_03")
	assert.Error(t, err)

	_, err = execute(t, "sql_01", "-r", "0")
	assert.Error(t, err)

	out, err := execute(t, "sql_01", "-g", "DB=sqlite://")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
	assert.NotContains(t, out, "Running test")

	_, err = execute(t, "sql_01", "-g", "RESULT_MODE=some")
	assert.Error(t, err)
}

func TestMissingCredentials(t *testing.T) {
	_, err := execute(t, "ftrack_01")
	assert.ErrorContains(t, err, config.FtrackServer)

	_, err = execute(t, "orm_02")
	assert.ErrorContains(t, err, config.DBURI)
}

func TestRun(t *testing.T) {
	uri := "DB_URI=sqlite:///" + filepath.Join(t.TempDir(), "ftrack.db")
	quantities := []string{"-g", "PROJECTS=1", "-g", "SEQUENCES_PER_PROJECT=2", "-g", "SHOTS_PER_SEQUENCES=3", "-g", "TASKS_PER_SHOT=1"}

	_, err := execute(t, append([]string{"sql_seed", "-g", uri}, quantities...)...)
	require.NoError(t, err)

	out, err := execute(t, "sql_01", "-r", "2", "-g", uri)
	require.NoError(t, err)
	assert.Contains(t, out, "Overriding DB_URI with ****\n")
	assert.Contains(t, out, "Running test sql_01\n")
	assert.Regexp(t, `sql_01: Total Average \(2 runs\): \d+\.\d{6}\n`, out)
	assert.NotContains(t, out, "num shots")

	out, err = execute(t, "orm_02", "-v", "--summary", "-g", uri, "-g", "RESULT_MODE=all")
	require.NoError(t, err)
	assert.Contains(t, out, "Overriding RESULT_MODE with all\n")
	assert.Contains(t, out, "\n>>> engine\n")
	assert.Contains(t, out, "\n>>> fetch\n")
	assert.Contains(t, out, "num shots: 6\n")
	assert.Contains(t, out, "Csv:orm_02,all,1,")
	assert.Contains(t, out, "rtP95: ")

	_, err = execute(t, "sql_purge", "-g", uri, "-g", "PROJECTS=1")
	require.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	uri := "sqlite:///" + filepath.Join(dir, "ftrack.db")
	require.NoError(t, os.WriteFile(path, []byte("DB_URI: "+uri+"\nPROJECTS: 1\nSEQUENCES_PER_PROJECT: 1\nSHOTS_PER_SEQUENCES: 2\nTASKS_PER_SHOT: 0\n"), 0o644))

	_, err := execute(t, "sql_seed", "--conf", path)
	require.NoError(t, err)

	out, err := execute(t, "sql_02", "--conf", path, "-v", "-g", "RESULT_MODE=first")
	require.NoError(t, err)
	assert.Contains(t, out, "shot name: shot_00")
}
