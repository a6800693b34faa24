package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, c *Config) map[string]string {
	t.Helper()
	values := map[string]string{}
	for _, k := range Keys() {
		v, err := c.Get(k)
		require.NoError(t, err)
		values[k] = v
	}
	return values
}

func TestOverrideUpdatesOnlyThatKey(t *testing.T) {
	values := map[string]string{
		FtrackServer:        "http://ftrack.example.com",
		FtrackAPIKey:        "secret",
		FtrackAPIUser:       "bench",
		DBURI:               "mysql://u:p@db:3306/ftrack",
		ProjectName:         "other_project",
		SequenceName:        "seq_9",
		Projects:            "3",
		SequencesPerProject: "4",
		ShotsPerSequence:    "5",
		TasksPerShot:        "6",
		ResultModeKey:       "first",
	}

	for _, key := range Keys() {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			before := snapshot(t, cfg)

			require.NoError(t, cfg.Override([]string{key + "=" + values[key]}, io.Discard))

			after := snapshot(t, cfg)
			for k := range before {
				if k == key {
					assert.Equal(t, values[key], after[k])
				} else {
					assert.Equal(t, before[k], after[k], "key %s changed", k)
				}
			}
		})
	}
}

func TestOverrideUnknownKey(t *testing.T) {
	cfg := Default()
	before := snapshot(t, cfg)

	err := cfg.Override([]string{"NOT_A_KEY=1"}, io.Discard)
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "NOT_A_KEY")
	assert.Contains(t, err.Error(), ResultModeKey)
	assert.Equal(t, before, snapshot(t, cfg))
}

func TestOverrideErrors(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{"missing equals", "PROJECTS"},
		{"non integer quantity", "PROJECTS=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Default().Override([]string{tt.item}, io.Discard))
		})
	}
}

func TestOverrideValueWithEquals(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Override([]string{"DB_URI=postgres://u:p@h/db?sslmode=disable&x=y"}, io.Discard))
	assert.Equal(t, "postgres://u:p@h/db?sslmode=disable&x=y", cfg.DBURI)
}

func TestOverrideEcho(t *testing.T) {
	cfg := Default()
	var out bytes.Buffer
	require.NoError(t, cfg.Override([]string{"PROJECTS=07", "FTRACK_APIKEY=secret", "DB_URI=sqlite://"}, &out))
	assert.Equal(t, "Overriding PROJECTS with 7\n"+
		"Overriding FTRACK_APIKEY with ****\n"+
		"Overriding DB_URI with ****\n", out.String())
	assert.NotContains(t, out.String(), "secret")

	out.Reset()
	assert.Error(t, cfg.Override([]string{"NOT_A_KEY=1"}, &out))
	assert.Empty(t, out.String())
}

func TestDefaultsHaveNoCredentials(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.FtrackServer)
	assert.Empty(t, cfg.FtrackAPIKey)
	assert.Empty(t, cfg.DBURI)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.RequireFtrack())
	assert.Error(t, cfg.RequireDatabase())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"first mode", func(c *Config) { c.ResultMode = ModeFirst }, false},
		{"bad mode", func(c *Config) { c.ResultMode = "some" }, true},
		{"negative quantity", func(c *Config) { c.TasksPerShot = -1 }, true},
		{"bad server", func(c *Config) { c.FtrackServer = "not a url" }, true},
		{"bad pushgateway", func(c *Config) { c.Report.Pushgateway = "::" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestRequireFtrack(t *testing.T) {
	cfg := Default()
	cfg.FtrackServer = "http://localhost:8080"
	assert.Error(t, cfg.RequireFtrack())
	cfg.FtrackAPIKey = "key"
	assert.NoError(t, cfg.RequireFtrack())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
FTRACK_SERVER: http://ftrack.local
DB_URI: sqlite:///tmp/ftrack.db
RESULT_MODE: first
SHOTS_PER_SEQUENCES: 5
report:
  pushgateway: http://pushgateway:9091
  influx:
    url: http://influx:8086
    bucket: bench
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://ftrack.local", cfg.FtrackServer)
	assert.Equal(t, "sqlite:///tmp/ftrack.db", cfg.DBURI)
	assert.Equal(t, ModeFirst, cfg.ResultMode)
	assert.Equal(t, 5, cfg.ShotsPerSequence)
	assert.Equal(t, 10, cfg.Projects)
	assert.Equal(t, "perf_test_1", cfg.ProjectName)
	assert.Equal(t, "http://pushgateway:9091", cfg.Report.Pushgateway)
	assert.Equal(t, "bench", cfg.Report.Influx.Bucket)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTotals(t *testing.T) {
	p, s, sh, tk := Quantities{2, 3, 4, 5}.Totals()
	assert.Equal(t, []int{2, 6, 24, 120}, []int{p, s, sh, tk})
}
