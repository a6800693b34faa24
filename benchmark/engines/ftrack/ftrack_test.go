package ftrack_engine

import (
	"context"
	"fmt"
	"testing"

	engine "shotbench/benchmark/engines/abstract"
	"shotbench/config"
	"shotbench/ftrack"
	"shotbench/ftrack/ftracktest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(srv *ftracktest.Server) {
	for p := 1; p <= 2; p++ {
		project := srv.Add("Project", map[string]any{"name": fmt.Sprintf("perf_test_%d", p)})
		for s := 1; s <= 2; s++ {
			seq := srv.Add("Sequence", map[string]any{"name": fmt.Sprintf("seq_%d", s), "parent_id": project.ID()})
			for sh := 1; sh <= 3; sh++ {
				srv.Add("Shot", map[string]any{"name": fmt.Sprintf("shot_%03d", sh), "parent_id": seq.ID()})
			}
		}
	}
}

func fetch(ctx context.Context, e engine.Shots, q engine.ShotQuery, mode config.ResultMode) ([]string, error) {
	defer e.Close()
	if err := e.Connect(ctx); err != nil {
		return nil, err
	}
	if err := e.Prepare(ctx, q); err != nil {
		return nil, err
	}
	return e.Fetch(ctx, mode)
}

func TestResultModes(t *testing.T) {
	srv := ftracktest.NewServer()
	defer srv.Close()
	seed(srv)
	ctx := context.Background()

	var shots engine.Shots = New(ftrack.Options{ServerURL: srv.URL, APIKey: ftracktest.APIKey})
	sequence := engine.ShotQuery{Project: "perf_test_2", Sequence: "seq_1"}

	all, err := fetch(ctx, shots, sequence, config.ModeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"shot_001", "shot_002", "shot_003"}, all)

	first, err := fetch(ctx, shots, sequence, config.ModeFirst)
	require.NoError(t, err)
	assert.Equal(t, []string{"shot_001"}, first)

	all, err = fetch(ctx, shots, engine.ShotQuery{}, config.ModeAll)
	require.NoError(t, err)
	assert.Len(t, all, 12)

	first, err = fetch(ctx, shots, engine.ShotQuery{}, config.ModeFirst)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	_, err = fetch(ctx, shots, engine.ShotQuery{Project: "perf_test_3", Sequence: "seq_1"}, config.ModeFirst)
	assert.ErrorIs(t, err, engine.ErrNoResults)
}

func TestConnectReachesServer(t *testing.T) {
	srv := ftracktest.NewServer()
	defer srv.Close()
	ctx := context.Background()

	e := New(ftrack.Options{ServerURL: srv.URL, APIKey: ftracktest.APIKey})
	require.NoError(t, e.Connect(ctx))
	assert.Equal(t, 1, srv.Requests())

	assert.Error(t, New(ftrack.Options{ServerURL: srv.URL, APIKey: "wrong"}).Connect(ctx))
}

func TestStepsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	e := New(ftrack.Options{})
	_, err := e.Fetch(ctx, config.ModeAll)
	assert.Error(t, err)
	assert.Error(t, e.Prepare(ctx, engine.ShotQuery{}))
	assert.Error(t, e.Connect(ctx))
	e.Close()
}
