package ftrack_engine

import (
	"context"
	"errors"

	engine "shotbench/benchmark/engines/abstract"
	"shotbench/config"
	"shotbench/ftrack"
)

// Ftrack queries shots through the vendor API. Its steps are exposed separately so that
// session construction, query preparation and fetching can be timed on their own.
type Ftrack struct {
	opts    ftrack.Options
	session *ftrack.Session
	query   *ftrack.QueryResult
}

func New(opts ftrack.Options) *Ftrack {
	return &Ftrack{opts: opts}
}

// Connect creates the API session, which reaches the server once.
func (f *Ftrack) Connect(ctx context.Context) error {
	session, err := ftrack.Connect(ctx, f.opts)
	if err != nil {
		return err
	}
	f.session = session
	return nil
}

func (f *Ftrack) Prepare(_ context.Context, q engine.ShotQuery) error {
	if f.session == nil {
		return errors.New("ftrack: not connected")
	}
	if q.All() {
		f.query = f.session.Query("select name from Shot")
	} else {
		f.query = f.session.Query(ftrack.Expr(`select name from Shot where project.name = %s and parent.name = %s`,
			q.Project, q.Sequence))
	}
	return nil
}

// Fetch runs the prepared query and returns the shot names.
func (f *Ftrack) Fetch(ctx context.Context, mode config.ResultMode) ([]string, error) {
	if f.query == nil {
		return nil, errors.New("ftrack: no query prepared")
	}

	if mode == config.ModeFirst {
		shot, err := f.query.First(ctx)
		if err != nil {
			return nil, err
		}
		if shot == nil {
			return nil, engine.ErrNoResults
		}
		return []string{shot.String("name")}, nil
	}

	shots, err := f.query.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(shots))
	for _, s := range shots {
		names = append(names, s.String("name"))
	}
	return names, nil
}

// Close drops the session; the API keeps no connection open.
func (f *Ftrack) Close() {
	f.session, f.query = nil, nil
}
