// Package shots holds the timed shot queries, one per backend and query shape.
package shots

import (
	"context"
	"fmt"
	"io"

	engine "shotbench/benchmark/engines/abstract"
	ftrack_engine "shotbench/benchmark/engines/ftrack"
	native_engine "shotbench/benchmark/engines/native"
	orm_engine "shotbench/benchmark/engines/orm"
	"shotbench/config"
	"shotbench/ftrack"
	"shotbench/worker"
)

// Query selects the shape of a shot query.
type Query int

const (
	// shots of the configured sequence
	SequenceShots Query = iota + 1
	// every shot
	AllShots
)

// Prints what was fetched: the count in "all" mode, the name in "first" mode.
func printResult(out io.Writer, names []string, mode config.ResultMode) {
	if mode == config.ModeFirst {
		fmt.Fprintln(out, "shot name:", names[0])
		return
	}
	fmt.Fprintln(out, "num shots:", len(names))
}

// Shots times one backend. Every repetition opens a fresh engine and runs its connect
// steps, then the query step, then the fetch.
type Shots struct {
	cfg     *config.Config
	out     io.Writer
	query   Query
	require func() error
	// name of the step that builds or executes the query
	queryStep string
	open      func() (engine.Shots, []worker.Step)
}

func (b *Shots) Setup(context.Context) error {
	return b.require()
}

func (b *Shots) shotQuery() engine.ShotQuery {
	if b.query == SequenceShots {
		return engine.ShotQuery{Project: b.cfg.ProjectName, Sequence: b.cfg.SequenceName}
	}
	return engine.ShotQuery{}
}

func (b *Shots) Test(context.Context) (*worker.Invocation, error) {
	e, steps := b.open()
	q := b.shotQuery()
	mode := b.cfg.ResultMode

	steps = append(steps,
		worker.Step{Name: b.queryStep, Fn: func(ctx context.Context) error {
			return e.Prepare(ctx, q)
		}},
		worker.Step{Name: "fetch", Fn: func(ctx context.Context) error {
			names, err := e.Fetch(ctx, mode)
			if err != nil {
				return err
			}
			printResult(b.out, names, mode)
			return nil
		}},
	)
	return &worker.Invocation{Steps: steps, Release: e.Close}, nil
}

// NewFtrack times the vendor API client.
func NewFtrack(cfg *config.Config, out io.Writer, query Query) *Shots {
	return &Shots{
		cfg: cfg, out: out, query: query,
		require:   cfg.RequireFtrack,
		queryStep: "query",
		open: func() (engine.Shots, []worker.Step) {
			e := ftrack_engine.New(ftrack.Options{
				ServerURL: cfg.FtrackServer,
				APIKey:    cfg.FtrackAPIKey,
				APIUser:   cfg.FtrackAPIUser,
			})
			return e, []worker.Step{{Name: "session", Fn: e.Connect}}
		},
	}
}

// NewOrm times gorm over the database schema.
func NewOrm(cfg *config.Config, out io.Writer, query Query) *Shots {
	return &Shots{
		cfg: cfg, out: out, query: query,
		require:   cfg.RequireDatabase,
		queryStep: "query",
		open: func() (engine.Shots, []worker.Step) {
			e := orm_engine.New(cfg.DBURI)
			return e, []worker.Step{
				{Name: "engine", Fn: e.Connect},
				{Name: "session", Fn: e.Session},
			}
		},
	}
}

// NewSql times raw SQL over a driver connection.
func NewSql(cfg *config.Config, out io.Writer, query Query) *Shots {
	return &Shots{
		cfg: cfg, out: out, query: query,
		require:   cfg.RequireDatabase,
		queryStep: "execute",
		open: func() (engine.Shots, []worker.Step) {
			e := native_engine.New(cfg.DBURI)
			return e, []worker.Step{{Name: "connect", Fn: e.Connect}}
		},
	}
}
