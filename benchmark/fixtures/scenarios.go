package fixtures

import (
	"context"
	"fmt"
	"io"

	"shotbench/config"
	dbutils "shotbench/dbUtils"
	"shotbench/ftrack"
	"shotbench/worker"

	"github.com/jmoiron/sqlx"
)

// Api creates or removes the fixtures through the vendor API.
type Api struct {
	cfg    *config.Config
	out    io.Writer
	remove bool
}

func NewCreate(cfg *config.Config, out io.Writer) *Api {
	return &Api{cfg: cfg, out: out}
}

func NewCleanup(cfg *config.Config, out io.Writer) *Api {
	return &Api{cfg: cfg, out: out, remove: true}
}

func (b *Api) Setup(context.Context) error {
	return b.cfg.RequireFtrack()
}

func (b *Api) Test(context.Context) (*worker.Invocation, error) {
	var session *ftrack.Session

	connect := func(ctx context.Context) error {
		var err error
		session, err = ftrack.Connect(ctx, ftrack.Options{
			ServerURL: b.cfg.FtrackServer,
			APIKey:    b.cfg.FtrackAPIKey,
			APIUser:   b.cfg.FtrackAPIUser,
		})
		return err
	}

	if b.remove {
		return &worker.Invocation{Steps: []worker.Step{
			{Name: "session", Fn: connect},
			{Name: "cleanup", Fn: func(ctx context.Context) error {
				stats, err := Cleanup(ctx, session, b.cfg.Projects)
				if err != nil {
					return err
				}
				fmt.Fprintln(b.out, "deleted projects:", stats.Projects)
				return nil
			}},
		}}, nil
	}

	return &worker.Invocation{Steps: []worker.Step{
		{Name: "session", Fn: connect},
		{Name: "create", Fn: func(ctx context.Context) error {
			stats, err := Create(ctx, session, b.cfg.Quantities)
			if err != nil {
				return err
			}
			fmt.Fprintf(b.out, "created %d projects, %d sequences, %d shots, %d tasks in %d commits\n",
				stats.Projects, stats.Sequences, stats.Shots, stats.Tasks, stats.Commits)
			return nil
		}},
	}}, nil
}

// Sql seeds or purges the fixtures directly in the database.
type Sql struct {
	cfg   *config.Config
	out   io.Writer
	purge bool
}

func NewSeed(cfg *config.Config, out io.Writer) *Sql {
	return &Sql{cfg: cfg, out: out}
}

func NewPurge(cfg *config.Config, out io.Writer) *Sql {
	return &Sql{cfg: cfg, out: out, purge: true}
}

func (b *Sql) Setup(context.Context) error {
	return b.cfg.RequireDatabase()
}

func (b *Sql) Test(context.Context) (*worker.Invocation, error) {
	var db *sqlx.DB
	inv := &worker.Invocation{
		Release: func() {
			if db != nil {
				db.Close()
			}
		},
	}

	connect := worker.Step{Name: "connect", Fn: func(context.Context) error {
		var err error
		db, err = dbutils.Open(b.cfg.DBURI)
		return err
	}}

	if b.purge {
		inv.Steps = []worker.Step{
			connect,
			{Name: "purge", Fn: func(ctx context.Context) error {
				deleted, err := dbutils.Purge(ctx, db, dbutils.ProjectNames(b.cfg.Projects))
				if err != nil {
					return err
				}
				fmt.Fprintln(b.out, "deleted projects:", deleted)
				return nil
			}},
		}
		return inv, nil
	}

	inv.Steps = []worker.Step{
		connect,
		{Name: "schema", Fn: func(ctx context.Context) error {
			return dbutils.CreateSchema(ctx, db)
		}},
		{Name: "populate", Fn: func(ctx context.Context) error {
			stats, err := dbutils.Populate(ctx, db, b.cfg.Quantities)
			if err != nil {
				return err
			}
			fmt.Fprintf(b.out, "inserted %d projects, %d sequences, %d shots, %d tasks\n",
				stats.Projects, stats.Sequences, stats.Shots, stats.Tasks)
			return nil
		}},
	}
	return inv, nil
}
