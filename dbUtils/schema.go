package dbutils

import (
	"context"
	"fmt"

	engine "shotbench/benchmark/engines/abstract"
	"shotbench/config"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	zlog "github.com/rs/zerolog/log"
)

// rows inserted per statement
const batchSize = 100

type contextRow struct {
	ID          string  `db:"id"`
	ContextType string  `db:"context_type"`
	ParentID    *string `db:"parent_id"`
	Name        string  `db:"name"`
}

type showRow struct {
	ShowID   string `db:"showid"`
	FullName string `db:"fullname"`
	Status   string `db:"status"`
	IsGlobal bool   `db:"isglobal"`
}

type taskRow struct {
	TaskID       string  `db:"taskid"`
	ObjectTypeID string  `db:"object_typeid"`
	ShowID       string  `db:"showid"`
	IsOpen       bool    `db:"isopen"`
	Sort         float64 `db:"sort"`
}

// Creates the project/context/task tables on a local mirror database, if missing.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	show := QuoteIdent(db.DriverName(), "show")
	statements := []string{
		`create table if not exists object_type (
			typeid varchar(36) primary key,
			name varchar(255))`,
		`create table if not exists context (
			id varchar(36) primary key,
			context_type varchar(32),
			parent_id varchar(36),
			name varchar(255))`,
		`create table if not exists ` + show + ` (
			showid varchar(36) primary key,
			fullname varchar(255),
			root varchar(255),
			startdate date,
			enddate date,
			status varchar(32),
			diskid varchar(36),
			projectschemeid varchar(36),
			thumbid varchar(36),
			isglobal boolean)`,
		`create table if not exists task (
			taskid varchar(36) primary key,
			description text,
			startdate date,
			enddate date,
			statusid varchar(36),
			typeid varchar(36),
			isopen boolean,
			thumbid varchar(36),
			sort float,
			object_typeid varchar(36),
			showid varchar(36),
			priorityid varchar(36))`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	objectTypes := map[string]string{
		engine.ShotTypeID:     "Shot",
		engine.SequenceTypeID: "Sequence",
		engine.TaskTypeID:     "Task",
	}
	for id, name := range objectTypes {
		var n int
		if err := db.GetContext(ctx, &n, db.Rebind("select count(*) from object_type where typeid = ?"), id); err != nil {
			return err
		}
		if n == 0 {
			if _, err := db.ExecContext(ctx, db.Rebind("insert into object_type (typeid, name) values (?, ?)"), id, name); err != nil {
				return err
			}
		}
	}

	return nil
}

// Project name of the i-th fixture project (1-based)
func ProjectName(i int) string {
	return fmt.Sprintf("perf_test_%d", i)
}

type Stats struct {
	Projects  int
	Sequences int
	Shots     int
	Tasks     int
}

// Inserts fixture projects, sequences, shots and tasks directly through SQL, one
// transaction per project.
func Populate(ctx context.Context, db *sqlx.DB, q config.Quantities) (Stats, error) {
	stats := Stats{}

	for p := 1; p <= q.Projects; p++ {
		var contexts []contextRow
		var tasks []taskRow

		projectID := uuid.NewString()
		contexts = append(contexts, contextRow{ID: projectID, ContextType: "show", Name: ProjectName(p)})
		show := showRow{ShowID: projectID, FullName: ProjectName(p), Status: "active"}

		add := func(parent string, name string, objectType string, sort int) string {
			id := uuid.NewString()
			contexts = append(contexts, contextRow{ID: id, ContextType: "task", ParentID: &parent, Name: name})
			tasks = append(tasks, taskRow{TaskID: id, ObjectTypeID: objectType, ShowID: projectID, IsOpen: true, Sort: float64(sort)})
			return id
		}

		for s := 1; s <= q.SequencesPerProject; s++ {
			seqID := add(projectID, fmt.Sprintf("seq_%d", s), engine.SequenceTypeID, s)
			stats.Sequences++
			for sh := 1; sh <= q.ShotsPerSequence; sh++ {
				shotID := add(seqID, fmt.Sprintf("shot_%03d", sh), engine.ShotTypeID, sh)
				stats.Shots++
				for t := 1; t <= q.TasksPerShot; t++ {
					add(shotID, fmt.Sprintf("task_%d", t), engine.TaskTypeID, t)
					stats.Tasks++
				}
			}
		}

		if err := insertProject(ctx, db, show, contexts, tasks); err != nil {
			return stats, fmt.Errorf("populate %s: %w", ProjectName(p), err)
		}
		stats.Projects++
		zlog.Info().Str("benchmark", "populate").Str("project", ProjectName(p)).Int("rows", len(contexts)).Msg("inserted")
	}

	return stats, nil
}

func insertProject(ctx context.Context, db *sqlx.DB, show showRow, contexts []contextRow, tasks []taskRow) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	showTable := QuoteIdent(db.DriverName(), "show")
	if _, err := tx.NamedExecContext(ctx, `insert into `+showTable+` (showid, fullname, status, isglobal)
		values (:showid, :fullname, :status, :isglobal)`, show); err != nil {
		return err
	}

	for start := 0; start < len(contexts); start += batchSize {
		batch := contexts[start:min(start+batchSize, len(contexts))]
		if _, err := tx.NamedExecContext(ctx, `insert into context (id, context_type, parent_id, name)
			values (:id, :context_type, :parent_id, :name)`, batch); err != nil {
			return err
		}
	}

	for start := 0; start < len(tasks); start += batchSize {
		batch := tasks[start:min(start+batchSize, len(tasks))]
		if _, err := tx.NamedExecContext(ctx, `insert into task (taskid, object_typeid, showid, isopen, sort)
			values (:taskid, :object_typeid, :showid, :isopen, :sort)`, batch); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Deletes the named projects and every context and task below them. Returns the number of
// projects found and deleted.
func Purge(ctx context.Context, db *sqlx.DB, projects []string) (int, error) {
	showTable := QuoteIdent(db.DriverName(), "show")
	deleted := 0

	for _, name := range projects {
		var ids []string
		if err := db.SelectContext(ctx, &ids, db.Rebind("select showid from "+showTable+" where fullname = ?"), name); err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			continue
		}

		// collect the whole tree, level by level
		all := append([]string(nil), ids...)
		level := ids
		for len(level) > 0 {
			query, args, err := sqlx.In("select id from context where parent_id in (?)", level)
			if err != nil {
				return deleted, err
			}
			var children []string
			if err := db.SelectContext(ctx, &children, db.Rebind(query), args...); err != nil {
				return deleted, err
			}
			all = append(all, children...)
			level = children
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return deleted, err
		}
		for start := 0; start < len(all); start += batchSize {
			batch := all[start:min(start+batchSize, len(all))]
			for _, stmt := range []string{
				"delete from task where taskid in (?)",
				"delete from context where id in (?)",
				"delete from " + showTable + " where showid in (?)",
			} {
				query, args, err := sqlx.In(stmt, batch)
				if err != nil {
					tx.Rollback()
					return deleted, err
				}
				if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
					tx.Rollback()
					return deleted, err
				}
			}
		}
		if err := tx.Commit(); err != nil {
			return deleted, err
		}

		deleted++
		zlog.Info().Str("benchmark", "purge").Str("project", name).Int("contexts", len(all)).Msg("deleted")
	}

	return deleted, nil
}

// Names of the first n fixture projects
func ProjectNames(n int) []string {
	names := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		names = append(names, ProjectName(i))
	}
	return names
}
