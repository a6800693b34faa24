package native

import (
	"context"
	"errors"
	"fmt"

	engine "shotbench/benchmark/engines/abstract"
	"shotbench/config"
	dbutils "shotbench/dbUtils"

	"github.com/jmoiron/sqlx"
)

// Native issues literal SQL over a direct driver connection and reads rows as maps.
type Native struct {
	uri  string
	db   *sqlx.DB
	rows *sqlx.Rows
}

func New(uri string) *Native {
	return &Native{uri: uri}
}

// Connect opens and pings a fresh connection.
func (n *Native) Connect(context.Context) error {
	db, err := dbutils.Open(n.uri)
	if err != nil {
		return err
	}
	n.db = db
	return nil
}

func (n *Native) sequenceShotsQuery() string {
	show := dbutils.QuoteIdent(n.db.DriverName(), "show")
	return n.db.Rebind(`
		SELECT context.name FROM task, context
		JOIN (
			SELECT context.id FROM context
			JOIN ` + show + ` ON ` + show + `.showid = context.parent_id
			WHERE context.name = ?
			AND ` + show + `.fullname = ?
		) AS anon_1 ON anon_1.id = context.parent_id
		WHERE task.taskid = context.id
		AND task.object_typeid IN (?)
	`)
}

func (n *Native) allShotsQuery() string {
	return n.db.Rebind(`
		SELECT context.name FROM task, context
		WHERE context.id = task.taskid
		AND task.object_typeid IN (?)
	`)
}

// Prepare executes the query; rows are read by Fetch.
func (n *Native) Prepare(ctx context.Context, q engine.ShotQuery) error {
	if n.db == nil {
		return errors.New("native: not connected")
	}
	if q.All() {
		return n.execute(ctx, n.allShotsQuery(), engine.ShotTypeID)
	}
	return n.execute(ctx, n.sequenceShotsQuery(), q.Sequence, q.Project, engine.ShotTypeID)
}

func (n *Native) execute(ctx context.Context, query string, args ...any) error {
	rows, err := n.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n.rows = rows
	return nil
}

// Fetch reads the executed query's rows: one in "first" mode, all of them otherwise.
func (n *Native) Fetch(_ context.Context, mode config.ResultMode) ([]string, error) {
	if n.rows == nil {
		return nil, errors.New("native: no query executed")
	}
	defer func() {
		n.rows.Close()
		n.rows = nil
	}()

	names := []string{}
	for n.rows.Next() {
		row := map[string]any{}
		if err := n.rows.MapScan(row); err != nil {
			return nil, err
		}
		name, err := columnString(row, "name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if mode == config.ModeFirst {
			break
		}
	}
	if err := n.rows.Err(); err != nil {
		return nil, err
	}

	return engine.Result(names, mode)
}

// Drivers return text columns either as string or []byte.
func columnString(row map[string]any, column string) (string, error) {
	switch v := row[column].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unexpected type %T for column %s", v, column)
	}
}

func (n *Native) Close() {
	if n.rows != nil {
		n.rows.Close()
		n.rows = nil
	}
	if n.db != nil {
		n.db.Close()
		n.db = nil
	}
}
