package orm_engine

import (
	"context"
	"errors"
	"strings"

	engine "shotbench/benchmark/engines/abstract"
	"shotbench/config"
	dbutils "shotbench/dbUtils"

	"gorm.io/gorm"
)

// Orm queries shots through gorm models.
type Orm struct {
	uri     string
	db      *gorm.DB
	session *gorm.DB
	query   *gorm.DB
	loadAll bool // query loads whole Task rows rather than names
}

func New(uri string) *Orm {
	return &Orm{uri: uri}
}

// Connect opens the gorm connection (engine).
func (o *Orm) Connect(context.Context) error {
	db, err := dbutils.OpenGorm(o.uri)
	if err != nil {
		return err
	}
	o.db = db
	return nil
}

// Session starts a new gorm session bound to ctx.
func (o *Orm) Session(ctx context.Context) error {
	if o.db == nil {
		return errors.New("orm: not connected")
	}
	o.session = o.db.Session(&gorm.Session{Context: ctx})
	return nil
}

func (o *Orm) quote(name string) string {
	var b strings.Builder
	o.session.Dialector.QuoteTo(&b, name)
	return b.String()
}

// Prepare builds the query. All shots are loaded as Task models with their context joined
// in the same statement; the shots of one sequence are plucked by name, the sequence being
// looked up in a subquery joined with its project.
func (o *Orm) Prepare(_ context.Context, q engine.ShotQuery) error {
	if o.session == nil {
		return errors.New("orm: no session")
	}
	if q.All() {
		o.query = o.session.Model(&Task{}).Scopes(Shots).Joins("Context")
		o.loadAll = true
		return nil
	}

	sub := o.session.Model(&Task{}).Scopes(Sequences).
		Select("task.taskid").
		Joins("JOIN context AS seqctx ON seqctx.id = task.taskid").
		Joins("JOIN "+o.quote(Project{}.TableName())+" AS proj ON proj.showid = seqctx.parent_id").
		Where("seqctx.name = ? AND proj.fullname = ?", q.Sequence, q.Project)

	o.query = o.session.Model(&Context{}).
		Select("context.name").
		Joins("JOIN task ON task.taskid = context.id").
		Scopes(Shots).
		Where("context.parent_id IN (?)", sub)
	o.loadAll = false
	return nil
}

func (o *Orm) Fetch(ctx context.Context, mode config.ResultMode) ([]string, error) {
	if o.query == nil {
		return nil, errors.New("orm: no query prepared")
	}
	if o.loadAll {
		return o.fetchTasks(mode)
	}

	var names []string
	tx := o.query
	if mode == config.ModeFirst {
		tx = tx.Limit(1)
	}
	if err := tx.Pluck("context.name", &names).Error; err != nil {
		return nil, err
	}
	return engine.Result(names, mode)
}

func (o *Orm) fetchTasks(mode config.ResultMode) ([]string, error) {
	if mode == config.ModeFirst {
		var shot Task
		err := o.query.Take(&shot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrNoResults
		} else if err != nil {
			return nil, err
		}
		return []string{shot.Name()}, nil
	}

	var shots []Task
	if err := o.query.Find(&shots).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(shots))
	for i := range shots {
		names = append(names, shots[i].Name())
	}
	return names, nil
}

// Close releases the underlying connection pool.
func (o *Orm) Close() {
	if o.db == nil {
		return
	}
	if sqlDB, err := o.db.DB(); err == nil {
		sqlDB.Close()
	}
	o.db, o.session, o.query = nil, nil, nil
}
