package fixtures

import (
	"context"
	"fmt"
	"runtime"

	"shotbench/config"
	dbutils "shotbench/dbUtils"
	"shotbench/ftrack"

	zlog "github.com/rs/zerolog/log"
)

// pending creates allowed before a commit
const commitEvery = 10

type Stats struct {
	Projects  int
	Sequences int
	Shots     int
	Tasks     int
	Commits   int
}

func logStats(msg string, stats Stats) {
	zlog.Info().Str("benchmark", "fixtures").
		Int("projects", stats.Projects).Int("sequences", stats.Sequences).
		Int("shots", stats.Shots).Int("tasks", stats.Tasks).Int("commits", stats.Commits).
		Msg(msg)
}

// defaults resolved from the project schema
type defaults struct {
	schema     *ftrack.ProjectSchema
	shotStatus ftrack.Entity
	taskType   ftrack.Entity
	taskStatus ftrack.Entity
}

func resolveDefaults(ctx context.Context, session *ftrack.Session) (*defaults, error) {
	schema, err := session.FirstProjectSchema(ctx)
	if err != nil {
		return nil, err
	}
	d := &defaults{schema: schema}

	shotStatuses, err := schema.Statuses(ctx, "Shot", "")
	if err != nil {
		return nil, err
	}
	taskTypes, err := schema.Types(ctx, "Task")
	if err != nil {
		return nil, err
	}
	if len(shotStatuses) == 0 || len(taskTypes) == 0 {
		return nil, fmt.Errorf("project schema %s has no shot status or task type", schema.ID())
	}
	d.shotStatus, d.taskType = shotStatuses[0], taskTypes[0]

	taskStatuses, err := schema.Statuses(ctx, "Task", d.taskType.ID())
	if err != nil {
		return nil, err
	}
	if len(taskStatuses) == 0 {
		return nil, fmt.Errorf("project schema %s has no status for task type %s", schema.ID(), d.taskType.ID())
	}
	d.taskStatus = taskStatuses[0]

	return d, nil
}

// Create makes the fixture projects, sequences, shots and tasks through the API,
// committing in small batches.
func Create(ctx context.Context, session *ftrack.Session, q config.Quantities) (Stats, error) {
	projects, sequences, shots, tasks := q.Totals()
	zlog.Info().Str("benchmark", "fixtures").Int("projects", projects).Int("sequences", sequences).
		Int("shots", shots).Int("tasks", tasks).Msg("Creating")

	d, err := resolveDefaults(ctx, session)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	commit := func() error {
		if err := session.Commit(ctx); err != nil {
			return err
		}
		stats.Commits++
		// the committed entities are no longer referenced by the session
		runtime.GC()
		return nil
	}
	created := func() error {
		if session.Pending() > commitEvery {
			return commit()
		}
		return nil
	}

	for p := 1; p <= q.Projects; p++ {
		name := dbutils.ProjectName(p)
		project := session.Create("Project", map[string]any{
			"name":           name,
			"full_name":      name,
			"project_schema": d.schema.Entity,
		})
		stats.Projects++
		if err := created(); err != nil {
			return stats, err
		}

		for s := 1; s <= q.SequencesPerProject; s++ {
			sequence := session.Create("Sequence", map[string]any{
				"name":   fmt.Sprintf("seq_%d", s),
				"parent": project,
			})
			stats.Sequences++
			if err := created(); err != nil {
				return stats, err
			}

			for sh := 1; sh <= q.ShotsPerSequence; sh++ {
				shot := session.Create("Shot", map[string]any{
					"name":   fmt.Sprintf("shot_%03d", sh),
					"parent": sequence,
					"status": d.shotStatus,
				})
				stats.Shots++
				if err := created(); err != nil {
					return stats, err
				}

				for t := 1; t <= q.TasksPerShot; t++ {
					session.Create("Task", map[string]any{
						"name":   fmt.Sprintf("task_%d", t),
						"parent": shot,
						"status": d.taskStatus,
						"type":   d.taskType,
					})
					stats.Tasks++
					if err := created(); err != nil {
						return stats, err
					}
				}
			}
		}
	}

	if session.Pending() > 0 {
		if err := commit(); err != nil {
			return stats, err
		}
	}

	logStats("Created", stats)
	return stats, nil
}

// Cleanup deletes the first n fixture projects. Projects that do not exist are skipped.
func Cleanup(ctx context.Context, session *ftrack.Session, projects int) (Stats, error) {
	stats := Stats{}

	for _, name := range dbutils.ProjectNames(projects) {
		project, err := session.Query(ftrack.Expr("Project where name = %s", name)).First(ctx)
		if err != nil {
			return stats, err
		}
		if project == nil {
			zlog.Debug().Str("benchmark", "fixtures").Str("project", name).Msg("not found")
			continue
		}

		zlog.Info().Str("benchmark", "fixtures").Str("project", name).Msg("Deleting")
		if err := session.Delete(project); err != nil {
			return stats, err
		}
		if err := session.Commit(ctx); err != nil {
			return stats, err
		}
		stats.Projects++
		stats.Commits++
	}

	logStats("Cleaned up", stats)
	return stats, nil
}
