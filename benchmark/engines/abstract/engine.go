package engine

import (
	"context"
	"errors"

	"shotbench/config"
)

// Object type ids of the task subclasses, stored in task.object_typeid
const (
	ShotTypeID     = "bad911de-3bd6-47b9-8b46-3476e237cb36"
	SequenceTypeID = "e5139355-61da-4c8f-9db4-3abc870166bc"
	TaskTypeID     = "11c137c0-ee7e-4f9c-91c5-8c77cec22b2c"
)

var ErrNoResults = errors.New("no matching shots")

// ShotQuery selects the shots of one sequence of a project, or every shot when Sequence
// is empty.
type ShotQuery struct {
	Project  string
	Sequence string
}

func (q ShotQuery) All() bool {
	return q.Sequence == ""
}

// Shots is implemented by every backend under comparison. Each method is timed as its
// own step; a backend may need further steps between Connect and Prepare.
type Shots interface {
	// Opens the session or connection
	Connect(ctx context.Context) error
	// Builds or executes the query
	Prepare(ctx context.Context, q ShotQuery) error
	// Reads the shot names
	Fetch(ctx context.Context, mode config.ResultMode) ([]string, error)
	// Releases what Connect opened; safe to call at any point
	Close()
}

// Checks a result set against the result mode: "first" must produce exactly one record.
func Result(names []string, mode config.ResultMode) ([]string, error) {
	if mode == config.ModeFirst {
		if len(names) == 0 {
			return nil, ErrNoResults
		}
		return names[:1], nil
	}
	return names, nil
}
