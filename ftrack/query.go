package ftrack

import (
	"context"
	"regexp"
)

var limitClause = regexp.MustCompile(`(?i)\s+limit\s+\d+\s*$`)

type QueryResult struct {
	session    *Session
	expression string
}

// First returns the first matching entity, or nil if nothing matches.
func (q *QueryResult) First(ctx context.Context) (Entity, error) {
	expression := limitClause.ReplaceAllString(q.expression, "") + " limit 1"
	data, err := q.run(ctx, expression)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return data[0], nil
}

// All returns every matching entity.
func (q *QueryResult) All(ctx context.Context) ([]Entity, error) {
	return q.run(ctx, q.expression)
}

func (q *QueryResult) run(ctx context.Context, expression string) ([]Entity, error) {
	results, err := q.session.Call(ctx, []Operation{{Action: "query", Expression: expression}})
	if err != nil {
		return nil, err
	}
	return results[0].Data, nil
}
