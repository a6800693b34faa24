package ftrack

import (
	"context"
	"fmt"
)

// ProjectSchema wraps a ProjectSchema entity and resolves the statuses and types it allows.
type ProjectSchema struct {
	Entity
	session *Session
}

// FirstProjectSchema returns the first project schema known to the server.
func (s *Session) FirstProjectSchema(ctx context.Context) (*ProjectSchema, error) {
	entity, err := s.Query("select id, name from ProjectSchema").First(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("ftrack: no project schema available")
	}
	return &ProjectSchema{Entity: entity, session: s}, nil
}

// Statuses returns the statuses available to objectType. For tasks, typeID narrows the
// workflow to a task type; it is ignored otherwise.
func (p *ProjectSchema) Statuses(ctx context.Context, objectType string, typeID string) ([]Entity, error) {
	expression := Expr("select id, name from Status where project_schemas.id is %s and object_type.name is %s",
		p.ID(), objectType)
	if typeID != "" {
		expression += " and " + Expr("task_types.id is %s", typeID)
	}
	return p.session.Query(expression).All(ctx)
}

// Types returns the types available to objectType.
func (p *ProjectSchema) Types(ctx context.Context, objectType string) ([]Entity, error) {
	return p.session.Query(Expr("select id, name from Type where project_schemas.id is %s and object_type.name is %s",
		p.ID(), objectType)).All(ctx)
}
