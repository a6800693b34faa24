package ftrack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const entityTypeKey = "__entity_type__"

// Entity is a record returned by, or sent to, the server.
type Entity map[string]any

func (e Entity) Type() string {
	return e.String(entityTypeKey)
}

func (e Entity) ID() string {
	return e.String("id")
}

// String returns the attribute as a string, or "" if it is missing or not a string.
func (e Entity) String(key string) string {
	v, _ := e[key].(string)
	return v
}

// Create registers a new entity of the given type. The id is generated locally so the
// entity can be referenced by other creates before the commit.
func (s *Session) Create(entityType string, data map[string]any) Entity {
	entity := Entity{}
	for k, v := range data {
		// references to other entities are sent as <name>_id
		if ref, ok := v.(Entity); ok {
			entity[k+"_id"] = ref.ID()
			continue
		}
		entity[k] = v
	}
	if entity.ID() == "" {
		entity["id"] = uuid.NewString()
	}
	entity[entityTypeKey] = entityType

	s.pending = append(s.pending, Operation{
		Action:     "create",
		EntityType: entityType,
		EntityData: entity,
	})
	return entity
}

// Delete registers the removal of an entity.
func (s *Session) Delete(entity Entity) error {
	if entity.Type() == "" || entity.ID() == "" {
		return errors.New("ftrack: cannot delete an entity without type and id")
	}
	s.pending = append(s.pending, Operation{
		Action:     "delete",
		EntityType: entity.Type(),
		EntityKey:  []string{entity.ID()},
	})
	return nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote escapes a value for use inside a double-quoted query string.
func Quote(value string) string {
	return `"` + quoteEscaper.Replace(value) + `"`
}

// Expr formats a query expression, quoting every argument.
func Expr(format string, args ...string) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return fmt.Sprintf(format, quoted...)
}
