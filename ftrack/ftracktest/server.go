// Package ftracktest provides an in-memory ftrack API server for tests.
package ftracktest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"shotbench/ftrack"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	APIKey  = "test-api-key"
	Version = "4.13.0"
)

var (
	selectExpr = regexp.MustCompile(`(?is)^\s*(?:select\s+.+?\s+from\s+)?(\w+)(?:\s+where\s+(.+?))?(?:\s+limit\s+(\d+))?\s*$`)
	condition  = regexp.MustCompile(`(?is)^\s*([\w.]+)\s+(?:=|is)\s+"((?:[^"\\]|\\.)*)"\s*$`)
	escaped    = regexp.MustCompile(`\\(.)`)
)

type Server struct {
	*httptest.Server
	mu       sync.Mutex
	entities map[string][]ftrack.Entity
	commits  int
	requests int

	SchemaID     string
	ShotStatusID string
	TaskStatusID string
	TaskTypeID   string
}

// NewServer starts a server seeded with one project schema, a shot status, a task type
// and a task status.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{entities: map[string][]ftrack.Entity{}}

	s.SchemaID = s.Add("ProjectSchema", map[string]any{"name": "VFX"}).ID()
	s.ShotStatusID = s.Add("Status", map[string]any{
		"name": "Not started", "project_schemas.id": s.SchemaID, "object_type.name": "Shot",
	}).ID()
	s.TaskTypeID = s.Add("Type", map[string]any{
		"name": "Compositing", "project_schemas.id": s.SchemaID, "object_type.name": "Task",
	}).ID()
	s.TaskStatusID = s.Add("Status", map[string]any{
		"name": "In progress", "project_schemas.id": s.SchemaID, "object_type.name": "Task",
		"task_types.id": s.TaskTypeID,
	}).ID()

	router := gin.New()
	router.POST("/api", s.handle)
	s.Server = httptest.NewServer(router)
	return s
}

// Add stores an entity directly, bypassing the API.
func (s *Server) Add(entityType string, data map[string]any) ftrack.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := ftrack.Entity{"id": uuid.NewString(), "__entity_type__": entityType}
	for k, v := range data {
		entity[k] = v
	}
	s.entities[entityType] = append(s.entities[entityType], entity)
	return entity
}

func (s *Server) Entities(entityType string) []ftrack.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ftrack.Entity(nil), s.entities[entityType]...)
}

func (s *Server) Count(entityType string) int {
	return len(s.Entities(entityType))
}

// Commits counts the requests that carried at least one create or delete.
func (s *Server) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func fail(c *gin.Context, status int, exception, content string) {
	c.JSON(status, gin.H{"exception": exception, "content": content})
}

func (s *Server) handle(c *gin.Context) {
	if c.GetHeader("ftrack-api-key") != APIKey {
		fail(c, http.StatusUnauthorized, "InvalidCredentialsError", "The supplied API key is not valid.")
		return
	}

	var ops []ftrack.Operation
	if err := c.ShouldBindJSON(&ops); err != nil {
		fail(c, http.StatusBadRequest, "ValueError", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	results := []ftrack.OperationResult{}
	mutated := false
	for _, op := range ops {
		var data []ftrack.Entity
		var err error

		switch op.Action {
		case "query_server_information":
			results = append(results, ftrack.OperationResult{Action: op.Action, Version: Version, SchemaHash: "ftracktest"})
			continue
		case "query":
			data, err = s.query(op.Expression)
		case "create":
			entity := ftrack.Entity(op.EntityData)
			entity["__entity_type__"] = op.EntityType
			s.entities[op.EntityType] = append(s.entities[op.EntityType], entity)
			data = []ftrack.Entity{entity}
			mutated = true
		case "delete":
			for _, id := range op.EntityKey {
				s.deleteTree(id)
			}
			mutated = true
		default:
			err = fmt.Errorf("unsupported action %q", op.Action)
		}

		if err != nil {
			fail(c, http.StatusOK, "ServerError", err.Error())
			return
		}
		results = append(results, ftrack.OperationResult{Action: op.Action, Data: data})
	}

	if mutated {
		s.commits++
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) query(expression string) ([]ftrack.Entity, error) {
	m := selectExpr.FindStringSubmatch(expression)
	if m == nil {
		return nil, fmt.Errorf("cannot parse expression %q", expression)
	}
	entityType, where, limit := m[1], m[2], m[3]

	type cond struct{ path, value string }
	var conds []cond
	if where != "" {
		for _, part := range regexp.MustCompile(`(?i)\s+and\s+`).Split(where, -1) {
			cm := condition.FindStringSubmatch(part)
			if cm == nil {
				return nil, fmt.Errorf("cannot parse condition %q", part)
			}
			conds = append(conds, cond{cm[1], escaped.ReplaceAllString(cm[2], "$1")})
		}
	}

	result := []ftrack.Entity{}
	for _, e := range s.entities[entityType] {
		match := true
		for _, c := range conds {
			if s.resolve(e, c.path) != c.value {
				match = false
				break
			}
		}
		if match {
			result = append(result, e)
		}
	}

	if limit != "" {
		n, _ := strconv.Atoi(limit)
		if n < len(result) {
			result = result[:n]
		}
	}
	return result, nil
}

func (s *Server) byID(id string) ftrack.Entity {
	for _, list := range s.entities {
		for _, e := range list {
			if e.ID() == id {
				return e
			}
		}
	}
	return nil
}

// Resolves dotted attribute paths such as parent.name or project.name.
func (s *Server) resolve(e ftrack.Entity, path string) string {
	if e == nil {
		return ""
	}
	if v, ok := e[path]; ok {
		str, _ := v.(string)
		return str
	}

	head, rest, _ := strings.Cut(path, ".")
	var next ftrack.Entity
	switch head {
	case "parent":
		next = s.byID(e.String("parent_id"))
	case "project":
		for next = s.byID(e.String("parent_id")); next != nil && next.Type() != "Project"; {
			next = s.byID(next.String("parent_id"))
		}
	default:
		next = s.byID(e.String(head + "_id"))
	}
	if rest == "" {
		return next.ID()
	}
	return s.resolve(next, rest)
}

// Deletes an entity and every entity below it.
func (s *Server) deleteTree(id string) {
	for entityType, list := range s.entities {
		kept := list[:0]
		var children []string
		for _, e := range list {
			switch {
			case e.ID() == id:
			case e.String("parent_id") == id:
				children = append(children, e.ID())
				kept = append(kept, e)
			default:
				kept = append(kept, e)
			}
		}
		s.entities[entityType] = kept
		for _, child := range children {
			s.deleteTree(child)
		}
	}
}
