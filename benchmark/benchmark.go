package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"shotbench/benchmark/fixtures"
	"shotbench/benchmark/shots"
	"shotbench/config"
	"shotbench/worker"
)

type Benchmark interface {
	// Called once before the repetitions
	Setup(ctx context.Context) error
	// Builds the steps of a single repetition
	Test(ctx context.Context) (*worker.Invocation, error)
}

type Scenario struct {
	Name        string
	Description string
	// out receives the per-run output, io.Discard unless verbose
	New func(cfg *config.Config, out io.Writer) Benchmark
}

var ErrUnknownScenario = errors.New("unknown test")

func shotScenario[T Benchmark](name, description string, build func(*config.Config, io.Writer, shots.Query) T, query shots.Query) Scenario {
	return Scenario{
		Name:        name,
		Description: description,
		New: func(cfg *config.Config, out io.Writer) Benchmark {
			return build(cfg, out, query)
		},
	}
}

func byName(scenarios ...Scenario) map[string]Scenario {
	m := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		m[s.Name] = s
	}
	return m
}

var registry = byName(
	Scenario{Name: "setup", Description: "create the fixture projects through the ftrack API",
		New: func(cfg *config.Config, out io.Writer) Benchmark { return fixtures.NewCreate(cfg, out) }},
	Scenario{Name: "cleanup", Description: "delete the fixture projects through the ftrack API",
		New: func(cfg *config.Config, out io.Writer) Benchmark { return fixtures.NewCleanup(cfg, out) }},
	Scenario{Name: "sql_seed", Description: "insert the fixture projects directly in the database",
		New: func(cfg *config.Config, out io.Writer) Benchmark { return fixtures.NewSeed(cfg, out) }},
	Scenario{Name: "sql_purge", Description: "delete the fixture projects directly in the database",
		New: func(cfg *config.Config, out io.Writer) Benchmark { return fixtures.NewPurge(cfg, out) }},

	shotScenario("ftrack_01", "shots of one sequence, ftrack API", shots.NewFtrack, shots.SequenceShots),
	shotScenario("ftrack_02", "all shots, ftrack API", shots.NewFtrack, shots.AllShots),
	shotScenario("orm_01", "shots of one sequence, gorm", shots.NewOrm, shots.SequenceShots),
	shotScenario("orm_02", "all shots, gorm", shots.NewOrm, shots.AllShots),
	shotScenario("sql_01", "shots of one sequence, raw SQL", shots.NewSql, shots.SequenceShots),
	shotScenario("sql_02", "all shots, raw SQL", shots.NewSql, shots.AllShots),
)

// Names returns the registered test names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w %q (valid tests: %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
	}
	return s, nil
}
