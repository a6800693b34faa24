package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Step is a named part of an invocation, timed on its own in verbose mode.
type Step struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Invocation is one execution of a test. Steps run in order; Release runs afterwards and
// is not timed.
type Invocation struct {
	Steps   []Step
	Release func()
}

// Setup runs once before the repetitions.
type Setup func(ctx context.Context) error

// Test builds a fresh invocation for each repetition, so that steps can share state.
type Test func(ctx context.Context) (*Invocation, error)

// Pass does nothing.
var Pass Setup = func(context.Context) error { return nil }

type Result struct {
	Total float64   // seconds, across every invocation of every test
	Runs  int       // invocations per test
	Rts   []float64 // seconds, one per invocation
}

// Average time of a single run.
func (r *Result) Average() float64 {
	if r.Runs == 0 {
		return 0
	}
	return r.Total / float64(r.Runs)
}

type Runner struct {
	Verbose bool
	Out     io.Writer // verbose output, defaults to stdout
}

func NewRunner(verbose bool) *Runner {
	return &Runner{Verbose: verbose, Out: os.Stdout}
}

// Run calls setup once and then each test number times, summing the elapsed wall-clock time.
func (r *Runner) Run(ctx context.Context, setup Setup, number int, tests ...Test) (*Result, error) {
	if setup == nil {
		setup = Pass
	}
	if number < 1 {
		return nil, fmt.Errorf("number of runs must be positive, got %d", number)
	}

	if err := setup(ctx); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	result := &Result{Runs: number}
	for i, test := range tests {
		for j := 0; j < number; j++ {
			rt, err := r.invoke(ctx, test)
			if err != nil {
				return nil, err
			}
			zlog.Debug().Int("test", i).Int("run", j).Float64("rt", rt).Msg("completed")
			result.Rts = append(result.Rts, rt)
			result.Total += rt
		}
	}

	return result, nil
}

// Runs a single invocation and returns the time spent in its steps.
func (r *Runner) invoke(ctx context.Context, test Test) (float64, error) {
	inv, err := test(ctx)
	if err != nil {
		return 0, err
	}
	if inv.Release != nil {
		defer inv.Release()
	}

	total := 0.
	for _, step := range inv.Steps {
		if r.Verbose {
			fmt.Fprintf(r.out(), "\n>>> %s\n", step.Name)
		}

		start := time.Now()
		err := step.Fn(ctx)
		elapsed := time.Since(start).Seconds()
		total += elapsed

		if err != nil {
			return 0, fmt.Errorf("%s: %w", step.Name, err)
		}
		if r.Verbose {
			fmt.Fprintf(r.out(), "%0.6f s\n", elapsed)
		}
	}

	return total, nil
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}
