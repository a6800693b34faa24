// Package report writes the timings of a run to the console and, optionally, to a
// Prometheus Pushgateway and InfluxDB.
package report

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"shotbench/config"
	"shotbench/util"
	"shotbench/worker"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	zlog "github.com/rs/zerolog/log"
)

const job = "shotbench"

func Running(w io.Writer, name string) {
	fmt.Fprintf(w, "Running test %s\n", name)
}

func Average(w io.Writer, name string, result *worker.Result) {
	fmt.Fprintf(w, "%s: Total Average (%d runs): %06f\n", name, result.Runs, result.Average())
}

// Prints a summary of the per-run times
func Summary(w io.Writer, name string, mode config.ResultMode, result *worker.Result) {
	lo, hi := 0., 0.
	if len(result.Rts) > 0 {
		lo, hi = slices.Min(result.Rts), slices.Max(result.Rts)
	}
	p95 := util.Percentile(result.Rts, 95)

	fmt.Fprintln(w, "Csv:test,mode,runs,total,avg,min,max,rtP95")
	fmt.Fprintf(w, "Csv:%s,%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f\n",
		name, mode, result.Runs, result.Total, result.Average(), lo, hi, p95)
	// key-value format to ease reading
	fmt.Fprintf(w, "test: %s\nmode: %s\nruns: %d\ntotal: %.6f\navg: %.6f\nmin: %.6f\nmax: %.6f\nrtP95: %.6f\n",
		name, mode, result.Runs, result.Total, result.Average(), lo, hi, p95)
}

// Collects the result of a run into a fresh registry.
func gatherer(result *worker.Result) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: job, Name: name, Help: help})
		g.Set(value)
		reg.MustRegister(g)
	}
	gauge("total_seconds", "Time spent in every run of the test.", result.Total)
	gauge("average_seconds", "Average time of a single run.", result.Average())
	gauge("runs", "Number of runs.", float64(result.Runs))
	gauge("last_run_timestamp_seconds", "When the test finished.", util.EpochSeconds())

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: job,
		Name:      "run_seconds",
		Help:      "Time of each run.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
	})
	for _, rt := range result.Rts {
		hist.Observe(rt)
	}
	reg.MustRegister(hist)

	return reg
}

// Push sends the result to a Prometheus Pushgateway, grouped by test name.
func Push(ctx context.Context, url, name string, result *worker.Result) error {
	err := push.New(url, job).
		Grouping("test", name).
		Gatherer(gatherer(result)).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushgateway: %w", err)
	}
	zlog.Debug().Str("report", "pushgateway").Str("test", name).Msg("pushed")
	return nil
}

// WriteInflux writes one point per run.
func WriteInflux(ctx context.Context, cfg config.InfluxConfig, name string, mode config.ResultMode, result *worker.Result) error {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	defer client.Close()

	// points with equal tags and time overwrite each other
	now := time.Now()
	points := make([]*write.Point, 0, len(result.Rts))
	for i, rt := range result.Rts {
		points = append(points, influxdb2.NewPointWithMeasurement(job).
			AddTag("test", name).
			AddTag("mode", string(mode)).
			AddField("run", i+1).
			AddField("seconds", rt).
			SetTime(now.Add(time.Duration(i)*time.Microsecond)))
	}

	if err := client.WriteAPIBlocking(cfg.Org, cfg.Bucket).WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx: %w", err)
	}
	zlog.Debug().Str("report", "influx").Str("test", name).Int("points", len(points)).Msg("written")
	return nil
}
