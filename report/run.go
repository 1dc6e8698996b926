// Package report assembles the default set of charts from a loaded table and
// hands each finished spec to a Sink.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drugdeaths/chart"
	"drugdeaths/loader"
	"drugdeaths/render"
)

// Sink receives each section's finished spec.
type Sink interface {
	Write(name string, spec *chart.Spec) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, spec *chart.Spec) error

func (f SinkFunc) Write(name string, spec *chart.Spec) error { return f(name, spec) }

// DirSink writes <name>.json into Dir and, when Format is set, a rendered
// <name>.<format> next to it.
type DirSink struct {
	Dir    string
	Format string
}

func (s DirSink) Write(name string, spec *chart.Spec) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := spec.WriteJSON(filepath.Join(s.Dir, name+".json")); err != nil {
		return fmt.Errorf("write spec: %w", err)
	}
	if s.Format == "" {
		return nil
	}
	path := filepath.Join(s.Dir, name+"."+strings.TrimPrefix(s.Format, "."))
	if err := render.Save(spec, path); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Outcome is the result of one section. A skipped section had nothing to
// draw; Err then says why.
type Outcome struct {
	Name    string
	Err     error
	Skipped bool
	Elapsed time.Duration
}

// Result lists every section's outcome in section order.
type Result struct {
	Outcomes []Outcome
}

// OK returns the names of the sections that were written.
func (r Result) OK() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Name)
		}
	}
	return out
}

// Failed returns the outcomes that carry an error.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil && !o.Skipped {
			out = append(out, o)
		}
	}
	return out
}

// Skipped returns the outcomes of sections with nothing to draw.
func (r Result) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Skipped {
			out = append(out, o)
		}
	}
	return out
}

// skippable reports whether err means the data left nothing to chart.
func skippable(err error) bool {
	return errors.Is(err, chart.ErrEmptyDataset) || errors.Is(err, chart.ErrDivisionByZero)
}

// Runner builds sections concurrently. A zero Runner runs with four workers
// and no logging.
type Runner struct {
	Workers int
	Logger  *zap.Logger
}

// Run builds every section against t and writes it to sink. A failing or
// panicking section is recorded in the Result and never stops the others. A
// section whose data is empty or sums to zero is marked skipped, not failed.
// Sections not started before ctx is done fail with the context's error.
func (rn Runner) Run(ctx context.Context, t *loader.Table, sections []Section, sink Sink) Result {
	logger := rn.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := rn.Workers
	if workers <= 0 {
		workers = 4
	}

	res := Result{Outcomes: make([]Outcome, len(sections))}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, s := range sections {
		i, s := i, s
		g.Go(func() error {
			start := time.Now()
			err := ctx.Err()
			if err == nil {
				err = runSection(t, s, sink)
			}
			skip := skippable(err)
			res.Outcomes[i] = Outcome{Name: s.Name, Err: err, Skipped: skip, Elapsed: time.Since(start)}
			switch {
			case skip:
				logger.Info("section skipped", zap.String("section", s.Name), zap.String("reason", err.Error()))
			case err != nil:
				logger.Error("section failed", zap.String("section", s.Name), zap.Error(err))
			default:
				logger.Debug("section written",
					zap.String("section", s.Name),
					zap.Duration("elapsed", time.Since(start)))
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// Run builds sections with a default Runner.
func Run(ctx context.Context, t *loader.Table, sections []Section, sink Sink, logger *zap.Logger) Result {
	return Runner{Logger: logger}.Run(ctx, t, sections, sink)
}

func runSection(t *loader.Table, s Section, sink Sink) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	if s.Build == nil {
		return fmt.Errorf("section %q has no builder", s.Name)
	}
	spec, err := s.Build(t)
	if err != nil {
		return err
	}
	return sink.Write(s.Name, spec)
}
