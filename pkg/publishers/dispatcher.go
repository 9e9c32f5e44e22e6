package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/samvad-hq/elemental-live/internal/logger"
	"golang.org/x/sync/errgroup"
)

const maxParallelSends = 4

// Dispatcher sends every transition to all of its sinks in parallel.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher wraps sinks, skipping nil entries.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// OpenAll opens every config. Sinks opened before a failure are closed again.
func OpenAll(ctx context.Context, cfgs []Config, log logger.Logger) (*Dispatcher, error) {
	d := NewDispatcher()
	for _, cfg := range cfgs {
		s, err := Open(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, d.Close())
		}
		d.sinks = append(d.sinks, s)
	}
	return d, nil
}

// Publish sends t to every sink and returns how many accepted it. A failing
// sink does not stop delivery to the others.
func (d *Dispatcher) Publish(ctx context.Context, t Transition) (int, error) {
	if d == nil || len(d.sinks) == 0 {
		return 0, nil
	}

	var delivered atomic.Int32
	errs := make([]error, len(d.sinks))
	var g errgroup.Group
	g.SetLimit(maxParallelSends)
	for i, s := range d.sinks {
		i, s := i, s
		g.Go(func() error {
			if err := s.Send(ctx, t); err != nil {
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", s.Type(), s.ID(), err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load()), errors.Join(errs...)
}

// Size returns the number of sinks.
func (d *Dispatcher) Size() int {
	if d == nil {
		return 0
	}
	return len(d.sinks)
}

// Close releases sinks that hold connections.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, s := range d.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", s.Type(), s.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
