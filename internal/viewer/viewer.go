// Package viewer owns the load lifecycle of the location view: one load per
// mount, a four-state status, and the derived view model.
package viewer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"location_viewer/core-go/internal/location"
	"location_viewer/core-go/internal/metrics"
	"location_viewer/core-go/internal/viewmodel"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
)

// Terminal reports whether the status ends a load cycle.
func (s Status) Terminal() bool {
	return s == StatusError || s == StatusEmpty || s == StatusReady
}

var ErrNotMounted = errors.New("viewer is not mounted")

// Loader is the minimal interface the viewer needs. *loader.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context) (location.Set, error)
}

// State is an immutable snapshot. Locations and View are only set when Ready.
type State struct {
	Status     Status
	Err        string
	Locations  location.Set
	View       *viewmodel.ViewModel
	Generation uint64
	StartedAt  time.Time
	LoadedAt   time.Time
}

type run struct {
	gen      uint64
	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	finished bool
}

type Viewer struct {
	log     zerolog.Logger
	loader  Loader
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	state   State
	current *run
}

func New(log zerolog.Logger, l Loader, m *metrics.Metrics) *Viewer {
	return &Viewer{
		log:     log,
		loader:  l,
		metrics: m,
		now:     time.Now,
		state:   State{Status: StatusLoading},
	}
}

// Start mounts the view: any in-flight load is cancelled and its result will be
// discarded, the state returns to Loading and a new load begins. It returns the
// generation of the new mount.
func (v *Viewer) Start(ctx context.Context) uint64 {
	loadCtx, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	v.retireLocked()
	r := &run{
		gen:     v.state.Generation + 1,
		started: v.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	v.current = r
	v.state = State{Status: StatusLoading, Generation: r.gen, StartedAt: r.started}
	v.mu.Unlock()

	v.log.Info().Uint64("generation", r.gen).Msg("location load started")
	go v.load(loadCtx, r)
	return r.gen
}

// Close unmounts the view. A load still in flight is cancelled and its result
// is never applied.
func (v *Viewer) Close() {
	v.mu.Lock()
	v.retireLocked()
	v.current = nil
	v.mu.Unlock()
}

func (v *Viewer) retireLocked() {
	r := v.current
	if r == nil {
		return
	}
	r.cancel()
	if !r.finished {
		r.finished = true
		close(r.done)
	}
}

func (v *Viewer) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Wait blocks until the current mount reaches a terminal state. It returns
// ErrNotMounted when the view was unmounted before the load finished.
func (v *Viewer) Wait(ctx context.Context) (State, error) {
	for {
		v.mu.RLock()
		st, r := v.state, v.current
		v.mu.RUnlock()

		if st.Status.Terminal() {
			return st, nil
		}
		if r == nil {
			return st, ErrNotMounted
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-r.done:
		}
	}
}

func (v *Viewer) load(ctx context.Context, r *run) {
	set, err := v.loader.Load(ctx)
	finished := v.now()

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// A cancelled parent context unmounts the view.
		v.mu.Lock()
		if v.current == r {
			v.retireLocked()
			v.current = nil
		}
		v.mu.Unlock()
		v.discard(r, "cancelled")
		return
	}

	next := State{Generation: r.gen, StartedAt: r.started, LoadedAt: finished}
	outcome := "ready"
	switch {
	case err != nil:
		next.Status = StatusError
		next.Err = err.Error()
		outcome = location.Kind(err)
	case len(set) == 0:
		next.Status = StatusEmpty
		outcome = "empty"
	default:
		vm, buildErr := viewmodel.Build(set)
		if buildErr != nil {
			next.Status = StatusError
			next.Err = buildErr.Error()
			outcome = "other"
			break
		}
		next.Status = StatusReady
		next.Locations = set
		next.View = &vm
	}

	v.mu.Lock()
	if v.current != r || r.finished {
		v.mu.Unlock()
		v.discard(r, "superseded")
		return
	}
	v.state = next
	r.finished = true
	close(r.done)
	r.cancel()
	v.mu.Unlock()

	v.metrics.ObserveLoad(outcome, finished.Sub(r.started))
	v.metrics.SetLocations(len(next.Locations))

	ev := v.log.Info()
	if err != nil {
		ev = v.log.Warn().Err(err)
	}
	ev.Uint64("generation", r.gen).
		Str("status", string(next.Status)).
		Int("count", len(next.Locations)).
		Int64("duration_ms", finished.Sub(r.started).Milliseconds()).
		Msg("location load finished")
}

func (v *Viewer) discard(r *run, reason string) {
	v.metrics.IncStaleLoad()
	v.log.Debug().Uint64("generation", r.gen).Str("reason", reason).Msg("discarding stale location load")
}
