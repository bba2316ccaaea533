// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package tracefilter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"
)

// Registry lifecycle states
const (
	StateUnconfigured = "unconfigured"
	StateConfigured   = "configured"
	StateClosed       = "closed"
)

const (
	eInstall = "install"
	eClose   = "close"
)

var (
	// ErrRegistryClosed is returned when a filter is installed into a closed registry
	ErrRegistryClosed = errors.New("trace filter registry is closed")
	// ErrNilFilter is returned when nil is passed to (*Registry).Install
	ErrNilFilter = errors.New("nil trace filter")
)

// LeveledLogger is the logger used by Registry to report lifecycle changes
type LeveledLogger interface {
	Debug(v ...interface{})
	Info(v ...interface{})
	Warn(v ...interface{})
	Error(v ...interface{})
}

// Registry publishes the current process-wide TraceFilter. Readers get the filter through an atomic
// load and never observe a partially constructed instance, while installs are serialized. A filter
// replaced by Install is released once no reader holds a reference to it anymore.
type Registry struct {
	current atomic.Pointer[TraceFilter]

	mu        sync.Mutex
	lifecycle *fsm.FSM
	logger    LeveledLogger
}

// NewRegistry returns an empty Registry. Until the first Install every query is answered negatively.
func NewRegistry(l LeveledLogger) *Registry {
	r := &Registry{logger: l}

	r.lifecycle = fsm.NewFSM(
		StateUnconfigured,
		fsm.Events{
			{Name: eInstall, Src: []string{StateUnconfigured, StateConfigured}, Dst: StateConfigured},
			{Name: eClose, Src: []string{StateUnconfigured, StateConfigured}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				r.debug("trace filter registry: ", e.Src, " -> ", e.Dst)
			},
		},
	)

	return r
}

// Install atomically replaces the current filter with f
func (r *Registry) Install(f *TraceFilter) error {
	if f == nil {
		return ErrNilFilter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transition(eInstall); err != nil {
		return fmt.Errorf("failed to install trace filter %s: %w", f.ID(), err)
	}

	if prev := r.current.Swap(f); prev != nil {
		r.debug("trace filter ", prev.ID(), " replaced with ", f.ID())
	} else {
		r.debug("trace filter ", f.ID(), " installed")
	}

	return nil
}

// Current returns the active filter or nil if none has been installed yet or the registry is closed
func (r *Registry) Current() *TraceFilter {
	return r.current.Load()
}

// ShouldTrace queries the current filter. It returns false if there is no filter installed.
func (r *Registry) ShouldTrace(path string) bool {
	return r.Current().ShouldTrace(path)
}

// Close drops the current filter. Any subsequent Install call fails with ErrRegistryClosed. It's safe
// to call Close more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transition(eClose); err != nil {
		return
	}

	r.current.Store(nil)
}

// State returns the current lifecycle state of the registry
func (r *Registry) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lifecycle.Current()
}

func (r *Registry) transition(event string) error {
	err := r.lifecycle.Event(context.Background(), event)

	var noTransition fsm.NoTransitionError
	switch {
	case err == nil, errors.As(err, &noTransition):
		return nil
	case r.lifecycle.Is(StateClosed):
		return ErrRegistryClosed
	default:
		return err
	}
}

func (r *Registry) debug(v ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(v...)
	}
}
