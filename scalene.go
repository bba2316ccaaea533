// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package scalene is the embedding-facing core of a sampling profiler for managed runtimes. It keeps
// the user configuration of files to profile and, on every sample, finds the innermost frame of the
// sampled call stack that belongs to the profiled code.
//
//	p, err := scalene.New(host, scalene.DefaultOptions())
//	if err != nil {
//		// handle error
//	}
//	defer p.Close()
//
//	if err := p.Configure([]string{"src/myapp"}, "/home/user/myapp", false); err != nil {
//		// handle error
//	}
//
//	// on each sample
//	lf := p.LocateTracedFrame()
//
// Samples that cannot be attributed to user code are reported at stacklocator.BogusFilename, line 1.
package scalene

import (
	"fmt"
	"os"

	"github.com/Birdi7/scalene/pathmatch"
	"github.com/Birdi7/scalene/stacklocator"
	"github.com/Birdi7/scalene/tracefilter"
)

// Profiler holds the trace filter installed by the embedding layer and walks the host call stacks
// against it. It is safe for concurrent use by multiple sampling execution contexts.
type Profiler struct {
	host      stacklocator.Host
	registry  *tracefilter.Registry
	canonical *pathmatch.Canonicalizer
	opts      Options
	logger    LeveledLogger
}

// New returns a Profiler that reads call stacks from host. A nil host makes every stack walk
// report the sentinel frame. If opts is nil, DefaultOptions() is used.
func New(host stacklocator.Host, opts *Options) (*Profiler, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	p := &Profiler{
		host:   host,
		opts:   *opts,
		logger: opts.logger(),
	}

	canonical, err := pathmatch.NewCanonicalizer(opts.CanonicalCacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profiler: %w", err)
	}
	p.canonical = canonical

	if p.opts.FatalHandler == nil {
		p.opts.FatalHandler = p.exitOnFatal
	}

	p.registry = tracefilter.NewRegistry(p.logger)

	return p, nil
}

// Configure builds a new trace filter and installs it, replacing the previous one. Repeated calls
// with the same arguments produce filters with identical behavior.
func (p *Profiler) Configure(entries []string, basePath string, profileAll bool) error {
	f := tracefilter.New(entries, basePath, profileAll || p.opts.ForceProfileAll,
		tracefilter.WithCanonicalizer(p.canonical),
		tracefilter.WithFatalHandler(p.opts.FatalHandler),
	)

	if err := p.registry.Install(f); err != nil {
		return err
	}

	p.logger.Debug("profiling ", len(entries), " path entries under ", basePath, ", profile all: ", f.ProfileAll())

	return nil
}

// LocateTracedFrame walks the call stack of the calling execution context and returns the innermost
// frame accepted by the installed filter, or the sentinel frame if there is none
func (p *Profiler) LocateTracedFrame() stacklocator.LocatedFrame {
	f := p.registry.Current()
	if f == nil {
		return stacklocator.NotFound()
	}

	return stacklocator.Locate(p.host, f)
}

// ShouldTrace returns whether path belongs to the profiled code according to the installed filter.
// It returns false if the profiler has not been configured yet.
func (p *Profiler) ShouldTrace(path string) bool {
	return p.registry.ShouldTrace(path)
}

// Filter returns the installed trace filter or nil
func (p *Profiler) Filter() *tracefilter.TraceFilter {
	return p.registry.Current()
}

// Close releases the installed filter. The profiler cannot be configured again after Close.
func (p *Profiler) Close() {
	p.registry.Close()
}

var osExit = os.Exit

func (p *Profiler) exitOnFatal(err error) {
	p.logger.Error("failed to resolve traced path, aborting: ", err)
	osExit(1)
}
