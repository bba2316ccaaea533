// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/Birdi7/scalene"
	"github.com/Birdi7/scalene/autoprofile"
	"github.com/Birdi7/scalene/config"
	"github.com/Birdi7/scalene/logger"
	"github.com/Birdi7/scalene/stacklocator"
	"github.com/Birdi7/scalene/tracefilter"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type attributeCmd struct {
	out io.Writer

	// User-specified command line arguments.
	configPath  string
	entries     string
	basePath    string
	profileAll  bool
	valueType   string
	logLevel    string
	top         int
	concurrency int
	strict      bool
}

func newAttributeCmd(out io.Writer) *ffcli.Command {
	cmd := attributeCmd{out: out}
	set := flag.NewFlagSet("scalene-attribute", flag.ExitOnError)
	set.StringVar(&cmd.configPath, "config", "", "Path to a TOML file with the trace filter settings")
	set.StringVar(&cmd.entries, "entries", "", "Comma-separated path fragments to profile, appended to the configured ones")
	set.StringVar(&cmd.basePath, "base-path", "", "Files resolving into this directory are profiled (overrides the config file)")
	set.BoolVar(&cmd.profileAll, "profile-all", false, "Mark the trace filter as profiling everything")
	set.StringVar(&cmd.valueType, "value", "", "Sample value type to sum up (default: samples or the first one)")
	set.StringVar(&cmd.logLevel, "log-level", "", "Log level: error, warn, info or debug")
	set.IntVar(&cmd.top, "top", 20, "Number of lines to print per profile, 0 prints all")
	set.IntVar(&cmd.concurrency, "concurrency", runtime.GOMAXPROCS(0), "Number of profiles processed in parallel")
	set.BoolVar(&cmd.strict, "strict", false, "Abort on the first frame whose file cannot be resolved locally "+
		"instead of treating it as not profiled")

	return &ffcli.Command{
		Name:       "scalene-attribute",
		ShortUsage: "scalene-attribute [flags] <profile>...",
		ShortHelp:  "Attribute pprof samples to the profiled source lines",
		LongHelp: "Files outside of the configured entries are matched against the base path after resolving " +
			"them on this machine. By default, frames naming files that do not exist locally are not profiled. " +
			"With -strict, such a frame aborts the command.",
		FlagSet: set,
		Options: []ff.Option{ff.WithEnvVarPrefix("SCALENE")},
		Exec:    cmd.exec,
	}
}

func (cmd *attributeCmd) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return flag.ErrHelp
	}

	cfg, err := cmd.config()
	if err != nil {
		return err
	}

	l, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	opts := scalene.DefaultOptions()
	opts.Logger = l
	opts.FatalHandler = func(err error) {
		log.Fatalf("cannot apply trace filter: %v", err)
	}
	if cfg.CacheSize != nil {
		opts.CanonicalCacheSize = *cfg.CacheSize
	}

	p, err := scalene.New(nil, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Configure(cfg.Entries, cfg.BasePath, cfg.ProfileAll); err != nil {
		return err
	}
	l.Debug("trace filter:\n", p.Filter())

	var filter stacklocator.PathFilter = p
	if !cmd.strict {
		filter = &lenientFilter{filter: p.Filter(), logger: l}
	}

	profiles, err := cmd.attributeAll(ctx, autoprofile.NewAttributor(filter, cmd.valueType), args)
	if err != nil {
		return err
	}

	for i, prof := range profiles {
		if i > 0 {
			fmt.Fprintln(cmd.out)
		}

		if err := printProfile(cmd.out, args[i], prof, cmd.top); err != nil {
			return err
		}
	}

	return nil
}

// config merges the configuration file with the command line flags
func (cmd *attributeCmd) config() (config.Config, error) {
	var cfg config.Config
	if cmd.configPath != "" {
		var err error
		if cfg, err = config.Load(cmd.configPath); err != nil {
			return config.Config{}, err
		}
	}

	for _, entry := range strings.Split(cmd.entries, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			cfg.Entries = append(cfg.Entries, entry)
		}
	}

	if cmd.basePath != "" {
		cfg.BasePath = cmd.basePath
	}

	if cmd.logLevel != "" {
		cfg.LogLevel = cmd.logLevel
	}

	cfg.ProfileAll = cfg.ProfileAll || cmd.profileAll

	if cfg.BasePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, fmt.Errorf("no base path configured: %w", err)
		}

		cfg.BasePath = wd
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// attributeAll processes profile files concurrently, keeping the results in the order of paths
func (cmd *attributeCmd) attributeAll(ctx context.Context, a *autoprofile.Attributor,
	paths []string) ([]*autoprofile.Profile, error) {
	results := make([]*autoprofile.Profile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if cmd.concurrency > 0 {
		g.SetLimit(cmd.concurrency)
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			prof, err := attributeFile(a, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = prof

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func attributeFile(a *autoprofile.Attributor, path string) (*autoprofile.Profile, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	p, err := a.Parse(fd)
	if err != nil {
		return nil, err
	}

	return a.Attribute(p)
}

func printProfile(w io.Writer, name string, p *autoprofile.Profile, top int) error {
	total, samples := p.Total()
	unattributed, _ := p.Unattributed()

	fmt.Fprintf(w, "%s: %d samples, %g %s (%s), unattributed %s\n",
		name, samples, total, p.Unit, p.Type, share(unattributed, total))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	printed := 0
	for _, file := range p.Roots {
		for _, line := range file.Children() {
			if top > 0 && printed >= top {
				return tw.Flush()
			}

			m, ns := line.Measurement()
			fmt.Fprintf(tw, "%s\t%d\t%s:%d\t\n", share(m, total), ns, line.FileName, line.FileLine)
			printed++
		}
	}

	return tw.Flush()
}

// lenientFilter treats the files that cannot be resolved as not profiled and reports each of them once
type lenientFilter struct {
	filter *tracefilter.TraceFilter
	logger *logger.Logger
	seen   sync.Map
}

func (f *lenientFilter) ShouldTrace(path string) bool {
	ok, err := f.filter.Match(path)
	if err != nil {
		if _, reported := f.seen.LoadOrStore(path, struct{}{}); !reported {
			f.logger.Warn("not profiling ", path, ": ", err)
		}

		return false
	}

	return ok
}

func share(value, total float64) string {
	if total == 0 {
		return "0.0%"
	}

	return fmt.Sprintf("%.1f%%", 100*value/total)
}

// newLogger returns a logger writing through logrus. Levels are filtered by the returned logger, so
// logrus itself lets everything through.
func newLogger(level string) (*logger.Logger, error) {
	log.SetLevel(log.DebugLevel)

	l := logger.New(log.StandardLogger())
	l.SetPrefix("")

	if level == "" {
		return l, nil
	}

	lvl, ok := logger.ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	l.SetLevel(lvl)

	return l, nil
}
