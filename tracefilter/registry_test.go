// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package tracefilter_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Birdi7/scalene/tracefilter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Empty(t *testing.T) {
	r := tracefilter.NewRegistry(nil)

	assert.Nil(t, r.Current())
	assert.False(t, r.ShouldTrace("/project/a.py"))
	assert.Equal(t, tracefilter.StateUnconfigured, r.State())
}

func TestRegistry_Install(t *testing.T) {
	l := &recordingLogger{}
	r := tracefilter.NewRegistry(l)

	first := tracefilter.New([]string{"app"}, "/project", false)
	require.NoError(t, r.Install(first))

	assert.Same(t, first, r.Current())
	assert.Equal(t, tracefilter.StateConfigured, r.State())
	assert.True(t, r.ShouldTrace("/srv/app/main.py"))

	second := tracefilter.New([]string{"svc"}, "/project", false)
	require.NoError(t, r.Install(second))

	assert.Same(t, second, r.Current())
	assert.Equal(t, tracefilter.StateConfigured, r.State())
	assert.True(t, r.ShouldTrace("/srv/svc/main.py"))

	assert.Contains(t, l.messages(), fmt.Sprint("trace filter ", first.ID(), " replaced with ", second.ID()))
}

func TestRegistry_Install_Nil(t *testing.T) {
	r := tracefilter.NewRegistry(nil)

	assert.ErrorIs(t, r.Install(nil), tracefilter.ErrNilFilter)
	assert.Equal(t, tracefilter.StateUnconfigured, r.State())
}

func TestRegistry_Install_Idempotent(t *testing.T) {
	r := tracefilter.NewRegistry(nil)
	paths := []string{
		"/srv/app/main.py",
		"/usr/lib/python3.11/os.py",
		"<ipython-input-1-abc>",
		"/venv/scalene/scalene/profiler.py",
	}

	var results [][]bool
	for i := 0; i < 2; i++ {
		require.NoError(t, r.Install(tracefilter.New([]string{"app", "profiler"}, "/project", false)))

		var res []bool
		for _, p := range paths {
			res = append(res, r.ShouldTrace(p))
		}
		results = append(results, res)
	}

	assert.Equal(t, []bool{true, false, true, false}, results[0])
	assert.Equal(t, results[0], results[1])
}

func TestRegistry_Close(t *testing.T) {
	r := tracefilter.NewRegistry(nil)
	require.NoError(t, r.Install(tracefilter.New([]string{"app"}, "/project", false)))

	r.Close()

	assert.Nil(t, r.Current())
	assert.False(t, r.ShouldTrace("/srv/app/main.py"))
	assert.Equal(t, tracefilter.StateClosed, r.State())

	assert.ErrorIs(t, r.Install(tracefilter.New(nil, "/project", false)), tracefilter.ErrRegistryClosed)
	assert.Nil(t, r.Current())

	assert.NotPanics(t, r.Close)
}

func TestRegistry_ConcurrentInstallAndQuery(t *testing.T) {
	r := tracefilter.NewRegistry(nil)

	filters := []*tracefilter.TraceFilter{
		tracefilter.New([]string{"app"}, "/project", false),
		tracefilter.New([]string{"app", "svc"}, "/project", true),
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				f := r.Current()
				if f == nil {
					continue
				}

				// every observed filter is one of the fully constructed instances
				assert.Contains(t, filters, f)
				assert.True(t, f.ShouldTrace("/srv/app/main.py"))
				assert.False(t, f.ShouldTrace("/venv/lib/python3.11/site-packages/app/x.py"))
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		require.NoError(t, r.Install(filters[i%len(filters)]))
	}

	close(stop)
	wg.Wait()
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Debug(v ...interface{}) { l.record(v) }
func (l *recordingLogger) Info(v ...interface{})  { l.record(v) }
func (l *recordingLogger) Warn(v ...interface{})  { l.record(v) }
func (l *recordingLogger) Error(v ...interface{}) { l.record(v) }

func (l *recordingLogger) record(v []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgs = append(l.msgs, fmt.Sprint(v...))
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.msgs...)
}
