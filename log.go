// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package scalene

import (
	"log"
	"os"
	"sync"

	"github.com/Birdi7/scalene/logger"
)

// LeveledLogger is an interface of a generic logger that support different message levels.
// By default scalene.Profiler uses logger.Logger with log.Logger as an output, however this
// interface is also compatible with such popular loggers as github.com/sirupsen/logrus.Logger
// and go.uber.org/zap.SugaredLogger
type LeveledLogger interface {
	Debug(v ...interface{})
	Info(v ...interface{})
	Warn(v ...interface{})
	Error(v ...interface{})
}

var (
	loggerMu      sync.RWMutex
	defaultLogger LeveledLogger = logger.New(log.New(os.Stderr, "", log.LstdFlags))
)

// SetLogger configures the logger used by profilers created without Options.Logger
func SetLogger(l LeveledLogger) {
	if l == nil {
		return
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()

	defaultLogger = l
}

func currentLogger() LeveledLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	return defaultLogger
}
