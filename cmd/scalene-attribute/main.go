// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// scalene-attribute attributes the samples of pprof profiles to the innermost frame of each stack that
// belongs to the profiled code, using the same trace filter the profiler applies at runtime.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	root := newAttributeCmd(os.Stdout)

	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Fatalf("%v", err)
		}
	}
}
