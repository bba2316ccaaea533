// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package scalene

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by DefaultOptions
const (
	CacheSizeEnv  = "SCALENE_CANONICAL_CACHE_SIZE"
	ProfileAllEnv = "SCALENE_PROFILE_ALL"
)

// parseCacheSize parses the value of SCALENE_CANONICAL_CACHE_SIZE, a non-negative number of entries
func parseCacheSize(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed canonical path cache size %q: %w", s, err)
	}

	return uint32(n), nil
}

// parseProfileAll parses the value of SCALENE_PROFILE_ALL. Any value accepted by strconv.ParseBool
// is valid, an empty value means true.
func parseProfileAll(s string) (bool, error) {
	if strings.TrimSpace(s) == "" {
		return true, nil
	}

	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("malformed %s value %q: %w", ProfileAllEnv, s, err)
	}

	return v, nil
}

func lookupEnv(name string, parse func(string) error) error {
	s, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	return parse(s)
}
