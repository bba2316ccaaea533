// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package pathmatch

import (
	"strings"
)

// Matcher verifies whether a path meets predefined conditions
type Matcher interface {
	Match(path string) bool
}

// NoneMatcher does not match any path
type NoneMatcher struct{}

// Match returns false for any path
func (m NoneMatcher) Match(string) bool { return false }

// ContainsMatcher matches a path if it contains any of the fragments in the matcher's list
type ContainsMatcher struct {
	list []string
}

// NewContainsMatcher returns a ContainsMatcher for a list of path fragments. The list is copied,
// so the caller is free to modify the slice afterwards.
func NewContainsMatcher(fragments ...string) ContainsMatcher {
	return ContainsMatcher{append([]string(nil), fragments...)}
}

// Match returns true if a path contains any of matcher's fragments
func (m ContainsMatcher) Match(path string) bool {
	for _, fragment := range m.list {
		if strings.Contains(path, fragment) {
			return true
		}
	}

	return false
}

// Fragments returns a copy of the matcher's fragment list in its original order
func (m ContainsMatcher) Fragments() []string {
	return append([]string(nil), m.list...)
}

// Len returns the number of fragments
func (m ContainsMatcher) Len() int {
	return len(m.list)
}

// PrefixedContainsMatcher matches a path that starts with a prefix and contains a fragment
type PrefixedContainsMatcher struct {
	prefix, fragment string
}

// NewPrefixedContainsMatcher returns a PrefixedContainsMatcher
func NewPrefixedContainsMatcher(prefix, fragment string) PrefixedContainsMatcher {
	return PrefixedContainsMatcher{prefix: prefix, fragment: fragment}
}

// Match returns true if path starts with the matcher prefix and contains its fragment anywhere,
// including within the prefix itself
func (m PrefixedContainsMatcher) Match(path string) bool {
	return strings.HasPrefix(path, m.prefix) && strings.Contains(path, m.fragment)
}
