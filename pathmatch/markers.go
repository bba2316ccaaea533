// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package pathmatch

// Path fragments recognized by the trace filter and the stack locator. They are matched as
// plain substrings (or a prefix, for SyntheticPrefix) against source file identifiers.
const (
	// SitePackagesMarker is present in paths of installed third-party packages
	SitePackagesMarker = "site-packages"
	// StdlibMarker is present in paths of the standard library installation
	StdlibMarker = "/lib/python"
	// SyntheticPrefix starts the name of dynamically generated sources, e.g. "<string>" or "<ipython-input-3>"
	SyntheticPrefix = "<"
	// InteractiveMarker identifies sources generated by an interactive shell or notebook cell
	InteractiveMarker = "<ipython"
	// RuntimeMarker is present in paths of the in-tree runtime library
	RuntimeMarker = "/python"
	// ProfilerMarker identifies the profiler's own implementation files
	ProfilerMarker = "scalene/scalene"
)

// LibraryMatcher returns the matcher for third-party and standard library sources
func LibraryMatcher() ContainsMatcher {
	return NewContainsMatcher(SitePackagesMarker, StdlibMarker)
}

// InteractiveMatcher returns the matcher for sources generated by an interactive shell
func InteractiveMatcher() PrefixedContainsMatcher {
	return NewPrefixedContainsMatcher(SyntheticPrefix, InteractiveMarker)
}

// ProfilerMatcher returns the matcher for the profiler's own files
func ProfilerMatcher() ContainsMatcher {
	return NewContainsMatcher(ProfilerMarker)
}

// FrameSkipMatcher returns the matcher used to skip a frame during a stack walk before the trace
// filter gets consulted: synthetic sources, runtime library paths and the profiler itself
func FrameSkipMatcher() ContainsMatcher {
	return NewContainsMatcher(SyntheticPrefix, RuntimeMarker, ProfilerMarker)
}
