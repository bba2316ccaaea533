// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package autoprofile

import (
	"bytes"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Birdi7/scalene/stacklocator"
	"github.com/google/uuid"
)

// CallSite accumulates the samples attributed to a source file or to a single line within it
type CallSite struct {
	FileName    string
	FileLine    int64
	measurement float64
	numSamples  int64
	children    map[string]*CallSite
	updateLock  *sync.RWMutex
}

// NewCallSite returns an empty CallSite
func NewCallSite(fileName string, fileLine int64) *CallSite {
	cn := &CallSite{
		FileName:   fileName,
		FileLine:   fileLine,
		children:   make(map[string]*CallSite),
		updateLock: &sync.RWMutex{},
	}

	return cn
}

// FindOrAddChild returns the child call site for a location, creating it if necessary
func (cs *CallSite) FindOrAddChild(fileName string, fileLine int64) *CallSite {
	child := cs.findChild(fileName, fileLine)
	if child == nil {
		child = NewCallSite(fileName, fileLine)
		cs.addChild(child)
	}

	return child
}

// Increment adds a measurement taken over numSamples samples
func (cs *CallSite) Increment(value float64, numSamples int64) {
	cs.updateLock.Lock()
	defer cs.updateLock.Unlock()

	cs.measurement += value
	cs.numSamples += numSamples
}

// Measurement returns the accumulated value and the number of samples
func (cs *CallSite) Measurement() (value float64, numSamples int64) {
	cs.updateLock.RLock()
	defer cs.updateLock.RUnlock()

	return cs.measurement, cs.numSamples
}

// Children returns child call sites ordered by their measurement, highest first
func (cs *CallSite) Children() []*CallSite {
	cs.updateLock.RLock()
	children := make([]*CallSite, 0, len(cs.children))
	for _, child := range cs.children {
		children = append(children, child)
	}
	cs.updateLock.RUnlock()

	sort.Slice(children, func(i, j int) bool {
		mi, _ := children[i].Measurement()
		mj, _ := children[j].Measurement()
		if mi != mj {
			return mi > mj
		}

		return createKey(children[i].FileName, children[i].FileLine) < createKey(children[j].FileName, children[j].FileLine)
	})

	return children
}

// ToMap converts the call site and its children into a map
func (cs *CallSite) ToMap() map[string]interface{} {
	childrenMap := make([]interface{}, 0)
	for _, child := range cs.Children() {
		childrenMap = append(childrenMap, child.ToMap())
	}

	m, ns := cs.Measurement()
	callSiteMap := map[string]interface{}{
		"file_name":   cs.FileName,
		"file_line":   cs.FileLine,
		"measurement": m,
		"num_samples": ns,
		"children":    childrenMap,
	}

	return callSiteMap
}

func (cs *CallSite) findChild(fileName string, fileLine int64) *CallSite {
	cs.updateLock.RLock()
	defer cs.updateLock.RUnlock()

	if child, exists := cs.children[createKey(fileName, fileLine)]; exists {
		return child
	}

	return nil
}

func (cs *CallSite) addChild(child *CallSite) {
	cs.updateLock.Lock()
	defer cs.updateLock.Unlock()

	key := createKey(child.FileName, child.FileLine)
	if _, exists := cs.children[key]; !exists {
		cs.children[key] = child
	}
}

func createKey(fileName string, fileLine int64) string {
	var b bytes.Buffer

	b.WriteString(fileName)
	b.WriteString(":")
	b.WriteString(strconv.FormatInt(fileLine, 10))

	return b.String()
}

// Profile is the result of attributing every sample of a profile to a source line. Each root stands
// for a source file, its children for the lines within it. Samples that could not be attributed are
// kept under the stacklocator.BogusFilename root, so the roots always add up to the profile total.
type Profile struct {
	ID        string
	Type      string
	Unit      string
	Roots     []*CallSite
	Duration  int64
	Timestamp int64
}

// NewProfile initializes a new Profile with a unique ID
func NewProfile(typ string, unit string, roots []*CallSite, duration time.Duration, timestamp time.Time) *Profile {
	return &Profile{
		ID:        uuid.NewString(),
		Type:      typ,
		Unit:      unit,
		Roots:     roots,
		Duration:  int64(duration / time.Millisecond),
		Timestamp: timestamp.Unix() * 1000,
	}
}

// Total returns the sum of measurements and samples over all roots
func (p *Profile) Total() (value float64, numSamples int64) {
	for _, root := range p.Roots {
		m, ns := root.Measurement()
		value += m
		numSamples += ns
	}

	return value, numSamples
}

// Unattributed returns the measurement and number of samples that could not be attributed to any frame
func (p *Profile) Unattributed() (value float64, numSamples int64) {
	for _, root := range p.Roots {
		if root.FileName == stacklocator.BogusFilename {
			return root.Measurement()
		}
	}

	return 0, 0
}

// ToMap converts the profile into a map
func (p *Profile) ToMap() map[string]interface{} {
	rootsMap := make([]interface{}, 0)

	for _, root := range p.Roots {
		rootsMap = append(rootsMap, root.ToMap())
	}

	profileMap := map[string]interface{}{
		"id":        p.ID,
		"type":      p.Type,
		"unit":      p.Unit,
		"roots":     rootsMap,
		"duration":  p.Duration,
		"timestamp": p.Timestamp,
	}

	return profileMap
}
