// Package enginestate implements the double-buffered UI -> RT graph
// handoff: two storage slots and an atomic active index, so the RT callback
// never locks to read the current render graph. Grounded on
// NomadAudio/include/EngineState.h.
package enginestate

import (
	"sync/atomic"

	"github.com/nomadaudio/engine/pkg/rendergraph"
)

// State holds two graph slots and publishes which one is active. Construct
// it with New: SwapGraph on a zero State blocks forever, because the publish
// semaphore New creates is missing. ActiveGraph returns nil until the first
// SwapGraph.
type State struct {
	slots      [2]atomic.Pointer[rendergraph.AudioGraph]
	activeIdx  atomic.Int32
	publishMu  chan struct{} // 1-buffered: serializes concurrent UI-side publishers
}

// New constructs a State ready for use.
func New() *State {
	s := &State{}
	s.publishMu = make(chan struct{}, 1)
	s.publishMu <- struct{}{}
	return s
}

// SwapGraph stores the pointer next in the inactive slot (the graph itself is
// not copied; the callback reads the caller's graph), then publishes it as active
// with a release store so any callback that observes the new index also
// observes the fully-written slot. Safe to call from multiple UI-side
// goroutines; calls are serialized against each other (not against
// ActiveGraph, which never blocks).
func (s *State) SwapGraph(next *rendergraph.AudioGraph) {
	<-s.publishMu
	defer func() { s.publishMu <- struct{}{} }()

	current := s.activeIdx.Load()
	inactive := 1 - current
	s.slots[inactive].Store(next)
	s.activeIdx.Store(inactive)
}

// ActiveGraph reads the currently active slot with acquire ordering and
// returns it without copying or blocking. Safe to call from the RT
// callback. Returns nil if SwapGraph has never been called.
func (s *State) ActiveGraph() *rendergraph.AudioGraph {
	idx := s.activeIdx.Load()
	return s.slots[idx].Load()
}
