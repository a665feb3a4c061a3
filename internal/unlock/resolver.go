// Package unlock decides which curriculum items a learner may access. Every
// function here is pure: identical inputs always produce identical results.
package unlock

import (
	"math"

	"github.com/abhisek/skillquest/internal/roadmap"
)

// State is a node's lock state for one learner.
type State string

const (
	StateLocked    State = "locked"
	StateAvailable State = "available"
	StateCompleted State = "completed"
)

// Icon returns the status glyph for this state.
func (s State) Icon() string {
	switch s {
	case StateLocked:
		return "🔒"
	case StateAvailable:
		return "▶"
	case StateCompleted:
		return "✓"
	default:
		return "?"
	}
}

// Label returns a human-readable name for this state.
func (s State) Label() string {
	switch s {
	case StateLocked:
		return "Locked"
	case StateAvailable:
		return "Available"
	case StateCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// IsUnlocked reports whether nodeID may be attempted given the completed
// set. The first node is always unlocked; any other node is unlocked iff
// every declared predecessor is complete. Unknown nodes are locked.
func IsUnlocked(r *roadmap.Roadmap, done map[string]bool, nodeID string) bool {
	n, ok := r.Node(nodeID)
	if !ok {
		return false
	}
	if n.Position == 0 {
		return true
	}
	for _, p := range n.Predecessors {
		if !done[p] {
			return false
		}
	}
	return true
}

// Blocking returns the incomplete predecessors of nodeID in roadmap order.
// It is the redirect target when access to a locked node is attempted.
func Blocking(r *roadmap.Roadmap, done map[string]bool, nodeID string) []string {
	n, ok := r.Node(nodeID)
	if !ok || n.Position == 0 {
		return nil
	}
	pending := make(map[string]bool)
	for _, p := range n.Predecessors {
		if !done[p] {
			pending[p] = true
		}
	}
	var out []string
	for _, cand := range r.Nodes() {
		if pending[cand.ID] {
			out = append(out, cand.ID)
		}
	}
	return out
}

// AncestorsComplete reports whether every transitive predecessor of nodeID
// is complete. Certificate nodes require this in addition to eligibility.
func AncestorsComplete(r *roadmap.Roadmap, done map[string]bool, nodeID string) bool {
	for _, a := range r.Ancestors(nodeID) {
		if !done[a] {
			return false
		}
	}
	return true
}

// NodeStatus pairs a node with its derived state.
type NodeStatus struct {
	Node     roadmap.Node
	State    State
	Blocking []string
}

// States derives the state of every node, in authored order.
func States(r *roadmap.Roadmap, done map[string]bool) []NodeStatus {
	nodes := r.Nodes()
	out := make([]NodeStatus, len(nodes))
	for i, n := range nodes {
		st := NodeStatus{Node: n}
		switch {
		case done[n.ID]:
			st.State = StateCompleted
		case IsUnlocked(r, done, n.ID):
			st.State = StateAvailable
		default:
			st.State = StateLocked
			st.Blocking = Blocking(r, done, n.ID)
		}
		out[i] = st
	}
	return out
}

// Next returns the first available, incomplete node in topological order.
func Next(r *roadmap.Roadmap, done map[string]bool) (roadmap.Node, bool) {
	for _, n := range r.TopologicalOrder() {
		if !done[n.ID] && IsUnlocked(r, done, n.ID) {
			return n, true
		}
	}
	return roadmap.Node{}, false
}

// Ratio returns the fraction of the roadmap's nodes that are complete.
func Ratio(r *roadmap.Roadmap, done map[string]bool) float64 {
	if r.Len() == 0 {
		return 0
	}
	completed := 0
	for _, n := range r.Nodes() {
		if done[n.ID] {
			completed++
		}
	}
	return float64(completed) / float64(r.Len())
}

// Percent is Ratio as a rounded percentage.
func Percent(r *roadmap.Roadmap, done map[string]bool) int {
	return int(math.Round(Ratio(r, done) * 100))
}

// SequenceUnlocked applies the same rule to an ordered sequence such as
// the modules of a course or the courses of a quest: item 0 is always
// unlocked and item i is unlocked once item i-1 is complete.
func SequenceUnlocked(i int, complete func(int) bool) bool {
	if i <= 0 {
		return true
	}
	return complete(i - 1)
}

// FirstLocked returns the index of the first locked item in a sequence of
// n items, or n when every item is unlocked.
func FirstLocked(n int, complete func(int) bool) int {
	for i := 0; i < n; i++ {
		if !SequenceUnlocked(i, complete) {
			return i
		}
	}
	return n
}
