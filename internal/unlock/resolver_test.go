package unlock

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/abhisek/skillquest/internal/roadmap"
)

func dag(t *testing.T) *roadmap.Roadmap {
	t.Helper()
	r, err := roadmap.New("dag", "DAG", []roadmap.Node{
		{ID: "intro", Payload: &roadmap.Lesson{}},
		{ID: "html", Payload: &roadmap.Lesson{}},
		{ID: "css", Predecessors: []string{"intro"}, Payload: &roadmap.Lesson{}},
		{ID: "quiz", Predecessors: []string{"html", "css"}, Payload: &roadmap.Quiz{Questions: []roadmap.Question{
			{Prompt: "?", Options: []string{"a", "b"}},
		}}},
		{ID: "cert", Payload: &roadmap.Certificate{}},
	}, roadmap.CertificateConfig{})
	if err != nil {
		t.Fatalf("roadmap.New: %v", err)
	}
	return r
}

func TestIsUnlocked_FirstNodeAlways(t *testing.T) {
	r := dag(t)
	for _, done := range []map[string]bool{nil, {}, {"quiz": true}, {"intro": true, "cert": true}} {
		if !IsUnlocked(r, done, "intro") {
			t.Errorf("first node locked with done=%v", done)
		}
	}
}

func TestIsUnlocked_AllPredecessorsRequired(t *testing.T) {
	r := dag(t)
	tests := []struct {
		name string
		done map[string]bool
		node string
		want bool
	}{
		{"default linear pred incomplete", nil, "html", false},
		{"default linear pred complete", map[string]bool{"intro": true}, "html", true},
		{"explicit pred complete", map[string]bool{"intro": true}, "css", true},
		{"one of two preds", map[string]bool{"intro": true, "html": true}, "quiz", false},
		{"both preds", map[string]bool{"html": true, "css": true}, "quiz", true},
		{"unknown node", map[string]bool{"intro": true}, "ghost", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnlocked(r, tt.done, tt.node); got != tt.want {
				t.Errorf("IsUnlocked(%q) = %v, want %v", tt.node, got, tt.want)
			}
		})
	}
}

// For random completion sets, a non-first node is unlocked exactly when
// all of its predecessors are complete, and repeated calls agree.
func TestIsUnlocked_MatchesPredecessorRule(t *testing.T) {
	r := dag(t)
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		done := make(map[string]bool)
		for _, n := range r.Nodes() {
			if rng.IntN(2) == 0 {
				done[n.ID] = true
			}
		}
		for _, n := range r.Nodes()[1:] {
			want := true
			for _, p := range n.Predecessors {
				want = want && done[p]
			}
			got := IsUnlocked(r, done, n.ID)
			if got != want || IsUnlocked(r, done, n.ID) != got {
				t.Fatalf("IsUnlocked(%q, %v) = %v, want %v", n.ID, done, got, want)
			}
		}
	}
}

func TestBlockingInRoadmapOrder(t *testing.T) {
	r := dag(t)
	got := Blocking(r, map[string]bool{"intro": true}, "quiz")
	if !slices.Equal(got, []string{"html", "css"}) {
		t.Errorf("Blocking = %v, want [html css]", got)
	}
	if b := Blocking(r, nil, "intro"); b != nil {
		t.Errorf("first node Blocking = %v, want nil", b)
	}
}

func TestStatesAndPercent(t *testing.T) {
	r := dag(t)
	done := map[string]bool{"intro": true, "html": true}

	want := map[string]State{
		"intro": StateCompleted,
		"html":  StateCompleted,
		"css":   StateAvailable,
		"quiz":  StateLocked,
		"cert":  StateLocked,
	}
	for _, st := range States(r, done) {
		if st.State != want[st.Node.ID] {
			t.Errorf("%s: state %s, want %s", st.Node.ID, st.State, want[st.Node.ID])
		}
	}

	if got := Ratio(r, done); got != 0.4 {
		t.Errorf("Ratio = %v, want 0.4", got)
	}
	if got := Percent(r, done); got != 40 {
		t.Errorf("Percent = %d, want 40", got)
	}
	if n, ok := Next(r, done); !ok || n.ID != "css" {
		t.Errorf("Next = %q, %v; want css", n.ID, ok)
	}
}

func TestAncestorsComplete(t *testing.T) {
	r := dag(t)
	partial := map[string]bool{"html": true, "css": true, "quiz": true}
	if AncestorsComplete(r, partial, "cert") {
		t.Error("cert ancestors complete without intro")
	}
	partial["intro"] = true
	if !AncestorsComplete(r, partial, "cert") {
		t.Error("cert ancestors should be complete")
	}
}

func TestSequenceUnlocked(t *testing.T) {
	complete := []bool{true, true, false, false}
	at := func(i int) bool { return complete[i] }

	wants := []bool{true, true, true, false}
	for i, want := range wants {
		if got := SequenceUnlocked(i, at); got != want {
			t.Errorf("SequenceUnlocked(%d) = %v, want %v", i, got, want)
		}
	}
	if got := FirstLocked(len(complete), at); got != 3 {
		t.Errorf("FirstLocked = %d, want 3", got)
	}
}
