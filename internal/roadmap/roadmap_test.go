package roadmap

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/abhisek/skillquest/internal/errs"
)

func linear(t *testing.T) *Roadmap {
	t.Helper()
	r, err := New("intro", "Intro", []Node{
		{ID: "read", Title: "Read", Payload: &Lesson{Content: "hello"}},
		{ID: "check", Title: "Check", Payload: &Quiz{Questions: []Question{
			{Prompt: "1+1?", Options: []string{"1", "2"}, Correct: 1},
		}}},
		{ID: "cert", Title: "Cert", Payload: &Certificate{}},
	}, CertificateConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_DefaultLinearPredecessors(t *testing.T) {
	r := linear(t)
	tests := []struct {
		id   string
		want []string
	}{
		{"read", nil},
		{"check", []string{"read"}},
		{"cert", []string{"check"}},
	}
	for _, tt := range tests {
		got := r.Predecessors(tt.id)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Predecessors(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if r.First().ID != "read" {
		t.Errorf("First() = %q, want read", r.First().ID)
	}
}

func TestNew_FillsPayloadDefaults(t *testing.T) {
	quiz := &Quiz{Questions: []Question{{Prompt: "q", Options: []string{"a", "b"}}}}
	r, err := New("d", "Defaults", []Node{
		{ID: "q", Payload: quiz},
		{ID: "a", Payload: &Assignment{Grading: GradingPeer}},
		{ID: "p", Payload: &PeerEvaluation{Assignment: "a"}},
	}, CertificateConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, _ := r.Node("q")
	if got := n.Payload.(*Quiz).PassScore; got != DefaultQuizPassScore {
		t.Errorf("quiz pass score = %d, want %d", got, DefaultQuizPassScore)
	}
	if quiz.PassScore != 0 {
		t.Error("New must not modify the caller's payload")
	}

	n, _ = r.Node("a")
	a := n.Payload.(*Assignment)
	if a.MinLength != DefaultMinSubmissionLength || a.PassScore != DefaultAssignmentPassScore {
		t.Errorf("assignment defaults = (%d, %d)", a.MinLength, a.PassScore)
	}

	n, _ = r.Node("p")
	p := n.Payload.(*PeerEvaluation)
	if p.RequiredPassing != 2 || p.PassingScore != 80 {
		t.Errorf("peer defaults = (%d, %d), want (2, 80)", p.RequiredPassing, p.PassingScore)
	}

	if r.Certificate.Policy != PolicyGradeThreshold || r.Certificate.Threshold != 85 {
		t.Errorf("certificate defaults = %+v", r.Certificate)
	}
}

func TestNew_RejectsStructuralDefects(t *testing.T) {
	lesson := func() Payload { return &Lesson{} }
	tests := []struct {
		name  string
		nodes []Node
		cert  CertificateConfig
		want  string
	}{
		{
			name:  "duplicate id",
			nodes: []Node{{ID: "a", Payload: lesson()}, {ID: "a", Payload: lesson()}},
			want:  "duplicate node ID",
		},
		{
			name:  "dangling predecessor",
			nodes: []Node{{ID: "a", Payload: lesson()}, {ID: "b", Predecessors: []string{"zz"}, Payload: lesson()}},
			want:  "nonexistent predecessor",
		},
		{
			name: "cycle",
			nodes: []Node{
				{ID: "a", Payload: lesson()},
				{ID: "b", Predecessors: []string{"c"}, Payload: lesson()},
				{ID: "c", Predecessors: []string{"b"}, Payload: lesson()},
			},
			want: "cycle detected",
		},
		{
			name: "rubric does not sum to 100",
			nodes: []Node{{ID: "a", Payload: &Assignment{Rubric: Rubric{
				{Name: "x", Points: 40}, {Name: "y", Points: 40},
			}}}},
			want: "sum to 80",
		},
		{
			name:  "quiz answer key out of range",
			nodes: []Node{{ID: "q", Payload: &Quiz{Questions: []Question{{Options: []string{"a", "b"}, Correct: 5}}}}},
			want:  "answer key 5 out of range",
		},
		{
			name:  "missing payload",
			nodes: []Node{{ID: "a"}},
			want:  "missing payload",
		},
		{
			name:  "peer policy without peer assignment",
			nodes: []Node{{ID: "a", Payload: lesson()}},
			cert:  CertificateConfig{Policy: PolicyPeerEvaluation, FinalSubmission: "a"},
			want:  "not a peer-graded assignment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", "Bad", tt.nodes, tt.cert)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ce *errs.ContentError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a ContentError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestAncestorsAndTopologicalOrder(t *testing.T) {
	r, err := New("dag", "DAG", []Node{
		{ID: "a", Payload: &Lesson{}},
		{ID: "b", Payload: &Lesson{}},
		{ID: "c", Predecessors: []string{"a"}, Payload: &Lesson{}},
		{ID: "d", Predecessors: []string{"b", "c"}, Payload: &Certificate{}},
	}, CertificateConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := r.Ancestors("d"); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Ancestors(d) = %v", got)
	}

	pos := make(map[string]int)
	for i, n := range r.TopologicalOrder() {
		pos[n.ID] = i
	}
	for _, n := range r.Nodes() {
		for _, p := range n.Predecessors {
			if pos[p] >= pos[n.ID] {
				t.Errorf("%s appears before its predecessor %s", n.ID, p)
			}
		}
	}
}

type kindCounter struct{}

func (kindCounter) Lesson(Node, *Lesson) string                 { return "lesson" }
func (kindCounter) Quiz(Node, *Quiz) string                     { return "quiz" }
func (kindCounter) Assignment(Node, *Assignment) string         { return "assignment" }
func (kindCounter) PeerEvaluation(Node, *PeerEvaluation) string { return "peer-evaluation" }
func (kindCounter) Certificate(Node, *Certificate) string       { return "certificate" }

func TestMatchDispatchesEveryKind(t *testing.T) {
	for _, r := range mustBuiltin(t).All() {
		for _, n := range r.Nodes() {
			if got := Match[string](n, kindCounter{}); got != string(n.Kind()) {
				t.Errorf("%s/%s: Match = %q, Kind = %q", r.ID, n.ID, got, n.Kind())
			}
		}
	}
}

func mustBuiltin(t *testing.T) *Catalog {
	t.Helper()
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	return c
}

func TestBuiltinCatalog(t *testing.T) {
	c := mustBuiltin(t)

	web, err := c.Get("web-foundations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if web.Certificate.Policy != PolicyGradeThreshold || web.Certificate.FinalProject != "final-project" {
		t.Errorf("web-foundations certificate = %+v", web.Certificate)
	}

	py, err := c.Get("python-capstone")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if py.Certificate.Policy != PolicyPeerEvaluation {
		t.Errorf("python-capstone policy = %q", py.Certificate.Policy)
	}

	if _, err := c.Get("nope"); !errs.IsNotFound(err) {
		t.Errorf("Get(nope) error = %v, want NotFoundError", err)
	}
	if _, _, err := c.Node("web-foundations", "nope"); !errs.IsNotFound(err) {
		t.Errorf("Node(nope) error = %v, want NotFoundError", err)
	}
}

func TestParse_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unsupported major", "id: x\ntitle: X\nversion: v2.0.0\nnodes:\n  - {id: a, title: A, type: lesson}\n"},
		{"invalid version", "id: x\ntitle: X\nversion: banana\nnodes:\n  - {id: a, title: A, type: lesson}\n"},
		{"unknown node type", "id: x\ntitle: X\nversion: v1.0.0\nnodes:\n  - {id: a, title: A, type: video}\n"},
		{"missing nodes", "id: x\ntitle: X\nversion: v1.0.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParse_AcceptsBareVersion(t *testing.T) {
	r, err := Parse([]byte("id: x\ntitle: X\nversion: 1.4.0\nnodes:\n  - {id: a, title: A, type: lesson}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Len() != 1 || r.First().Kind() != KindLesson {
		t.Errorf("unexpected roadmap: %+v", r.Nodes())
	}
}
