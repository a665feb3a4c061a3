package roadmap

// Kind identifies the variant carried by a Node's payload.
type Kind string

const (
	KindLesson         Kind = "lesson"
	KindQuiz           Kind = "quiz"
	KindAssignment     Kind = "assignment"
	KindPeerEvaluation Kind = "peer-evaluation"
	KindCertificate    Kind = "certificate"
)

// AllKinds returns every node kind in display order.
func AllKinds() []Kind {
	return []Kind{KindLesson, KindQuiz, KindAssignment, KindPeerEvaluation, KindCertificate}
}

// Icon returns the glyph used for this kind in status listings.
func (k Kind) Icon() string {
	switch k {
	case KindLesson:
		return "📖"
	case KindQuiz:
		return "❓"
	case KindAssignment:
		return "📝"
	case KindPeerEvaluation:
		return "👥"
	case KindCertificate:
		return "🎓"
	default:
		return "•"
	}
}

// Label returns a human-readable name for this kind.
func (k Kind) Label() string {
	switch k {
	case KindLesson:
		return "Lesson"
	case KindQuiz:
		return "Quiz"
	case KindAssignment:
		return "Assignment"
	case KindPeerEvaluation:
		return "Peer Evaluation"
	case KindCertificate:
		return "Certificate"
	default:
		return string(k)
	}
}

// Payload is the sealed set of node variants. Only types in this package
// implement it.
type Payload interface {
	kind() Kind
}

// Lesson is read-only content; visiting it completes it.
type Lesson struct {
	Content   string
	Resources []string
}

// Question is a single multiple-choice quiz item. Correct indexes Options.
type Question struct {
	Prompt      string
	Options     []string
	Correct     int
	Explanation string
}

// Quiz is a scored multiple-choice check.
type Quiz struct {
	Questions []Question
	PassScore int
}

// Grading selects how an assignment's score is produced.
type Grading string

const (
	GradingRubric Grading = "rubric"
	GradingPeer   Grading = "peer"
)

// Criterion is one named rubric line and the points it is worth.
type Criterion struct {
	Name        string
	Points      int
	Description string
}

// Rubric is a fixed list of criteria whose points sum to 100.
type Rubric []Criterion

// Total returns the sum of criterion points.
func (r Rubric) Total() int {
	sum := 0
	for _, c := range r {
		sum += c.Points
	}
	return sum
}

// Criterion looks up a criterion by name.
func (r Rubric) Criterion(name string) (Criterion, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Assignment is a free-text submission graded by rubric or by peers.
type Assignment struct {
	Prompt    string
	Starter   string
	Rubric    Rubric
	Grading   Grading
	MinLength int
	PassScore int
}

// PeerEvaluation gates progress on peer reviews of a peer-graded
// assignment elsewhere in the same roadmap.
type PeerEvaluation struct {
	Assignment      string
	RequiredPassing int
	PassingScore    int
}

// Certificate is the terminal node of a roadmap.
type Certificate struct {
	Title string
}

func (*Lesson) kind() Kind         { return KindLesson }
func (*Quiz) kind() Kind           { return KindQuiz }
func (*Assignment) kind() Kind     { return KindAssignment }
func (*PeerEvaluation) kind() Kind { return KindPeerEvaluation }
func (*Certificate) kind() Kind    { return KindCertificate }

// Node is an atomic curriculum unit.
type Node struct {
	ID       string
	Title    string
	Position int

	// Predecessors lists node IDs that must be complete before this node
	// unlocks. Empty on every node but the first means "previous node".
	Predecessors []string

	Payload Payload
}

// Kind returns the variant of the node's payload.
func (n Node) Kind() Kind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.kind()
}

// Visitor handles every node variant. Adding a variant adds a method, so
// every implementation stops compiling until it handles the new case.
type Visitor[T any] interface {
	Lesson(n Node, p *Lesson) T
	Quiz(n Node, p *Quiz) T
	Assignment(n Node, p *Assignment) T
	PeerEvaluation(n Node, p *PeerEvaluation) T
	Certificate(n Node, p *Certificate) T
}

// Match dispatches n to the visitor method for its payload.
func Match[T any](n Node, v Visitor[T]) T {
	switch p := n.Payload.(type) {
	case *Lesson:
		return v.Lesson(n, p)
	case *Quiz:
		return v.Quiz(n, p)
	case *Assignment:
		return v.Assignment(n, p)
	case *PeerEvaluation:
		return v.PeerEvaluation(n, p)
	case *Certificate:
		return v.Certificate(n, p)
	default:
		panic("roadmap: node " + n.ID + " has no payload")
	}
}
