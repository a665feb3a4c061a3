// Package roadmap holds the authored curriculum: roadmaps of ordered nodes
// with predecessor edges, and the catalog they are looked up in.
package roadmap

import (
	"slices"
	"sort"
)

// Defaults applied to payload fields left at zero by authors.
const (
	DefaultQuizPassScore       = 70
	DefaultAssignmentPassScore = 70
	DefaultMinSubmissionLength = 500
	DefaultRequiredPassing     = 2
	DefaultPeerPassingScore    = 80
	DefaultGradeThreshold      = 85
	DefaultAssignmentWeight    = 0.6
	DefaultFinalWeight         = 0.4
)

// Policy names the certificate eligibility rule a roadmap uses.
type Policy string

const (
	PolicyGradeThreshold Policy = "grade-threshold"
	PolicyPeerEvaluation Policy = "peer-evaluation"
)

// CertificateConfig configures certificate eligibility for one roadmap.
type CertificateConfig struct {
	Policy Policy

	// Grade-threshold policy.
	Threshold        int
	AssignmentWeight float64
	FinalWeight      float64
	FinalProject     string // assignment node id; empty when there is none

	// Peer-evaluation policy.
	FinalSubmission string // peer-graded assignment node id
	RequiredPassing int
	PassingScore    int
}

// Roadmap is an immutable curriculum graph for one course.
type Roadmap struct {
	ID          string
	Title       string
	Description string
	Version     string
	Certificate CertificateConfig

	nodes      []Node
	byID       map[string]int
	dependents map[string][]string
	topoOrder  []string
}

// New builds a roadmap from nodes in authored order. Nodes after the first
// that declare no predecessors get the previous node as their predecessor.
// Payload defaults are filled in on copies; the caller's values are not
// modified.
func New(id, title string, nodes []Node, cert CertificateConfig) (*Roadmap, error) {
	built := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Position = i
		n.Predecessors = slices.Clone(n.Predecessors)
		if i > 0 && len(n.Predecessors) == 0 {
			n.Predecessors = []string{nodes[i-1].ID}
		}
		n.Payload = withDefaults(n.Payload)
		built[i] = n
	}
	cert = certificateDefaults(cert)

	if err := validate(id, built, cert); err != nil {
		return nil, err
	}

	r := &Roadmap{
		ID:          id,
		Title:       title,
		Certificate: cert,
		nodes:       built,
		byID:        make(map[string]int, len(built)),
		dependents:  make(map[string][]string),
	}
	for i, n := range built {
		r.byID[n.ID] = i
	}
	for _, n := range built {
		for _, p := range n.Predecessors {
			r.dependents[p] = append(r.dependents[p], n.ID)
		}
	}
	r.topoOrder = r.topologicalOrder()
	return r, nil
}

func withDefaults(p Payload) Payload {
	switch v := p.(type) {
	case *Quiz:
		c := *v
		c.Questions = slices.Clone(v.Questions)
		if c.PassScore == 0 {
			c.PassScore = DefaultQuizPassScore
		}
		return &c
	case *Assignment:
		c := *v
		c.Rubric = slices.Clone(v.Rubric)
		if c.Grading == "" {
			c.Grading = GradingRubric
		}
		if c.MinLength == 0 {
			c.MinLength = DefaultMinSubmissionLength
		}
		if c.PassScore == 0 {
			c.PassScore = DefaultAssignmentPassScore
		}
		return &c
	case *PeerEvaluation:
		c := *v
		if c.RequiredPassing == 0 {
			c.RequiredPassing = DefaultRequiredPassing
		}
		if c.PassingScore == 0 {
			c.PassingScore = DefaultPeerPassingScore
		}
		return &c
	case *Lesson:
		c := *v
		return &c
	case *Certificate:
		c := *v
		return &c
	default:
		return p
	}
}

func certificateDefaults(c CertificateConfig) CertificateConfig {
	if c.Policy == "" {
		c.Policy = PolicyGradeThreshold
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultGradeThreshold
	}
	if c.AssignmentWeight == 0 && c.FinalWeight == 0 {
		c.AssignmentWeight = DefaultAssignmentWeight
		c.FinalWeight = DefaultFinalWeight
	}
	if c.RequiredPassing == 0 {
		c.RequiredPassing = DefaultRequiredPassing
	}
	if c.PassingScore == 0 {
		c.PassingScore = DefaultPeerPassingScore
	}
	return c
}

// topologicalOrder runs Kahn's algorithm, breaking ties by authored
// position so the order is deterministic.
func (r *Roadmap) topologicalOrder() []string {
	inDegree := make(map[string]int, len(r.nodes))
	for _, n := range r.nodes {
		inDegree[n.ID] = len(n.Predecessors)
	}

	var queue []string
	for _, n := range r.nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(r.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		deps := slices.Clone(r.dependents[id])
		sort.Slice(deps, func(i, j int) bool { return r.byID[deps[i]] < r.byID[deps[j]] })
		for _, d := range deps {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	return order
}

// Nodes returns the nodes in authored order.
func (r *Roadmap) Nodes() []Node {
	return slices.Clone(r.nodes)
}

// Len returns the number of nodes.
func (r *Roadmap) Len() int { return len(r.nodes) }

// First returns the entry node, which is always unlocked.
func (r *Roadmap) First() Node {
	return r.nodes[0]
}

// Node returns a node by ID.
func (r *Roadmap) Node(id string) (Node, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Node{}, false
	}
	return r.nodes[i], true
}

// Predecessors returns the direct predecessor IDs of a node.
func (r *Roadmap) Predecessors(id string) []string {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return slices.Clone(r.nodes[i].Predecessors)
}

// Dependents returns the IDs of nodes that list id as a predecessor.
func (r *Roadmap) Dependents(id string) []string {
	return slices.Clone(r.dependents[id])
}

// Ancestors returns every transitive predecessor of id in authored order.
func (r *Roadmap) Ancestors(id string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, p := range r.Predecessors(cur) {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(id)

	out := make([]string, 0, len(seen))
	for _, n := range r.nodes {
		if seen[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// TopologicalOrder returns nodes ordered so every node follows its
// predecessors.
func (r *Roadmap) TopologicalOrder() []Node {
	out := make([]Node, len(r.topoOrder))
	for i, id := range r.topoOrder {
		out[i] = r.nodes[r.byID[id]]
	}
	return out
}

// OfKind returns the nodes of one kind in authored order.
func (r *Roadmap) OfKind(k Kind) []Node {
	var out []Node
	for _, n := range r.nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}
