package roadmap

import (
	"fmt"
	"strings"

	"github.com/abhisek/skillquest/internal/errs"
)

// validate performs all structural checks on a roadmap's nodes and
// certificate configuration. It reports every problem at once.
func validate(id string, nodes []Node, cert CertificateConfig) error {
	var problems []string

	if id == "" {
		problems = append(problems, "roadmap ID is empty")
	}
	if len(nodes) == 0 {
		problems = append(problems, "roadmap has no nodes")
	}

	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			problems = append(problems, fmt.Sprintf("node at position %d has no ID", i))
			continue
		}
		if _, dup := idx[n.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate node ID: %q", n.ID))
		}
		idx[n.ID] = i
	}

	if len(nodes) > 0 && len(nodes[0].Predecessors) > 0 {
		problems = append(problems, fmt.Sprintf("first node %q must not declare predecessors", nodes[0].ID))
	}

	for _, n := range nodes {
		for _, p := range n.Predecessors {
			if _, ok := idx[p]; !ok {
				problems = append(problems, fmt.Sprintf("node %q references nonexistent predecessor %q", n.ID, p))
			}
			if p == n.ID {
				problems = append(problems, fmt.Sprintf("node %q lists itself as a predecessor", n.ID))
			}
		}
		problems = append(problems, validatePayload(n, nodes, idx)...)
	}

	if cycle := findCycle(nodes); len(cycle) > 0 {
		problems = append(problems, fmt.Sprintf("cycle detected involving nodes: %s", strings.Join(cycle, ", ")))
	}

	problems = append(problems, validateCertificate(cert, nodes, idx)...)

	if len(problems) > 0 {
		return &errs.ContentError{
			Where: "roadmap " + id,
			Err:   fmt.Errorf("validation failed:\n  %s", strings.Join(problems, "\n  ")),
		}
	}
	return nil
}

func validatePayload(n Node, nodes []Node, idx map[string]int) []string {
	var problems []string
	prefix := fmt.Sprintf("node %q", n.ID)

	switch p := n.Payload.(type) {
	case nil:
		problems = append(problems, prefix+": missing payload")
	case *Quiz:
		if len(p.Questions) == 0 {
			problems = append(problems, prefix+": quiz has no questions")
		}
		for i, q := range p.Questions {
			if len(q.Options) < 2 {
				problems = append(problems, fmt.Sprintf("%s question %d: needs at least 2 options", prefix, i))
			}
			if q.Correct < 0 || q.Correct >= len(q.Options) {
				problems = append(problems, fmt.Sprintf("%s question %d: answer key %d out of range", prefix, i, q.Correct))
			}
		}
		if p.PassScore < 0 || p.PassScore > 100 {
			problems = append(problems, fmt.Sprintf("%s: pass score must be in [0, 100], got %d", prefix, p.PassScore))
		}
	case *Assignment:
		switch p.Grading {
		case GradingRubric:
			if len(p.Rubric) == 0 {
				problems = append(problems, prefix+": rubric-graded assignment has no rubric")
			} else if total := p.Rubric.Total(); total != 100 {
				problems = append(problems, fmt.Sprintf("%s: rubric points sum to %d, want 100", prefix, total))
			}
			seen := make(map[string]bool)
			for _, c := range p.Rubric {
				if seen[c.Name] {
					problems = append(problems, fmt.Sprintf("%s: duplicate rubric criterion %q", prefix, c.Name))
				}
				seen[c.Name] = true
				if c.Points <= 0 {
					problems = append(problems, fmt.Sprintf("%s: criterion %q must be worth > 0 points", prefix, c.Name))
				}
			}
		case GradingPeer:
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown grading %q", prefix, p.Grading))
		}
		if p.MinLength < 0 {
			problems = append(problems, fmt.Sprintf("%s: min length must be >= 0, got %d", prefix, p.MinLength))
		}
	case *PeerEvaluation:
		i, ok := idx[p.Assignment]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: gates nonexistent assignment %q", prefix, p.Assignment))
			break
		}
		a, isAssignment := nodes[i].Payload.(*Assignment)
		if !isAssignment || a.Grading != GradingPeer {
			problems = append(problems, fmt.Sprintf("%s: %q is not a peer-graded assignment", prefix, p.Assignment))
		}
		if p.PassingScore < 0 || p.PassingScore > 100 {
			problems = append(problems, fmt.Sprintf("%s: passing score must be in [0, 100], got %d", prefix, p.PassingScore))
		}
	}
	return problems
}

func validateCertificate(c CertificateConfig, nodes []Node, idx map[string]int) []string {
	var problems []string

	assignment := func(id string) (*Assignment, bool) {
		i, ok := idx[id]
		if !ok {
			return nil, false
		}
		a, ok := nodes[i].Payload.(*Assignment)
		return a, ok
	}

	switch c.Policy {
	case PolicyGradeThreshold:
		if c.FinalProject != "" {
			if _, ok := assignment(c.FinalProject); !ok {
				problems = append(problems, fmt.Sprintf("certificate: final project %q is not an assignment", c.FinalProject))
			}
		}
		if c.AssignmentWeight < 0 || c.FinalWeight < 0 {
			problems = append(problems, "certificate: weights must be >= 0")
		}
	case PolicyPeerEvaluation:
		a, ok := assignment(c.FinalSubmission)
		if !ok || a.Grading != GradingPeer {
			problems = append(problems, fmt.Sprintf("certificate: final submission %q is not a peer-graded assignment", c.FinalSubmission))
		}
	default:
		problems = append(problems, fmt.Sprintf("certificate: unknown policy %q", c.Policy))
	}
	return problems
}

// findCycle returns the nodes left unvisited by Kahn's algorithm, which
// are exactly those on or behind a cycle.
func findCycle(nodes []Node) []string {
	inDegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string)
	for _, n := range nodes {
		inDegree[n.ID] = len(n.Predecessors)
		for _, p := range n.Predecessors {
			adj[p] = append(adj[p], n.ID)
		}
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, d := range adj[id] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if visited == len(nodes) {
		return nil
	}

	var cycle []string
	for _, n := range nodes {
		if inDegree[n.ID] > 0 {
			cycle = append(cycle, n.ID)
		}
	}
	return cycle
}
