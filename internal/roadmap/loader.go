package roadmap

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/skillquest/internal/errs"
)

// SupportedMajor is the document format major version this loader reads.
const SupportedMajor = "v1"

//go:embed builtin/*.yaml
var builtinFS embed.FS

type document struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Certificate certificateDoc `yaml:"certificate"`
	Nodes       []nodeDocument `yaml:"nodes"`
}

type certificateDoc struct {
	Policy           string  `yaml:"policy"`
	Threshold        int     `yaml:"threshold"`
	AssignmentWeight float64 `yaml:"assignment_weight"`
	FinalWeight      float64 `yaml:"final_weight"`
	FinalProject     string  `yaml:"final_project"`
	FinalSubmission  string  `yaml:"final_submission"`
	RequiredPassing  int     `yaml:"required_passing"`
	PassingScore     int     `yaml:"passing_score"`
}

type nodeDocument struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Type         string   `yaml:"type"`
	Predecessors []string `yaml:"predecessors"`

	// lesson
	Content   string   `yaml:"content"`
	Resources []string `yaml:"resources"`

	// quiz
	Questions []struct {
		Prompt      string   `yaml:"prompt"`
		Options     []string `yaml:"options"`
		Correct     int      `yaml:"correct"`
		Explanation string   `yaml:"explanation"`
	} `yaml:"questions"`
	PassScore int `yaml:"pass_score"`

	// assignment
	Prompt  string `yaml:"prompt"`
	Starter string `yaml:"starter"`
	Grading string `yaml:"grading"`
	Rubric  []struct {
		Name        string `yaml:"name"`
		Points      int    `yaml:"points"`
		Description string `yaml:"description"`
	} `yaml:"rubric"`
	MinLength int `yaml:"min_length"`

	// peer-evaluation
	Assignment      string `yaml:"assignment"`
	RequiredPassing int    `yaml:"required_passing"`
	PassingScore    int    `yaml:"passing_score"`
}

func (d nodeDocument) payload() Payload {
	switch Kind(d.Type) {
	case KindLesson:
		return &Lesson{Content: d.Content, Resources: d.Resources}
	case KindQuiz:
		q := &Quiz{PassScore: d.PassScore}
		for _, dq := range d.Questions {
			q.Questions = append(q.Questions, Question{
				Prompt:      dq.Prompt,
				Options:     dq.Options,
				Correct:     dq.Correct,
				Explanation: dq.Explanation,
			})
		}
		return q
	case KindAssignment:
		a := &Assignment{
			Prompt:    d.Prompt,
			Starter:   d.Starter,
			Grading:   Grading(d.Grading),
			MinLength: d.MinLength,
			PassScore: d.PassScore,
		}
		for _, c := range d.Rubric {
			a.Rubric = append(a.Rubric, Criterion{Name: c.Name, Points: c.Points, Description: c.Description})
		}
		return a
	case KindPeerEvaluation:
		return &PeerEvaluation{
			Assignment:      d.Assignment,
			RequiredPassing: d.RequiredPassing,
			PassingScore:    d.PassingScore,
		}
	case KindCertificate:
		return &Certificate{Title: d.Title}
	default:
		return nil
	}
}

// Parse decodes and validates a YAML roadmap document.
func Parse(data []byte) (*Roadmap, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &errs.ContentError{Where: "roadmap document", Err: fmt.Errorf("decode yaml: %w", err)}
	}

	schema, err := documentValidator()
	if err != nil {
		return nil, fmt.Errorf("compile roadmap schema: %w", err)
	}
	if err := schema.Validate(normalize(raw)); err != nil {
		return nil, &errs.ContentError{Where: "roadmap document", Err: err}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &errs.ContentError{Where: "roadmap document", Err: fmt.Errorf("decode yaml: %w", err)}
	}

	if err := checkVersion(doc.Version); err != nil {
		return nil, &errs.ContentError{Where: "roadmap " + doc.ID, Err: err}
	}

	nodes := make([]Node, len(doc.Nodes))
	for i, d := range doc.Nodes {
		nodes[i] = Node{
			ID:           d.ID,
			Title:        d.Title,
			Predecessors: d.Predecessors,
			Payload:      d.payload(),
		}
	}

	r, err := New(doc.ID, doc.Title, nodes, CertificateConfig{
		Policy:           Policy(doc.Certificate.Policy),
		Threshold:        doc.Certificate.Threshold,
		AssignmentWeight: doc.Certificate.AssignmentWeight,
		FinalWeight:      doc.Certificate.FinalWeight,
		FinalProject:     doc.Certificate.FinalProject,
		FinalSubmission:  doc.Certificate.FinalSubmission,
		RequiredPassing:  doc.Certificate.RequiredPassing,
		PassingScore:     doc.Certificate.PassingScore,
	})
	if err != nil {
		return nil, err
	}
	r.Description = doc.Description
	r.Version = doc.Version
	return r, nil
}

func checkVersion(v string) error {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid version %q", v)
	}
	if major := semver.Major(v); major != SupportedMajor {
		return fmt.Errorf("unsupported document version %s (want %s.x)", v, SupportedMajor)
	}
	return nil
}

// LoadFS parses every .yaml/.yml file directly under dir in fsys.
func LoadFS(fsys fs.FS, dir string) ([]*Roadmap, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read roadmap dir %s: %w", dir, err)
	}

	var out []*Roadmap
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		r, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Builtin returns the catalog of roadmaps shipped with the binary.
func Builtin() (*Catalog, error) {
	roadmaps, err := LoadFS(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	return NewCatalog(roadmaps...)
}

// LoadCatalog returns the built-in catalog extended with roadmaps from dir.
// An empty dir yields only the built-ins.
func LoadCatalog(dir string) (*Catalog, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("load builtin roadmaps: %w", err)
	}
	if dir == "" {
		return builtin, nil
	}
	extra, err := LoadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	more, err := NewCatalog(extra...)
	if err != nil {
		return nil, err
	}
	return builtin.Merge(more)
}
