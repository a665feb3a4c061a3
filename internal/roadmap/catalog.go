package roadmap

import (
	"fmt"
	"slices"

	"github.com/abhisek/skillquest/internal/errs"
)

// Catalog is the set of roadmaps available to a learner session.
type Catalog struct {
	roadmaps []*Roadmap
	byID     map[string]*Roadmap
}

// NewCatalog indexes roadmaps by ID. Duplicate IDs are rejected.
func NewCatalog(roadmaps ...*Roadmap) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Roadmap, len(roadmaps))}
	for _, r := range roadmaps {
		if err := c.add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(r *Roadmap) error {
	if _, dup := c.byID[r.ID]; dup {
		return fmt.Errorf("duplicate roadmap ID: %q", r.ID)
	}
	c.byID[r.ID] = r
	c.roadmaps = append(c.roadmaps, r)
	return nil
}

// Merge returns a catalog holding the roadmaps of both catalogs.
func (c *Catalog) Merge(other *Catalog) (*Catalog, error) {
	return NewCatalog(append(slices.Clone(c.roadmaps), other.roadmaps...)...)
}

// Get returns a roadmap by ID.
func (c *Catalog) Get(id string) (*Roadmap, error) {
	r, ok := c.byID[id]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "roadmap", ID: id}
	}
	return r, nil
}

// All returns every roadmap in load order.
func (c *Catalog) All() []*Roadmap {
	return slices.Clone(c.roadmaps)
}

// Node resolves a node within a roadmap.
func (c *Catalog) Node(roadmapID, nodeID string) (*Roadmap, Node, error) {
	r, err := c.Get(roadmapID)
	if err != nil {
		return nil, Node{}, err
	}
	n, ok := r.Node(nodeID)
	if !ok {
		return nil, Node{}, &errs.NotFoundError{Kind: "node", ID: roadmapID + "/" + nodeID}
	}
	return r, n, nil
}
