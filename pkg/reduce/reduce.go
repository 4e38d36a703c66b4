// Package reduce collapses a labeled graph into equivalence classes.
//
// Every node is assigned a class key by [ResolveClassKey]. Distinct keys are
// ranked in natural order ([BuildIndex]); the rank is the row/column of the
// class in the incidence matrix ([BuildIncidence]) and its index in the
// palette ([BuildPalette]). [Reduce] runs all of it on a loaded document.
//
// The reduction is a single-pass, in-memory batch transform. Any data error
// aborts it: no partial [Reduction] is ever returned.
package reduce

import (
	"strconv"
	"strings"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/graphml"
	"github.com/matzehuels/eqgraph/pkg/matrix"
	"github.com/matzehuels/eqgraph/pkg/natsort"
	"github.com/matzehuels/eqgraph/pkg/palette"
)

// Reduction is the result of reducing a document. It must not be modified.
type Reduction struct {
	// Classes holds the class keys in rank order; Classes[i] is the key of
	// matrix row i and palette index i.
	Classes []string
	// NodeClass maps node ID to class index.
	NodeClass map[string]int
	// Matrix is the K×K class incidence matrix.
	Matrix *matrix.Matrix
	// Palette maps each class index to a color.
	Palette palette.Palette

	members [][]string
	edges   int
}

// Stats summarizes a reduction for logging.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Classes    int `json:"classes"`
	Incidences int `json:"incidences"` // set cells in the matrix
	Singletons int `json:"singletons"` // classes with a single member
}

// Size returns the class count K.
func (r *Reduction) Size() int { return len(r.Classes) }

// Members returns the IDs of the nodes in class i, in document order.
func (r *Reduction) Members(i int) []string {
	if i < 0 || i >= len(r.members) {
		return nil
	}
	return append([]string(nil), r.members[i]...)
}

// Stats returns node, edge and class counts.
func (r *Reduction) Stats() Stats {
	s := Stats{
		Nodes:      len(r.NodeClass),
		Edges:      r.edges,
		Classes:    len(r.Classes),
		Incidences: r.Matrix.Ones(),
	}
	for _, m := range r.members {
		if len(m) == 1 {
			s.Singletons++
		}
	}
	return s
}

// Index ranks class keys.
type Index struct {
	Keys []string       // rank -> key
	Rank map[string]int // key -> rank
}

// ResolveClassKey returns the class key of n. The node's own equivalence is
// used if present, otherwise def. A negative value makes the node its own
// singleton class keyed by its ID; a non-negative value is keyed by its
// canonical decimal form, so "01" and "1" share a class.
func ResolveClassKey(n graphml.Node, def string) (string, error) {
	raw, source := def, "default equivalence"
	if n.Equivalence != nil {
		raw, source = *n.Equivalence, "equivalence"
	}

	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFormat, err, "node %q: %s %q is not an integer", n.ID, source, raw).WithSubject(n.ID)
	}
	if v < 0 {
		return n.ID, nil
	}
	return strconv.FormatInt(v, 10), nil
}

// BuildIndex ranks the distinct keys in natural order. The ranking depends
// only on the set of keys, never on their order or multiplicity.
func BuildIndex(keys []string) Index {
	rank := make(map[string]int, len(keys))
	var distinct []string
	for _, k := range keys {
		if _, ok := rank[k]; !ok {
			rank[k] = 0
			distinct = append(distinct, k)
		}
	}
	natsort.Sort(distinct)
	for i, k := range distinct {
		rank[k] = i
	}
	return Index{Keys: distinct, Rank: rank}
}

// BuildIncidence fills a k×k matrix with one symmetric entry per edge.
// Every edge endpoint must be present in nodeToIndex.
func BuildIncidence(edges []graphml.Edge, nodeToIndex map[string]int, k int) (*matrix.Matrix, error) {
	m := matrix.New(k)
	for _, e := range edges {
		i, ok := nodeToIndex[e.Source]
		if !ok {
			return nil, errors.New(errors.ErrCodeReference, "edge %s: source %q is not a declared node", e.Label(), e.Source).WithSubject(e.Label())
		}
		j, ok := nodeToIndex[e.Target]
		if !ok {
			return nil, errors.New(errors.ErrCodeReference, "edge %s: target %q is not a declared node", e.Label(), e.Target).WithSubject(e.Label())
		}
		m.Connect(i, j)
	}
	return m, nil
}

// BuildPalette assigns each class the fill color of its members. Nodes are
// visited in order and later members overwrite earlier ones.
func BuildPalette(nodes []graphml.Node, nodeToIndex map[string]int) (palette.Palette, error) {
	p := make(palette.Palette)
	for _, n := range nodes {
		i, ok := nodeToIndex[n.ID]
		if !ok {
			return nil, errors.New(errors.ErrCodeReference, "node %q has no class", n.ID).WithSubject(n.ID)
		}
		c, err := palette.ParseColor(n.Fill)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFormat, err, "node %q: fill", n.ID).WithSubject(n.ID)
		}
		p[i] = c
	}
	return p, nil
}

// Reduce runs the full reduction on doc.
func Reduce(doc *graphml.Document) (*Reduction, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeLoad, "no document")
	}

	nodeKey := make(map[string]string, len(doc.Nodes))
	keys := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		k, err := ResolveClassKey(n, doc.DefaultEquivalence)
		if err != nil {
			return nil, err
		}
		nodeKey[n.ID] = k
		keys = append(keys, k)
	}

	idx := BuildIndex(keys)
	nodeToIndex := make(map[string]int, len(doc.Nodes))
	members := make([][]string, len(idx.Keys))
	for _, n := range doc.Nodes {
		i := idx.Rank[nodeKey[n.ID]]
		nodeToIndex[n.ID] = i
		members[i] = append(members[i], n.ID)
	}

	m, err := BuildIncidence(doc.Edges, nodeToIndex, len(idx.Keys))
	if err != nil {
		return nil, err
	}
	p, err := BuildPalette(doc.Nodes, nodeToIndex)
	if err != nil {
		return nil, err
	}

	return &Reduction{
		Classes:   idx.Keys,
		NodeClass: nodeToIndex,
		Matrix:    m,
		Palette:   p,
		members:   members,
		edges:     len(doc.Edges),
	}, nil
}
