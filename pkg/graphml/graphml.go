package graphml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

// EquivalenceAttr is the attr.name of the key declaring node equivalence.
const EquivalenceAttr = "Equivalence"

// Document is a loaded graph: nodes and edges in document order plus the
// default equivalence declared on the equivalence key.
type Document struct {
	Nodes []Node
	Edges []Edge

	// EquivalenceKey is the id of the <key> declaring node equivalence.
	EquivalenceKey string
	// DefaultEquivalence is the text of that key's <default>. It is looked
	// up once at load time and is not validated as an integer here.
	DefaultEquivalence string
}

// Node is a graph vertex.
type Node struct {
	ID string
	// Equivalence is the node's own equivalence datum, nil when absent.
	Equivalence *string
	// Fill is the node's fill color as written in the document (e.g. "#FFCC00").
	Fill string
}

// Edge connects two node IDs. Direction is irrelevant to the reduction.
type Edge struct {
	ID     string // optional
	Source string
	Target string
}

// Label names the edge for error messages: its id, or "source--target".
func (e Edge) Label() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "--" + e.Target
}

// Load reads and parses the GraphML file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph file %s", path).WithSubject(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a GraphML document from r. See the package documentation for
// the elements it requires.
func Read(r io.Reader) (*Document, error) {
	var root xmlGraphML
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoad, err, "decode graphml")
	}
	if len(root.Graphs) == 0 {
		return nil, errors.New(errors.ErrCodeLoad, "document has no <graph> element")
	}

	eqKey, ok := findEquivalenceKey(root.Keys)
	if !ok {
		return nil, errors.New(errors.ErrCodeLoad, "no node key with attr.name %q declared", EquivalenceAttr)
	}
	if eqKey.Default == nil || strings.TrimSpace(*eqKey.Default) == "" {
		return nil, errors.New(errors.ErrCodeLoad, "key %q has no <default> value", eqKey.ID).WithSubject(eqKey.ID)
	}

	doc := &Document{
		EquivalenceKey:     eqKey.ID,
		DefaultEquivalence: strings.TrimSpace(*eqKey.Default),
	}
	colorKeys := findColorKeys(root.Keys)

	var walk func(g *xmlGraph) error
	seen := make(map[string]bool)
	walk = func(g *xmlGraph) error {
		for _, xn := range g.Nodes {
			n, err := convertNode(xn, eqKey.ID, colorKeys)
			if err != nil {
				return err
			}
			if seen[n.ID] {
				return errors.New(errors.ErrCodeLoad, "duplicate node id %q", n.ID).WithSubject(n.ID)
			}
			seen[n.ID] = true
			doc.Nodes = append(doc.Nodes, n)
			if xn.Graph != nil {
				if err := walk(xn.Graph); err != nil {
					return err
				}
			}
		}
		for i, xe := range g.Edges {
			if xe.Source == "" || xe.Target == "" {
				label := xe.ID
				if label == "" {
					label = fmt.Sprintf("#%d", i)
				}
				return errors.New(errors.ErrCodeLoad, "edge %s: missing source or target", label).WithSubject(label)
			}
			doc.Edges = append(doc.Edges, Edge{ID: xe.ID, Source: xe.Source, Target: xe.Target})
		}
		return nil
	}
	if err := walk(&root.Graphs[0]); err != nil {
		return nil, err
	}
	return doc, nil
}

func findEquivalenceKey(keys []xmlKey) (xmlKey, bool) {
	for _, k := range keys {
		if k.AttrName != EquivalenceAttr || k.ID == "" {
			continue
		}
		if k.For != "node" && k.For != "all" {
			continue
		}
		return k, true
	}
	return xmlKey{}, false
}

func findColorKeys(keys []xmlKey) map[string]bool {
	out := make(map[string]bool)
	for _, k := range keys {
		if k.ID == "" || (k.For != "node" && k.For != "all") {
			continue
		}
		switch strings.ToLower(k.AttrName) {
		case "color", "fill":
			out[k.ID] = true
		}
	}
	return out
}

func convertNode(xn xmlNode, eqKeyID string, colorKeys map[string]bool) (Node, error) {
	if xn.ID == "" {
		return Node{}, errors.New(errors.ErrCodeLoad, "node without id")
	}
	n := Node{ID: xn.ID}

	for _, d := range xn.Data {
		if d.Key == eqKeyID {
			v := strings.TrimSpace(d.Text)
			n.Equivalence = &v
			break
		}
	}

	if fill, ok := findFill(xn.Data); ok {
		n.Fill = fill
	} else {
		for _, d := range xn.Data {
			if colorKeys[d.Key] && strings.TrimSpace(d.Text) != "" {
				n.Fill = strings.TrimSpace(d.Text)
				break
			}
		}
	}
	if n.Fill == "" {
		return Node{}, errors.New(errors.ErrCodeLoad, "node %q has no fill color", n.ID).WithSubject(n.ID)
	}
	return n, nil
}

// findFill returns the color attribute of the first Fill element nested in
// the node's data, in document order.
func findFill(data []xmlData) (string, bool) {
	var search func(elems []xmlElem) (string, bool)
	search = func(elems []xmlElem) (string, bool) {
		for _, e := range elems {
			if e.XMLName.Local == "Fill" {
				for _, a := range e.Attrs {
					if a.Name.Local == "color" && a.Value != "" {
						return a.Value, true
					}
				}
			}
			if c, ok := search(e.Elems); ok {
				return c, true
			}
		}
		return "", false
	}
	for _, d := range data {
		if c, ok := search(d.Elems); ok {
			return c, true
		}
	}
	return "", false
}

type xmlGraphML struct {
	XMLName xml.Name   `xml:"graphml"`
	Keys    []xmlKey   `xml:"key"`
	Graphs  []xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID       string  `xml:"id,attr"`
	For      string  `xml:"for,attr"`
	AttrName string  `xml:"attr.name,attr"`
	Default  *string `xml:"default"`
}

type xmlGraph struct {
	ID    string    `xml:"id,attr"`
	Nodes []xmlNode `xml:"node"`
	Edges []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID    string    `xml:"id,attr"`
	Data  []xmlData `xml:"data"`
	Graph *xmlGraph `xml:"graph"`
}

type xmlEdge struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type xmlData struct {
	Key   string    `xml:"key,attr"`
	Text  string    `xml:",chardata"`
	Elems []xmlElem `xml:",any"`
}

type xmlElem struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Elems   []xmlElem  `xml:",any"`
}
