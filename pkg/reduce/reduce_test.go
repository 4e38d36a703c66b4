package reduce

import (
	"bytes"
	"slices"
	"testing"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/graphml"
	"github.com/matzehuels/eqgraph/pkg/matrix"
	"github.com/matzehuels/eqgraph/pkg/palette"
)

func eq(v string) *string { return &v }

func node(id string, equivalence *string, fill string) graphml.Node {
	return graphml.Node{ID: id, Equivalence: equivalence, Fill: fill}
}

func edge(src, dst string) graphml.Edge {
	return graphml.Edge{Source: src, Target: dst}
}

func rows(t *testing.T, m *matrix.Matrix) [][]uint8 {
	t.Helper()
	return m.Rows()
}

func equalRows(a, b [][]uint8) bool {
	return slices.EqualFunc(a, b, func(x, y []uint8) bool { return slices.Equal(x, y) })
}

func TestResolveClassKey(t *testing.T) {
	tests := []struct {
		name string
		node graphml.Node
		def  string
		want string
	}{
		{"own tag", node("a", eq("3"), ""), "-1", "3"},
		{"default tag", node("a", nil, ""), "7", "7"},
		{"negative own tag", node("a", eq("-1"), ""), "5", "a"},
		{"negative default", node("n12", nil, ""), "-1", "n12"},
		{"zero is a real class", node("a", eq("0"), ""), "-1", "0"},
		{"leading zeros canonicalized", node("a", eq("007"), ""), "-1", "7"},
		{"whitespace ignored", node("a", eq(" 2 "), ""), "-1", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveClassKey(tt.node, tt.def)
			if err != nil {
				t.Fatalf("ResolveClassKey() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveClassKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveClassKeyFormatError(t *testing.T) {
	_, err := ResolveClassKey(node("bad", eq("one"), ""), "-1")
	if !errors.Is(err, errors.ErrCodeFormat) {
		t.Fatalf("error = %v, want FORMAT_ERROR", err)
	}
	if errors.GetSubject(err) != "bad" {
		t.Errorf("subject = %q, want bad", errors.GetSubject(err))
	}

	_, err = ResolveClassKey(node("x", nil, ""), "none")
	if !errors.Is(err, errors.ErrCodeFormat) {
		t.Errorf("bad default error = %v, want FORMAT_ERROR", err)
	}
}

func TestBuildIndex(t *testing.T) {
	idx := BuildIndex([]string{"n10", "C", "n2", "1", "n2", "C", "0"})

	want := []string{"0", "1", "C", "n2", "n10"}
	if !slices.Equal(idx.Keys, want) {
		t.Errorf("Keys = %v, want %v", idx.Keys, want)
	}
	for i, k := range want {
		if idx.Rank[k] != i {
			t.Errorf("Rank[%q] = %d, want %d", k, idx.Rank[k], i)
		}
	}

	// Order of input must not matter.
	again := BuildIndex([]string{"0", "n10", "1", "n2", "C"})
	if !slices.Equal(again.Keys, idx.Keys) {
		t.Errorf("permuted input gave %v, want %v", again.Keys, idx.Keys)
	}
}

func TestReduceTwoClasses(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes: []graphml.Node{
			node("A", eq("1"), "#FF0000"),
			node("B", eq("1"), "#00FF00"),
			node("C", eq("-1"), "#0000FF"),
		},
		Edges: []graphml.Edge{edge("A", "C")},
	}

	r, err := Reduce(doc)
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}

	if !slices.Equal(r.Classes, []string{"1", "C"}) {
		t.Errorf("Classes = %v, want [1 C]", r.Classes)
	}
	if got := rows(t, r.Matrix); !equalRows(got, [][]uint8{{0, 1}, {1, 0}}) {
		t.Errorf("Matrix = %v, want [[0 1] [1 0]]", got)
	}
	if r.NodeClass["A"] != 0 || r.NodeClass["B"] != 0 || r.NodeClass["C"] != 1 {
		t.Errorf("NodeClass = %v", r.NodeClass)
	}
	if !slices.Equal(r.Members(0), []string{"A", "B"}) {
		t.Errorf("Members(0) = %v, want [A B]", r.Members(0))
	}
	// Last member of class 0 wins.
	if r.Palette[0] != palette.RGB(0, 0xFF, 0) {
		t.Errorf("Palette[0] = %s, want 0x00FF00", r.Palette[0])
	}
	if r.Palette[1] != palette.RGB(0, 0, 0xFF) {
		t.Errorf("Palette[1] = %s, want 0x0000FF", r.Palette[1])
	}
}

func TestReduceAllSingletons(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes: []graphml.Node{
			node("n10", nil, "#000010"),
			node("n2", nil, "#000002"),
			node("n1", nil, "#000001"),
		},
		Edges: []graphml.Edge{edge("n10", "n1"), edge("n2", "n2")},
	}

	r, err := Reduce(doc)
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}

	if !slices.Equal(r.Classes, []string{"n1", "n2", "n10"}) {
		t.Fatalf("Classes = %v, want [n1 n2 n10]", r.Classes)
	}
	want := [][]uint8{
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
	}
	if got := rows(t, r.Matrix); !equalRows(got, want) {
		t.Errorf("Matrix = %v, want %v", got, want)
	}
	for i, id := range r.Classes {
		if r.Classes[r.NodeClass[id]] != id {
			t.Errorf("node %s is not its own class", id)
		}
		if members := r.Members(i); len(members) != 1 || members[0] != id {
			t.Errorf("Members(%d) = %v, want [%s]", i, members, id)
		}
	}
	if s := r.Stats(); s.Singletons != 3 || s.Classes != 3 || s.Edges != 2 || s.Incidences != 3 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestReduceNegativeTagSharesClassOnlyByKey(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes: []graphml.Node{
			node("5", eq("-1"), "#000000"),
			node("x", eq("5"), "#FFFFFF"),
			node("a", eq("-1"), "#000000"),
			node("b", eq("-1"), "#000000"),
		},
		Edges: []graphml.Edge{edge("a", "5")},
	}

	r, err := Reduce(doc)
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}

	// Node "5" resolves to its own ID, which is also x's tag.
	if !slices.Equal(r.Classes, []string{"5", "a", "b"}) {
		t.Fatalf("Classes = %v, want [5 a b]", r.Classes)
	}
	if r.NodeClass["5"] != r.NodeClass["x"] {
		t.Errorf("nodes 5 and x in classes %d and %d, want one class", r.NodeClass["5"], r.NodeClass["x"])
	}
	if !slices.Equal(r.Members(0), []string{"5", "x"}) {
		t.Errorf("Members(0) = %v, want [5 x]", r.Members(0))
	}
	if r.NodeClass["a"] == r.NodeClass["b"] {
		t.Error("a and b both have eq -1 but must stay separate singletons")
	}
	want := [][]uint8{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 0},
	}
	if got := rows(t, r.Matrix); !equalRows(got, want) {
		t.Errorf("Matrix = %v, want %v", got, want)
	}
}

func TestReduceCollapsesParallelEdges(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "0",
		Nodes: []graphml.Node{
			node("a", eq("1"), "#000000"),
			node("b", eq("1"), "#000000"),
			node("c", nil, "#000000"),
			node("d", nil, "#000000"),
		},
		Edges: []graphml.Edge{edge("a", "c"), edge("b", "d"), edge("d", "b"), edge("a", "b")},
	}

	r, err := Reduce(doc)
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	// class "0" = {c, d}, class "1" = {a, b}; a-b is a self loop on class 1.
	want := [][]uint8{{0, 1}, {1, 1}}
	if got := rows(t, r.Matrix); !equalRows(got, want) {
		t.Errorf("Matrix = %v, want %v", got, want)
	}
	if !r.Matrix.Symmetric() {
		t.Error("matrix is not symmetric")
	}
}

func TestReduceReferenceError(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes:              []graphml.Node{node("a", nil, "#000000")},
		Edges:              []graphml.Edge{{ID: "e7", Source: "a", Target: "ghost"}},
	}

	r, err := Reduce(doc)
	if r != nil {
		t.Error("Reduce() returned a partial result")
	}
	if !errors.Is(err, errors.ErrCodeReference) {
		t.Fatalf("error = %v, want REFERENCE_ERROR", err)
	}
	if errors.GetSubject(err) != "e7" {
		t.Errorf("subject = %q, want e7", errors.GetSubject(err))
	}
}

func TestReduceFormatErrors(t *testing.T) {
	badEq := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes:              []graphml.Node{node("a", eq("x"), "#000000")},
	}
	if _, err := Reduce(badEq); !errors.Is(err, errors.ErrCodeFormat) {
		t.Errorf("bad equivalence: error = %v, want FORMAT_ERROR", err)
	}

	badFill := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes:              []graphml.Node{node("a", nil, "red")},
	}
	if _, err := Reduce(badFill); !errors.Is(err, errors.ErrCodeFormat) {
		t.Errorf("bad fill: error = %v, want FORMAT_ERROR", err)
	}

	if _, err := Reduce(nil); !errors.Is(err, errors.ErrCodeLoad) {
		t.Errorf("nil document: error = %v, want LOAD_ERROR", err)
	}
}

func TestReduceDeterministic(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes: []graphml.Node{
			node("x3", eq("2"), "#101010"),
			node("x1", nil, "#202020"),
			node("x2", eq("2"), "#303030"),
			node("x10", eq("10"), "#404040"),
		},
		Edges: []graphml.Edge{edge("x1", "x2"), edge("x10", "x3")},
	}

	write := func() []byte {
		r, err := Reduce(doc)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := matrix.Write(&buf, r.Matrix); err != nil {
			t.Fatal(err)
		}
		if err := palette.Write(&buf, r.Palette); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	first := write()
	for range 5 {
		if !bytes.Equal(first, write()) {
			t.Fatal("repeated reductions produced different output")
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	doc := &graphml.Document{
		DefaultEquivalence: "-1",
		Nodes: []graphml.Node{
			node("A", eq("1"), "#FF0000"),
			node("B", eq("1"), "#00FF00"),
			node("C", nil, "#0000FF"),
		},
		Edges: []graphml.Edge{edge("A", "C")},
	}
	r, err := Reduce(doc)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if !slices.Equal(got.Classes, r.Classes) {
		t.Errorf("Classes = %v, want %v", got.Classes, r.Classes)
	}
	if !got.Matrix.Equal(r.Matrix) {
		t.Errorf("Matrix = %v, want %v", got.Matrix.Rows(), r.Matrix.Rows())
	}
	if got.Palette[0] != r.Palette[0] || got.Palette[1] != r.Palette[1] {
		t.Errorf("Palette = %v, want %v", got.Palette, r.Palette)
	}
	if got.Stats() != r.Stats() {
		t.Errorf("Stats() = %+v, want %+v", got.Stats(), r.Stats())
	}
	if got.ClassLabel(1) != "1: C" {
		t.Errorf("ClassLabel(1) = %q", got.ClassLabel(1))
	}
}

func TestFromWireRejectsMismatch(t *testing.T) {
	_, err := FromWire(Wire{
		Classes: []WireClass{{Index: 0, Key: "a", Color: "0x000000"}},
		Matrix:  [][]int{{0, 1}, {1, 0}},
	})
	if !errors.Is(err, errors.ErrCodeFormat) {
		t.Errorf("error = %v, want FORMAT_ERROR", err)
	}
}
