package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

const sampleGraph = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns" xmlns:y="http://www.yworks.com/xml/graphml">
  <key id="d0" for="node" attr.name="Equivalence" attr.type="int"><default>-1</default></key>
  <key id="d6" for="node" yfiles.type="nodegraphics"/>
  <graph id="G" edgedefault="undirected">
    <node id="n0">
      <data key="d0">1</data>
      <data key="d6"><y:ShapeNode><y:Fill color="#FFCC00" transparent="false"/></y:ShapeNode></data>
    </node>
    <node id="n1">
      <data key="d0">1</data>
      <data key="d6"><y:ShapeNode><y:Fill color="#FFCC00" transparent="false"/></y:ShapeNode></data>
    </node>
    <node id="n2">
      <data key="d6"><y:ShapeNode><y:Fill color="#3366FF" transparent="false"/></y:ShapeNode></data>
    </node>
    <edge id="e0" source="n0" target="n2"/>
  </graph>
</graphml>`

// isolate points config and cache lookups at fresh temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestReduceCommand(t *testing.T) {
	dir := isolate(t)
	input := writeFile(t, filepath.Join(dir, "tiles.graphml"), sampleGraph)

	if err := execute(t, "reduce", input); err != nil {
		t.Fatalf("reduce error: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "tiles.matrix")); got != "2\n0 1\n1 0\n" {
		t.Errorf("matrix = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "tiles.palette")); got != "0 0xFFCC00\n1 0x3366FF\n" {
		t.Errorf("palette = %q", got)
	}
}

func TestReduceCommandOutputFlags(t *testing.T) {
	dir := isolate(t)
	input := writeFile(t, filepath.Join(dir, "tiles.graphml"), sampleGraph)
	m := filepath.Join(dir, "out.m")
	p := filepath.Join(dir, "out.p")

	if err := execute(t, "reduce", input, "-m", m, "-p", p, "--no-cache", "--classes"); err != nil {
		t.Fatalf("reduce error: %v", err)
	}
	if _, err := os.Stat(m); err != nil {
		t.Errorf("matrix not written to -m path: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("palette not written to -p path: %v", err)
	}
}

func TestReduceCommandCachesResult(t *testing.T) {
	dir := isolate(t)
	input := writeFile(t, filepath.Join(dir, "tiles.graphml"), sampleGraph)

	for range 2 {
		if err := execute(t, "reduce", input); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(dir, "cache", appName))
	if err != nil {
		t.Fatalf("cache dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("cache has %d shards, want 1", len(entries))
	}

	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	entries, _ = os.ReadDir(filepath.Join(dir, "cache", appName))
	if len(entries) != 0 {
		t.Errorf("cache has %d shards after clear, want 0", len(entries))
	}
}

func TestReduceCommandReferenceError(t *testing.T) {
	dir := isolate(t)
	bad := strings.Replace(sampleGraph, `target="n2"`, `target="n9"`, 1)
	input := writeFile(t, filepath.Join(dir, "bad.graphml"), bad)

	err := execute(t, "reduce", input)
	if !errors.Is(err, errors.ErrCodeReference) {
		t.Fatalf("error = %v, want REFERENCE_ERROR", err)
	}
	for _, name := range []string{"bad.matrix", "bad.palette"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s exists after failed reduce", name)
		}
	}
}

func TestRenderCommandDOT(t *testing.T) {
	dir := isolate(t)
	input := writeFile(t, filepath.Join(dir, "tiles.graphml"), sampleGraph)
	out := filepath.Join(dir, "tiles.dot")

	if err := execute(t, "render", input, "-o", out, "--members"); err != nil {
		t.Fatalf("render error: %v", err)
	}
	got := readFile(t, out)
	if !strings.Contains(got, "c0 -- c1;") || !strings.Contains(got, "n0, n1") {
		t.Errorf("dot output:\n%s", got)
	}

	if err := execute(t, "render", input, "-o", filepath.Join(dir, "x.pdf")); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("render to .pdf error = %v, want UNSUPPORTED", err)
	}
}

func TestVisualizeCommand(t *testing.T) {
	dir := isolate(t)
	sol := writeFile(t, filepath.Join(dir, "run.sol"), "1 2\n0 1\n2 1\n1 1\n")
	pal := writeFile(t, filepath.Join(dir, "run.palette"), "0 0xFFCC00\n1 0x3366FF\n")

	if err := execute(t, "visualize", sol, pal, "--cell", "5"); err != nil {
		t.Fatalf("visualize error: %v", err)
	}
	svg := readFile(t, filepath.Join(dir, "run.svg"))
	// Default index -1 renders the last (2x1) grid.
	if !strings.Contains(svg, `viewBox="0 0 5 10"`) {
		t.Errorf("svg header wrong:\n%s", svg)
	}

	png := filepath.Join(dir, "first.png")
	if err := execute(t, "visualize", sol, pal, "--index", "0", "-o", png); err != nil {
		t.Fatalf("visualize png error: %v", err)
	}
	if data := readFile(t, png); !strings.HasPrefix(data, "\x89PNG") {
		t.Error("output is not a PNG")
	}

	if err := execute(t, "visualize", sol, pal, "-o", filepath.Join(dir, "run.gif")); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("gif output error = %v, want UNSUPPORTED", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run.gif")); !os.IsNotExist(err) {
		t.Error("unsupported format should not write a file")
	}

	if err := execute(t, "visualize", sol, pal, "--index", "5"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("out-of-range index error = %v, want INVALID_INPUT", err)
	}
}

func TestVisualizeMissingColor(t *testing.T) {
	dir := isolate(t)
	sol := writeFile(t, filepath.Join(dir, "run.sol"), "1 1 7")
	pal := writeFile(t, filepath.Join(dir, "run.palette"), "0 0xFFCC00\n")

	if err := execute(t, "visualize", sol, pal); !errors.Is(err, errors.ErrCodeReference) {
		t.Errorf("error = %v, want REFERENCE_ERROR", err)
	}
}

func TestPaletteHeatmapCommand(t *testing.T) {
	dir := isolate(t)
	out := filepath.Join(dir, "heat.palette")

	if err := execute(t, "palette", "heatmap", "-n", "5", "-o", out); err != nil {
		t.Fatalf("palette heatmap error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d palette lines, want 5", len(lines))
	}
	if lines[0] != "0 0x000000" {
		t.Errorf("first color = %q, want black", lines[0])
	}

	if err := execute(t, "palette", "show", out); err != nil {
		t.Errorf("palette show error: %v", err)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, filepath.Join(dir, "eq.toml"), "[cache]\nbackend = \"none\"\n")
	input := writeFile(t, filepath.Join(dir, "tiles.graphml"), sampleGraph)

	if err := execute(t, "--config", cfg, "reduce", input); err != nil {
		t.Fatalf("reduce error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", appName)); !os.IsNotExist(err) {
		t.Error("backend none should not create a cache directory")
	}

	bad := writeFile(t, filepath.Join(dir, "bad.toml"), "[cache]\nbackend = \"tape\"\n")
	if err := execute(t, "--config", bad, "cache", "path"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad config error = %v, want INVALID_INPUT", err)
	}
}

func TestPortOf(t *testing.T) {
	tests := map[string]string{":8080": ":8080", "0.0.0.0:9000": ":9000", "localhost": ""}
	for in, want := range tests {
		if got := portOf(in); got != want {
			t.Errorf("portOf(%q) = %q, want %q", in, got, want)
		}
	}
}
