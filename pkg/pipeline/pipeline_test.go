package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/eqgraph/pkg/cache"
	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/observability"
)

const twoClasses = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="d0" for="node" attr.name="Equivalence" attr.type="int"><default>-1</default></key>
  <key id="d1" for="node" attr.name="color" attr.type="string"/>
  <graph id="G" edgedefault="undirected">
    <node id="A"><data key="d0">1</data><data key="d1">#FF0000</data></node>
    <node id="B"><data key="d0">1</data><data key="d1">#FF0000</data></node>
    <node id="C"><data key="d1">#0000FF</data></node>
    <edge id="e0" source="A" target="C"/>
  </graph>
</graphml>`

const danglingEdge = `<graphml>
  <key id="d0" for="node" attr.name="Equivalence"><default>-1</default></key>
  <key id="d1" for="node" attr.name="color"/>
  <graph>
    <node id="A"><data key="d1">#FF0000</data></node>
    <edge id="e0" source="A" target="Z"/>
  </graph>
</graphml>`

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.graphml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultOutputPaths(t *testing.T) {
	m, p := DefaultOutputPaths(filepath.Join("dir", "net.graphml"))
	if m != filepath.Join("dir", "net.matrix") || p != filepath.Join("dir", "net.palette") {
		t.Errorf("DefaultOutputPaths() = %s, %s", m, p)
	}
	m, _ = DefaultOutputPaths("plain")
	if m != "plain.matrix" {
		t.Errorf("DefaultOutputPaths(no ext) = %s", m)
	}
}

func TestOptionsValidate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty options error = %v, want INVALID_INPUT", err)
	}

	opts = Options{Input: "x.graphml"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", opts.TTL, DefaultTTL)
	}

	opts = Options{Data: []byte{}, TTL: -1}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.TTL != 0 {
		t.Errorf("negative TTL = %v, want 0 (no expiry)", opts.TTL)
	}
}

func TestRunnerReduceAndWrite(t *testing.T) {
	input := writeInput(t, twoClasses)
	r := NewRunner(nil, quietLogger())

	res, err := r.Reduce(context.Background(), Options{Input: input})
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if !slices.Equal(res.Reduction.Classes, []string{"1", "C"}) {
		t.Errorf("Classes = %v", res.Reduction.Classes)
	}

	mpath, ppath := DefaultOutputPaths(input)
	if err := Write(res, mpath, ppath); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	m, _ := os.ReadFile(mpath)
	if string(m) != "2\n0 1\n1 0\n" {
		t.Errorf("matrix file = %q", m)
	}
	p, _ := os.ReadFile(ppath)
	if string(p) != "0 0xFF0000\n1 0x0000FF\n" {
		t.Errorf("palette file = %q", p)
	}
}

func TestRunnerByteIdenticalReruns(t *testing.T) {
	input := writeInput(t, twoClasses)
	dir := t.TempDir()
	r := NewRunner(nil, quietLogger())

	var outputs [][]byte
	for i := range 2 {
		res, err := r.Reduce(context.Background(), Options{Input: input})
		if err != nil {
			t.Fatal(err)
		}
		m := filepath.Join(dir, "run.matrix")
		p := filepath.Join(dir, "run.palette")
		if err := Write(res, m, p); err != nil {
			t.Fatalf("run %d: Write() error: %v", i, err)
		}
		mb, _ := os.ReadFile(m)
		pb, _ := os.ReadFile(p)
		outputs = append(outputs, append(mb, pb...))
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("reruns produced different files")
	}
}

func TestRunnerCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, quietLogger())
	data := []byte(twoClasses)

	first, err := r.Reduce(ctx, Options{Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first run should not be cached")
	}

	second, err := r.Reduce(ctx, Options{Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second run should hit the cache")
	}
	if second.RunID == first.RunID {
		t.Error("runs should get distinct IDs")
	}
	if !second.Reduction.Matrix.Equal(first.Reduction.Matrix) {
		t.Error("cached matrix differs from computed matrix")
	}
	if second.Reduction.Palette[1] != first.Reduction.Palette[1] {
		t.Error("cached palette differs from computed palette")
	}

	refreshed, err := r.Reduce(ctx, Options{Data: data, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.Cached {
		t.Error("Refresh should bypass the cache")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnLoadComplete(_ context.Context, _ string, _, _ int, _ time.Duration, err error) {
	if err != nil {
		h.add("load-error")
		return
	}
	h.add("load")
}

func (h *recordingHooks) OnReduceComplete(_ context.Context, _ int, _ time.Duration, err error) {
	if err != nil {
		h.add("reduce-error")
		return
	}
	h.add("reduce")
}

func (h *recordingHooks) OnCacheHit(context.Context, string)      { h.add("hit") }
func (h *recordingHooks) OnCacheMiss(context.Context, string)     { h.add("miss") }
func (h *recordingHooks) OnCacheSet(context.Context, string, int) { h.add("set") }

func TestRunnerEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, quietLogger())

	for range 2 {
		if _, err := r.Reduce(ctx, Options{Data: []byte(twoClasses)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Reduce(ctx, Options{Data: []byte(danglingEdge)}); err == nil {
		t.Fatal("expected reference error")
	}

	want := []string{"miss", "load", "reduce", "set", "hit", "miss", "load", "reduce-error"}
	if !slices.Equal(hooks.events, want) {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}

func TestRunnerCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(twoClasses)
	if err := c.Set(ctx, cache.ReductionKey(cache.Hash(data)), []byte("{broken"), 0); err != nil {
		t.Fatal(err)
	}

	res, err := NewRunner(c, quietLogger()).Reduce(ctx, Options{Data: data})
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	if res.Cached {
		t.Error("corrupt entry should be a miss")
	}
}

func TestRunnerReferenceErrorLeavesNoFiles(t *testing.T) {
	input := writeInput(t, danglingEdge)
	r := NewRunner(nil, quietLogger())

	_, err := r.Reduce(context.Background(), Options{Input: input})
	if !errors.Is(err, errors.ErrCodeReference) {
		t.Fatalf("error = %v, want REFERENCE_ERROR", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(input))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the input", len(entries))
	}
}

func TestRunnerMissingInput(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	_, err := r.Reduce(context.Background(), Options{Input: filepath.Join(t.TempDir(), "nope.graphml")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestWriteFailureLeavesNoFiles(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.Reduce(context.Background(), Options{Data: []byte(twoClasses)})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	m := filepath.Join(dir, "out.matrix")
	p := filepath.Join(dir, "missing", "out.palette")
	if err := Write(res, m, p); err == nil {
		t.Fatal("Write() into a missing directory should fail")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory has %d entries after failed Write, want 0", len(entries))
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	if err := WriteFile(path, []byte("<svg/>")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "<svg/>" {
		t.Errorf("WriteFile() wrote %q", got)
	}
}
