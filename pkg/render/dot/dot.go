// Package dot exports a reduction's class quotient graph as Graphviz DOT
// and renders it to SVG.
//
// Each equivalence class becomes one node labelled "<index>: <key>" and
// filled with the class color. Each 1 in the upper triangle of the incidence
// matrix becomes one undirected edge; diagonal entries become self loops.
//
//	r, _ := reduce.Reduce(doc)
//	src := dot.ToDOT(r, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/eqgraph/pkg/reduce"
)

// Options configures DOT export.
type Options struct {
	// Members appends the member node IDs to each class label.
	Members bool
	// Layout selects the Graphviz engine; empty means "neato".
	Layout string
}

// ToDOT converts a reduction to an undirected Graphviz graph.
func ToDOT(r *reduce.Reduction, opts Options) string {
	layout := opts.Layout
	if layout == "" {
		layout = "neato"
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	fmt.Fprintf(&buf, "  layout=%s;\n", layout)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=14];\n")
	buf.WriteString("\n")

	for i := range r.Size() {
		attrs := []string{"label=" + quote(fmtLabel(r, i, opts.Members))}
		if c, ok := r.Palette.Lookup(i); ok {
			attrs = append(attrs, "fillcolor="+quote(c.Hex()), "fontcolor="+quote(contrast(c.R(), c.G(), c.B())))
		}
		fmt.Fprintf(&buf, "  c%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i := range r.Size() {
		for j := i; j < r.Size(); j++ {
			if r.Matrix.At(i, j) == 1 {
				fmt.Fprintf(&buf, "  c%d -- c%d;\n", i, j)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// quote returns s as a DOT string literal. Only backslash, double quote and
// newline are escaped; other runes, including non-ASCII, pass through.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

func fmtLabel(r *reduce.Reduction, i int, members bool) string {
	label := r.ClassLabel(i)
	if !members {
		return label
	}
	return label + "\n" + strings.Join(r.Members(i), ", ")
}

// contrast picks black or white text for a fill, by perceived luminance.
func contrast(r, g, b uint8) string {
	if 299*int(r)+587*int(g)+114*int(b) > 128*1000 {
		return "#000000"
	}
	return "#FFFFFF"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-based svg header with a plain
// pixel one so the output scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
