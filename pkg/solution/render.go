package solution

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/matzehuels/eqgraph/pkg/palette"
)

// DefaultCellSize is the side of one cell in pixels.
const DefaultCellSize = 10

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	cell    int
	outline bool
}

// WithCellSize sets the side of one cell in pixels. Values below 1 are ignored.
func WithCellSize(px int) Option {
	return func(r *renderer) {
		if px > 0 {
			r.cell = px
		}
	}
}

// WithOutline draws a thin border around every cell (SVG only).
func WithOutline() Option { return func(r *renderer) { r.outline = true } }

func newRenderer(opts []Option) renderer {
	r := renderer{cell: DefaultCellSize}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws g as an SVG document. Every cell must have a palette entry.
func RenderSVG(g *Grid, p palette.Palette, opts ...Option) ([]byte, error) {
	if err := g.Validate(p); err != nil {
		return nil, err
	}
	r := newRenderer(opts)
	w, h := g.Width*r.cell, g.Height*r.cell

	stroke := ""
	if r.outline {
		stroke = ` stroke="#000000" stroke-width="0.5"`
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", w, h, w, h)
	for i := 0; i < g.Height; i++ {
		for j := 0; j < g.Width; j++ {
			c, _ := p.Lookup(g.At(i, j))
			fmt.Fprintf(&buf, `  <rect x="%d" y="%d" width="%d" height="%d" fill="%s"%s/>`+"\n",
				j*r.cell, i*r.cell, r.cell, r.cell, c.Hex(), stroke)
		}
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

// RenderPNG draws g as a PNG image. Every cell must have a palette entry.
func RenderPNG(g *Grid, p palette.Palette, opts ...Option) ([]byte, error) {
	if err := g.Validate(p); err != nil {
		return nil, err
	}
	r := newRenderer(opts)

	img := image.NewRGBA(image.Rect(0, 0, g.Width*r.cell, g.Height*r.cell))
	for y := 0; y < g.Height*r.cell; y++ {
		for x := 0; x < g.Width*r.cell; x++ {
			c, _ := p.Lookup(g.At(y/r.cell, x/r.cell))
			img.SetRGBA(x, y, color.RGBA{R: c.R(), G: c.G(), B: c.B(), A: 0xFF})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
