// Package solution reads the grids an external solver writes and renders
// them as static images, one square per cell colored by class index.
//
// A solution stream is a whitespace-separated sequence of integers:
//
//	height width c(0,0) c(0,1) ... c(height-1,width-1)
//
// Solvers may append successive grids to the same stream; [ReadAll] returns
// all of them. Numbers use the palette-file syntax: 0x hex, 0 octal or decimal.
package solution

import (
	"io"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/palette"
)

// Grid is a height×width array of class indices, stored row-major.
type Grid struct {
	Height int
	Width  int
	Cells  []int
}

// At returns the class index at row i, column j.
func (g *Grid) At(i, j int) int { return g.Cells[i*g.Width+j] }

// Read returns the first grid in r.
func Read(r io.Reader) (*Grid, error) {
	grids, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(grids) == 0 {
		return nil, errors.New(errors.ErrCodeFormat, "solution: no grid")
	}
	return grids[0], nil
}

// ReadAll returns every grid in r, in stream order.
func ReadAll(r io.Reader) ([]*Grid, error) {
	nums, err := palette.ScanNumbers(r)
	if err != nil {
		return nil, err
	}

	var grids []*Grid
	for pos := 0; pos < len(nums); {
		if pos+2 > len(nums) {
			return nil, errors.New(errors.ErrCodeFormat, "solution grid %d: missing width", len(grids))
		}
		h, w := nums[pos], nums[pos+1]
		// Bounding each side by the stream length keeps h*w from overflowing.
		if h < 0 || w < 0 || h > int64(len(nums)) || w > int64(len(nums)) {
			return nil, errors.New(errors.ErrCodeFormat, "solution grid %d: invalid size %dx%d", len(grids), h, w)
		}
		pos += 2
		n := int(h * w)
		if pos+n > len(nums) {
			return nil, errors.New(errors.ErrCodeFormat, "solution grid %d: got %d of %d cells", len(grids), len(nums)-pos, n)
		}
		g := &Grid{Height: int(h), Width: int(w), Cells: make([]int, n)}
		for k := range n {
			g.Cells[k] = int(nums[pos+k])
		}
		grids = append(grids, g)
		pos += n
	}
	return grids, nil
}

// Validate checks that every cell has a color in p.
func (g *Grid) Validate(p palette.Palette) error {
	for k, c := range g.Cells {
		if _, ok := p.Lookup(c); !ok {
			return errors.New(errors.ErrCodeReference, "cell (%d,%d): class %d has no palette entry", k/g.Width, k%g.Width, c)
		}
	}
	return nil
}
