package reduce

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/matrix"
	"github.com/matzehuels/eqgraph/pkg/palette"
)

// Wire is the JSON form of a Reduction, used for caching and the HTTP API.
type Wire struct {
	Classes []WireClass `json:"classes"`
	Matrix  [][]int     `json:"matrix"`
	Edges   int         `json:"edges"`
}

// WireClass is one equivalence class.
type WireClass struct {
	Index   int      `json:"index"`
	Key     string   `json:"key"`
	Color   string   `json:"color"`
	Members []string `json:"members"`
}

// ToWire converts r to its JSON form.
func (r *Reduction) ToWire() Wire {
	w := Wire{
		Classes: make([]WireClass, len(r.Classes)),
		Matrix:  make([][]int, r.Matrix.Size()),
		Edges:   r.edges,
	}
	for i, row := range r.Matrix.Rows() {
		w.Matrix[i] = make([]int, len(row))
		for j, v := range row {
			w.Matrix[i][j] = int(v)
		}
	}
	for i, k := range r.Classes {
		w.Classes[i] = WireClass{
			Index:   i,
			Key:     k,
			Color:   r.Palette[i].String(),
			Members: r.Members(i),
		}
	}
	return w
}

// FromWire rebuilds a Reduction from its JSON form.
func FromWire(w Wire) (*Reduction, error) {
	// []uint8 would marshal as base64, so the wire form carries ints.
	rows := make([][]uint8, len(w.Matrix))
	for i, row := range w.Matrix {
		rows[i] = make([]uint8, len(row))
		for j, v := range row {
			if v != 0 && v != 1 {
				return nil, errors.New(errors.ErrCodeFormat, "cell (%d,%d) = %d, want 0 or 1", i, j, v)
			}
			rows[i][j] = uint8(v)
		}
	}
	m, err := matrix.FromRows(rows)
	if err != nil {
		return nil, err
	}
	if m.Size() != len(w.Classes) {
		return nil, errors.New(errors.ErrCodeFormat, "matrix size %d does not match %d classes", m.Size(), len(w.Classes))
	}

	r := &Reduction{
		Classes:   make([]string, len(w.Classes)),
		NodeClass: make(map[string]int),
		Matrix:    m,
		Palette:   make(palette.Palette, len(w.Classes)),
		members:   make([][]string, len(w.Classes)),
		edges:     w.Edges,
	}
	for i, c := range w.Classes {
		if c.Index != i {
			return nil, errors.New(errors.ErrCodeFormat, "class %q has index %d, want %d", c.Key, c.Index, i)
		}
		color, err := palette.ParseColor(c.Color)
		if err != nil {
			return nil, err
		}
		r.Classes[i] = c.Key
		r.Palette[i] = color
		r.members[i] = append([]string(nil), c.Members...)
		for _, id := range c.Members {
			r.NodeClass[id] = i
		}
	}
	return r, nil
}

// Encode writes r as JSON.
func Encode(w io.Writer, r *Reduction) error {
	if err := json.NewEncoder(w).Encode(r.ToWire()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Decode reads a JSON reduction written by Encode.
func Decode(rd io.Reader) (*Reduction, error) {
	var w Wire
	if err := json.NewDecoder(rd).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromWire(w)
}

// ClassLabel formats class i as "<index>: <key>".
func (r *Reduction) ClassLabel(i int) string {
	return strconv.Itoa(i) + ": " + r.Classes[i]
}
