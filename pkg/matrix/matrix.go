// Package matrix provides the symmetric 0/1 incidence matrix produced by an
// equivalence-class reduction, and its plain-text file format.
//
// # File Format
//
// The first line holds the class count K, followed by K rows of K
// space-separated 0/1 cells:
//
//	2
//	0 1
//	1 0
package matrix

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

// Matrix is a square 0/1 matrix. The zero value is an empty 0×0 matrix.
// Connect keeps it symmetric; Set does not.
type Matrix struct {
	n     int
	cells []uint8
}

// New returns a zero-filled n×n matrix.
func New(n int) *Matrix {
	if n < 0 {
		n = 0
	}
	return &Matrix{n: n, cells: make([]uint8, n*n)}
}

// Size returns the row (and column) count.
func (m *Matrix) Size() int { return m.n }

// At returns cell (i, j). It panics if either index is out of range.
func (m *Matrix) At(i, j int) uint8 {
	m.check(i, j)
	return m.cells[i*m.n+j]
}

// Set writes cell (i, j) only.
func (m *Matrix) Set(i, j int, v uint8) {
	m.check(i, j)
	if v != 0 {
		v = 1
	}
	m.cells[i*m.n+j] = v
}

// Connect sets both (i, j) and (j, i) to 1. Calling it again for the same
// pair has no further effect.
func (m *Matrix) Connect(i, j int) {
	m.Set(i, j, 1)
	m.Set(j, i, 1)
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []uint8 {
	m.check(i, 0)
	out := make([]uint8, m.n)
	copy(out, m.cells[i*m.n:(i+1)*m.n])
	return out
}

// Rows returns the matrix as a slice of row copies.
func (m *Matrix) Rows() [][]uint8 {
	out := make([][]uint8, m.n)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Symmetric reports whether At(i, j) == At(j, i) for every cell.
func (m *Matrix) Symmetric() bool {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if m.cells[i*m.n+j] != m.cells[j*m.n+i] {
				return false
			}
		}
	}
	return true
}

// Ones returns the number of set cells.
func (m *Matrix) Ones() int {
	count := 0
	for _, c := range m.cells {
		count += int(c)
	}
	return count
}

// Equal reports whether m and o have the same size and cells.
func (m *Matrix) Equal(o *Matrix) bool {
	return m.n == o.n && bytes.Equal(m.cells, o.cells)
}

// FromRows builds a matrix from row slices. Every row must have len(rows)
// cells and every cell must be 0 or 1.
func FromRows(rows [][]uint8) (*Matrix, error) {
	m := New(len(rows))
	for i, row := range rows {
		if len(row) != m.n {
			return nil, errors.New(errors.ErrCodeFormat, "row %d has %d cells, want %d", i, len(row), m.n)
		}
		for j, v := range row {
			if v > 1 {
				return nil, errors.New(errors.ErrCodeFormat, "cell (%d,%d) = %d, want 0 or 1", i, j, v)
			}
			m.cells[i*m.n+j] = v
		}
	}
	return m, nil
}

func (m *Matrix) check(i, j int) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range for size %d", i, j, m.n))
	}
}

// Write writes m in matrix file format.
func Write(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", m.n)
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteByte('0' + m.cells[i*m.n+j])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Read parses a matrix file. Whitespace layout is not significant beyond
// separating the count and the K*K cells.
func Read(r io.Reader) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		return nil, errors.New(errors.ErrCodeFormat, "matrix: missing size")
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil || n < 0 {
		return nil, errors.New(errors.ErrCodeFormat, "matrix: invalid size %q", sc.Text())
	}

	m := New(n)
	for k := 0; k < n*n; k++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("scan: %w", err)
			}
			return nil, errors.New(errors.ErrCodeFormat, "matrix: got %d of %d cells", k, n*n)
		}
		switch sc.Text() {
		case "0":
		case "1":
			m.cells[k] = 1
		default:
			return nil, errors.New(errors.ErrCodeFormat, "matrix: cell (%d,%d) = %q, want 0 or 1", k/n, k%n, sc.Text())
		}
	}
	if sc.Scan() {
		return nil, errors.New(errors.ErrCodeFormat, "matrix: trailing data %q", sc.Text())
	}
	return m, nil
}
