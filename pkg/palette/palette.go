// Package palette maps equivalence-class indices to display colors.
//
// # File Format
//
// A palette file has one line per class:
//
//	0 0xFFCC00
//	1 0x3366FF
//
// The index is decimal; the color is "0x" followed by six upper-case hex
// digits (RRGGBB). [Read] is more lenient and accepts any of the number
// syntaxes the solver tooling emits: 0x-prefixed hex, 0-prefixed octal,
// or decimal.
package palette

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

// Color is a 24-bit RGB color.
type Color uint32

// RGB builds a Color from its channels.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c) }

// String formats the color the way palette files store it: 0xRRGGBB.
func (c Color) String() string { return fmt.Sprintf("0x%06X", uint32(c)&0xFFFFFF) }

// Hex formats the color as a CSS/Graphviz hex color: #RRGGBB.
func (c Color) Hex() string { return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF) }

// ParseColor parses a fill color as found in graph documents ("#FFCC00") or
// palette files ("0xFFCC00"). Surrounding '#' characters and whitespace are
// ignored; exactly six hex digits must remain.
func ParseColor(s string) (Color, error) {
	v := strings.Trim(strings.TrimSpace(s), "#")
	if len(v) >= 2 && (v[:2] == "0x" || v[:2] == "0X") {
		v = v[2:]
	}
	if len(v) != 6 {
		return 0, errors.New(errors.ErrCodeFormat, "color %q: want 6 hex digits", s)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeFormat, err, "color %q", s)
	}
	return Color(n), nil
}

// Palette maps class index to color.
type Palette map[int]Color

// Indices returns the palette's indices in ascending order.
func (p Palette) Indices() []int {
	return slices.Sorted(maps.Keys(p))
}

// Lookup returns the color of index i.
func (p Palette) Lookup(i int) (Color, bool) {
	c, ok := p[i]
	return c, ok
}

// Write writes p in palette file format, ordered by index.
func Write(w io.Writer, p Palette) error {
	bw := bufio.NewWriter(w)
	for _, i := range p.Indices() {
		if _, err := fmt.Fprintf(bw, "%d %s\n", i, p[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read parses a palette file. Entries are read as (index, color) pairs from
// the whitespace-separated number stream; line breaks carry no meaning.
func Read(r io.Reader) (Palette, error) {
	nums, err := ScanNumbers(r)
	if err != nil {
		return nil, err
	}
	if len(nums)%2 != 0 {
		return nil, errors.New(errors.ErrCodeFormat, "palette: index %d has no color", nums[len(nums)-1])
	}
	p := make(Palette, len(nums)/2)
	for i := 0; i < len(nums); i += 2 {
		if nums[i] < 0 || nums[i+1] < 0 || nums[i+1] > 0xFFFFFF {
			return nil, errors.New(errors.ErrCodeFormat, "palette: invalid entry %d %d", nums[i], nums[i+1])
		}
		p[int(nums[i])] = Color(nums[i+1])
	}
	return p, nil
}

// ScanNumbers reads every whitespace-separated integer from r. A word
// starting with "0x" is hex, a word starting with "0" is octal, anything
// else is decimal.
func ScanNumbers(r io.Reader) ([]int64, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var out []int64
	for sc.Scan() {
		n, err := ParseNumber(sc.Text())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}

// ParseNumber parses one word using the solver tooling's number syntax.
func ParseNumber(word string) (int64, error) {
	var (
		n   int64
		err error
	)
	switch {
	case strings.HasPrefix(word, "0x"), strings.HasPrefix(word, "0X"):
		n, err = strconv.ParseInt(word[2:], 16, 64)
	case len(word) > 1 && word[0] == '0':
		n, err = strconv.ParseInt(word[1:], 8, 64)
	default:
		n, err = strconv.ParseInt(word, 10, 64)
	}
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeFormat, err, "number %q", word)
	}
	return n, nil
}
