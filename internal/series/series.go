// Package series reads time-resolved single-particle MS signal files.
//
// Input files are plain text, tab separated. The first line is a header
// of the form
//
//	<label>\t<mass1>\t<mass2>\t...\t<massN>
//
// where each mass is a positive integer channel identifier. Subsequent
// lines hold a row counter (or label) followed by one intensity value
// per channel. Row order is acquisition order and is never reordered.
package series

import (
	"errors"
	"fmt"
)

// ErrBadNumber is returned when a value does not match the accepted
// numeric grammar (optional sign, digits, optional decimal point and
// fraction, optional exponent).
var ErrBadNumber = errors.New("value does not match numeric grammar")

// ChannelNotFoundError reports a requested mass channel that is absent
// from a file's header.
type ChannelNotFoundError struct {
	Path      string
	Mass      int
	Available []int
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("mass %d not in available masses %v in file %s",
		e.Mass, e.Available, e.Path)
}

// FileReadError wraps an I/O or parse failure with the file position
// where it occurred. Line is 1-based; 0 means the position is unknown.
type FileReadError struct {
	Path string
	Line int
	Err  error
}

func (e *FileReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// Index maps mass channel identifiers to their column offset within the
// raw file. Offsets are 1-based because column 0 holds the row counter.
type Index struct {
	Path   string
	column map[int]int
	order  []int
}

// Masses returns the channel identifiers in header order.
func (idx *Index) Masses() []int {
	m := make([]int, len(idx.order))
	copy(m, idx.order)
	return m
}

// Column returns the 1-based column offset of a mass channel.
func (idx *Index) Column(mass int) (int, bool) {
	c, ok := idx.column[mass]
	return c, ok
}

// Require checks that all requested channels exist in the file header.
func (idx *Index) Require(masses ...int) error {
	for _, m := range masses {
		if _, ok := idx.column[m]; !ok {
			return &ChannelNotFoundError{
				Path:      idx.Path,
				Mass:      m,
				Available: idx.Masses(),
			}
		}
	}
	return nil
}

// Table holds the loaded columns of one data file. Storage is
// column-major; all columns share the same row count and row order.
type Table struct {
	Masses []int      // requested channels, in request order
	Push   []string   // row counter column, verbatim tokens
	cols   [][]float64
	byMass map[int]int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return len(t.Push) }

// Column returns the intensity series of one loaded mass channel.
func (t *Table) Column(mass int) ([]float64, bool) {
	i, ok := t.byMass[mass]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}
