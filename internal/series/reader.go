package series

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Accepted lexical grammar for intensity values:
// optional sign, digits with optional decimal point and fraction
// (or a leading decimal point), optional exponent.
// Inf, NaN and hex floats are deliberately rejected.
var numberRe = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// ParseValue converts one intensity token to a float64, enforcing the
// accepted numeric grammar. Invalid tokens yield ErrBadNumber.
func ParseValue(s string) (float64, error) {
	if !numberRe.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return v, nil
}

// scanBufSize is the line buffer limit; headers with hundreds of
// channels stay far below this.
const scanBufSize = 4 * 1024 * 1024

func newLineScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	return sc
}

// ReadIndex reads the header line of a data file and builds the mass
// channel index. It reads nothing beyond the first line.
func ReadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	sc := newLineScanner(f)
	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = errors.New("empty file, no header line")
		}
		return nil, &FileReadError{Path: path, Line: 1, Err: err}
	}
	return parseHeader(path, sc.Text())
}

func parseHeader(path, line string) (*Index, error) {
	tokens := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(tokens) < 2 {
		return nil, &FileReadError{Path: path, Line: 1,
			Err: errors.New("header has no mass channels")}
	}
	idx := &Index{
		Path:   path,
		column: make(map[int]int, len(tokens)-1),
		order:  make([]int, 0, len(tokens)-1),
	}
	// Token 0 is the row counter label; the remaining tokens are mass
	// numbers whose position defines the column offset.
	for i, tok := range tokens[1:] {
		mass, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || mass <= 0 {
			return nil, &FileReadError{Path: path, Line: 1,
				Err: fmt.Errorf("header column %d: invalid mass %q", i+1, tok)}
		}
		if _, dup := idx.column[mass]; dup {
			return nil, &FileReadError{Path: path, Line: 1,
				Err: fmt.Errorf("duplicate mass %d in header", mass)}
		}
		idx.column[mass] = i + 1
		idx.order = append(idx.order, mass)
	}
	return idx, nil
}

// Load reads the whole file in one pass, restricted to the row counter
// column and the requested mass channels. Row order is preserved.
func Load(path string, idx *Index, masses []int) (*Table, error) {
	if err := idx.Require(masses...); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	t := &Table{
		Masses: append([]int(nil), masses...),
		cols:   make([][]float64, len(masses)),
		byMass: make(map[int]int, len(masses)),
	}
	cols := make([]int, len(masses))
	for i, m := range masses {
		cols[i], _ = idx.Column(m)
		t.byMass[m] = i
	}
	nFields := len(idx.order) + 1

	sc := newLineScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) != nFields {
			return nil, &FileReadError{Path: path, Line: lineNo,
				Err: fmt.Errorf("expected %d fields, got %d", nFields, len(fields))}
		}
		t.Push = append(t.Push, fields[0])
		for i, c := range cols {
			v, err := ParseValue(fields[c])
			if err != nil {
				return nil, &FileReadError{Path: path, Line: lineNo, Err: err}
			}
			t.cols[i] = append(t.cols[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &FileReadError{Path: path, Line: lineNo, Err: err}
	}
	return t, nil
}
