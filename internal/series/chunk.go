package series

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Chunk is one block of rows produced by a chunked load.
type Chunk struct {
	Start    int    // absolute index of the first data row in this chunk
	Table    *Table // rows of this chunk only, same column layout as Load
	Progress float64
}

// countLines counts the lines of a file, including the header line.
// A final line without a trailing newline still counts.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	lines := 0
	var last byte
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				lines++
			}
		}
		if n > 0 {
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, &FileReadError{Path: path, Err: err}
		}
	}
	if last != 0 && last != '\n' {
		lines++
	}
	return lines, nil
}

// LoadChunks reads the requested channels in blocks of chunkSize rows,
// calling fn once per block with a progress percentage in [0,100]. The
// row total is obtained by a full line-count pre-scan, so the progress
// value of the last block is exactly 100. Cancellation is checked
// between blocks; a canceled context aborts with ctx.Err() and no
// further callbacks.
func LoadChunks(ctx context.Context, path string, idx *Index, masses []int,
	chunkSize int, fn func(Chunk) error) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if err := idx.Require(masses...); err != nil {
		return err
	}

	lines, err := countLines(path)
	if err != nil {
		return err
	}
	total := lines - 1 // header line does not count as data
	if total < 0 {
		total = 0
	}

	f, err := os.Open(path)
	if err != nil {
		return &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	cols := make([]int, len(masses))
	for i, m := range masses {
		cols[i], _ = idx.Column(m)
	}
	nFields := len(idx.order) + 1

	newChunk := func(start int) *Chunk {
		t := &Table{
			Masses: append([]int(nil), masses...),
			cols:   make([][]float64, len(masses)),
			byMass: make(map[int]int, len(masses)),
		}
		for i, m := range masses {
			t.byMass[m] = i
		}
		return &Chunk{Start: start, Table: t}
	}

	emit := func(c *Chunk, read int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Progress = progressPct(read, total)
		return fn(*c)
	}

	sc := newLineScanner(f)
	lineNo := 0
	read := 0
	chunk := newChunk(0)
	for sc.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) != nFields {
			return &FileReadError{Path: path, Line: lineNo,
				Err: fmt.Errorf("expected %d fields, got %d", nFields, len(fields))}
		}
		t := chunk.Table
		t.Push = append(t.Push, fields[0])
		for i, c := range cols {
			v, err := ParseValue(fields[c])
			if err != nil {
				return &FileReadError{Path: path, Line: lineNo, Err: err}
			}
			t.cols[i] = append(t.cols[i], v)
		}
		read++
		if t.Rows() == chunkSize {
			if err := emit(chunk, read); err != nil {
				return err
			}
			chunk = newChunk(read)
		}
	}
	if err := sc.Err(); err != nil {
		return &FileReadError{Path: path, Line: lineNo, Err: err}
	}
	// Flush the remainder. An empty file still yields one callback so
	// the caller always observes a final progress of 100. Progress is
	// derived from the rows actually read, so a file that shrank after
	// the pre-scan is not reported as complete.
	if chunk.Table.Rows() > 0 || read == 0 {
		return emit(chunk, read)
	}
	return nil
}

// progressPct converts rows read into a progress percentage. Reaching
// the pre-scanned total reports exactly 100.
func progressPct(read, total int) float64 {
	if read >= total {
		return 100
	}
	return 100 * float64(read) / float64(total)
}
