package series

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Extract streams the row counter column and the selected mass channels
// from infile to outfile, processing chunkSize rows at a time. After
// each chunk the progress callback (if non-nil) receives the percentage
// of rows written.
//
// Cancellation is cooperative and checked between chunks. Chunks
// already written are not rolled back; on a non-nil error the output
// file is in a partial state and must be considered invalid.
func Extract(ctx context.Context, infile, outfile string, masses []int,
	chunkSize int, progress func(float64)) error {
	idx, err := ReadIndex(infile)
	if err != nil {
		return err
	}
	if err := idx.Require(masses...); err != nil {
		return err
	}

	out, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("create %s: %w", outfile, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	header := make([]string, 0, len(masses)+1)
	header = append(header, "Push number")
	for _, m := range masses {
		header = append(header, strconv.Itoa(m))
	}
	if _, err := w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", outfile, err)
	}

	err = LoadChunks(ctx, infile, idx, masses, chunkSize, func(c Chunk) error {
		row := make([]string, len(masses)+1)
		for i := 0; i < c.Table.Rows(); i++ {
			row[0] = c.Table.Push[i]
			for j, m := range masses {
				col, _ := c.Table.Column(m)
				row[j+1] = strconv.FormatFloat(col[i], 'g', -1, 64)
			}
			if _, err := w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
				return fmt.Errorf("write %s: %w", outfile, err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("write %s: %w", outfile, err)
		}
		if progress != nil {
			progress(c.Progress)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", outfile, err)
	}
	return out.Close()
}
