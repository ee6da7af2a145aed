package series

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtract(t *testing.T) {
	path := writeTestFile(t, testContent)
	out := filepath.Join(t.TempDir(), "selected.txt")

	var progressCalls int
	var last float64
	err := Extract(context.Background(), path, out, []int{193, 142}, 2,
		func(pct float64) {
			progressCalls++
			last = pct
		})
	if err != nil {
		t.Fatalf("Extract: error return %v", err)
	}
	if progressCalls == 0 || last != 100 {
		t.Errorf("Extract: %d progress calls, final %v, want final 100", progressCalls, last)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "Push number\t193\t142\n" +
		"1\t10\t0.5\n" +
		"2\t20\t1.5\n" +
		"3\t30\t2.5\n" +
		"4\t40\t3.5\n"
	if string(data) != want {
		t.Errorf("Extract output:\n%s\nwant:\n%s", data, want)
	}

	// The output must itself be a loadable signal file
	idx, err := ReadIndex(out)
	if err != nil {
		t.Fatalf("ReadIndex on extracted file: error return %v", err)
	}
	table, err := Load(out, idx, []int{193})
	if err != nil {
		t.Fatalf("Load on extracted file: error return %v", err)
	}
	if table.Rows() != 4 {
		t.Errorf("extracted file rows: %d, want 4", table.Rows())
	}
}

func TestExtractMissingChannel(t *testing.T) {
	path := writeTestFile(t, testContent)
	out := filepath.Join(t.TempDir(), "selected.txt")
	err := Extract(context.Background(), path, out, []int{999}, 2, nil)
	var cnf *ChannelNotFoundError
	if !errors.As(err, &cnf) {
		t.Errorf("Extract: error return %v, should be ChannelNotFoundError", err)
	}
}

func TestExtractCancelLeavesPartialOutput(t *testing.T) {
	path := writeTestFile(t, testContent)
	out := filepath.Join(t.TempDir(), "selected.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Extract(ctx, path, out, []int{142}, 2, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Extract: error return %v, should be context.Canceled", err)
	}
	// Cancellation does not roll back: whatever was written stays,
	// and the caller must treat the file as invalid.
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Extract: partial output file missing: %v", err)
	}
}
