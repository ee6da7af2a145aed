package detect

import "gonum.org/v1/gonum/floats"

// Integrate sums a channel's values over each event window. Events are
// typically detected on a different selection channel; only the row
// ranges are reused here. Output order matches event order. Windows
// are half-open [Start, End), clipped to the series bounds; a window
// that collapses to zero width contributes a sum of zero.
func Integrate(x []float64, events []Event) []float64 {
	sums := make([]float64, len(events))
	for i, ev := range events {
		start, end := ev.Start, ev.End
		if start < 0 {
			start = 0
		}
		if end > len(x) {
			end = len(x)
		}
		if start >= end {
			continue
		}
		sums[i] = floats.Sum(x[start:end])
	}
	return sums
}
