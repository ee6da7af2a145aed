// Package detect finds particle-induced signal bursts ("events") in one
// channel of a time series and integrates channel intensities over the
// detected windows.
//
// Detection follows the classic prominence-based peak search: local
// maxima are filtered by their width measured at half prominence, and
// the reported event boundaries are the indices where the signal
// returns to the peak's full base height.
package detect

type Event struct {
	Start int // first row of the event window
	End   int // one past the last row, half-open [Start, End)
}

// Detect scans a single channel for local maxima whose width lies
// within [minWidth, maxWidth] (inclusive) and returns their event
// windows in ascending start order. Boundaries are measured at full
// base height and clipped to the series bounds.
//
// An input with no qualifying peak yields an empty slice; that is a
// reportable condition for the caller, not an error. Output is fully
// deterministic: peaks are found in scan order, so ties in height
// resolve to the earlier sample.
func Detect(x []float64, minWidth, maxWidth float64) []Event {
	peaks := localMaxima(x)
	if len(peaks) == 0 {
		return nil
	}
	prom, leftBase, rightBase := prominences(x, peaks)

	events := make([]Event, 0, len(peaks))
	for i, p := range peaks {
		w, _, _ := widthAt(x, p, prom[i], leftBase[i], rightBase[i], 0.5)
		if w < minWidth || w > maxWidth {
			continue
		}
		_, lip, rip := widthAt(x, p, prom[i], leftBase[i], rightBase[i], 1.0)
		ev := Event{Start: int(lip), End: int(rip)}
		if ev.Start < 0 {
			ev.Start = 0
		}
		if ev.End > len(x) {
			ev.End = len(x)
		}
		events = append(events, ev)
	}
	return events
}

// localMaxima returns the indices of all strict local maxima. Flat
// tops (plateaus) count once, at the midpoint of the plateau. The
// first and last sample can never be maxima.
func localMaxima(x []float64) []int {
	var mids []int
	iMax := len(x) - 1
	for i := 1; i < iMax; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < iMax && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			mids = append(mids, (i+ahead-1)/2)
			i = ahead
		}
	}
	return mids
}

// prominences computes, per peak, the vertical distance between the
// peak and its lowest contour line, together with the indices of the
// left and right bases (the minima bounding the peak on either side,
// searched up to the next higher sample or the series border).
func prominences(x []float64, peaks []int) (prom []float64, leftBase, rightBase []int) {
	prom = make([]float64, len(peaks))
	leftBase = make([]int, len(peaks))
	rightBase = make([]int, len(peaks))
	for k, p := range peaks {
		leftMin, lb := x[p], p
		for i := p; i >= 0 && x[i] <= x[p]; i-- {
			if x[i] < leftMin {
				leftMin, lb = x[i], i
			}
		}
		rightMin, rb := x[p], p
		for i := p; i < len(x) && x[i] <= x[p]; i++ {
			if x[i] < rightMin {
				rightMin, rb = x[i], i
			}
		}
		base := leftMin
		if rightMin > base {
			base = rightMin
		}
		prom[k] = x[p] - base
		leftBase[k] = lb
		rightBase[k] = rb
	}
	return prom, leftBase, rightBase
}

// widthAt measures the width of one peak at the evaluation height
// x[peak] - prominence*relHeight. The crossing points are linearly
// interpolated between samples; the search never leaves the peak's
// base interval.
func widthAt(x []float64, peak int, prom float64, leftBase, rightBase int,
	relHeight float64) (width, leftIP, rightIP float64) {
	height := x[peak] - prom*relHeight

	i := peak
	for leftBase < i && height < x[i] {
		i--
	}
	leftIP = float64(i)
	if x[i] < height {
		leftIP += (height - x[i]) / (x[i+1] - x[i])
	}

	i = peak
	for i < rightBase && height < x[i] {
		i++
	}
	rightIP = float64(i)
	if x[i] < height {
		rightIP -= (height - x[i]) / (x[i-1] - x[i])
	}

	return rightIP - leftIP, leftIP, rightIP
}
