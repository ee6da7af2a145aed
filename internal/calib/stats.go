// Package calib fits a weighted least squares calibration line over
// standard measurements and converts raw integrated intensities of
// unknown samples into absolute particle mass.
package calib

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateInput is returned when a weighted statistic is undefined
// for its input: zero total weight, or zero variance where a variance
// ratio is needed.
var ErrDegenerateInput = errors.New("degenerate input")

// Mean returns the weighted mean sum(x*w)/sum(w). The slices must have
// equal length; a mismatch panics. A zero weight sum yields
// ErrDegenerateInput.
func Mean(x, w []float64) (float64, error) {
	if len(x) != len(w) {
		panic("calib: slice length mismatch")
	}
	var sum, sumW float64
	for i, xi := range x {
		sum += xi * w[i]
		sumW += w[i]
	}
	if sumW == 0 {
		return 0, fmt.Errorf("%w: total weight is zero", ErrDegenerateInput)
	}
	return sum / sumW, nil
}

// Covariance returns the weighted covariance
// sum(w*(x-mean(x))*(y-mean(y)))/sum(w).
func Covariance(x, y, w []float64) (float64, error) {
	if len(x) != len(y) || len(x) != len(w) {
		panic("calib: slice length mismatch")
	}
	mx, err := Mean(x, w)
	if err != nil {
		return 0, err
	}
	my, err := Mean(y, w)
	if err != nil {
		return 0, err
	}
	var sum, sumW float64
	for i := range x {
		sum += w[i] * (x[i] - mx) * (y[i] - my)
		sumW += w[i]
	}
	return sum / sumW, nil
}

// Correlation returns the weighted correlation
// cov(x,y)/sqrt(cov(x,x)*cov(y,y)). Zero variance in either variable
// yields ErrDegenerateInput, since the ratio is undefined.
func Correlation(x, y, w []float64) (float64, error) {
	cxy, err := Covariance(x, y, w)
	if err != nil {
		return 0, err
	}
	cxx, err := Covariance(x, x, w)
	if err != nil {
		return 0, err
	}
	cyy, err := Covariance(y, y, w)
	if err != nil {
		return 0, err
	}
	if cxx == 0 || cyy == 0 {
		return 0, fmt.Errorf("%w: zero variance", ErrDegenerateInput)
	}
	return cxy / math.Sqrt(cxx*cyy), nil
}
