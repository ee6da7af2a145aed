package calib

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const tol = 1e-12

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEqualWeightsMatchUnweighted(t *testing.T) {
	x := []float64{1.0, 2.5, 3.0, 4.5, 7.0}
	y := []float64{2.0, 4.5, 7.0, 8.0, 13.5}
	w := []float64{2.5, 2.5, 2.5, 2.5, 2.5}

	m, err := Mean(x, w)
	if err != nil {
		t.Errorf("Mean: error return %v", err)
	}
	if !almostEqual(m, stat.Mean(x, nil), tol) {
		t.Errorf("Mean: %v, want %v", m, stat.Mean(x, nil))
	}

	c, err := Covariance(x, y, w)
	if err != nil {
		t.Errorf("Covariance: error return %v", err)
	}
	// Population covariance, computed directly
	mx := stat.Mean(x, nil)
	my := stat.Mean(y, nil)
	var want float64
	for i := range x {
		want += (x[i] - mx) * (y[i] - my)
	}
	want /= float64(len(x))
	if !almostEqual(c, want, tol) {
		t.Errorf("Covariance: %v, want %v", c, want)
	}

	r, err := Correlation(x, y, w)
	if err != nil {
		t.Errorf("Correlation: error return %v", err)
	}
	// The sample/population factor cancels in the correlation ratio
	if !almostEqual(r, stat.Correlation(x, y, nil), 1e-9) {
		t.Errorf("Correlation: %v, want %v", r, stat.Correlation(x, y, nil))
	}
}

func TestCorrelationAffineInvariance(t *testing.T) {
	x := []float64{1, 2, 3, 5, 8}
	y := []float64{1.2, 1.9, 3.4, 4.9, 8.3}
	w := []float64{1, 2, 3, 2, 1}

	r, err := Correlation(x, y, w)
	if err != nil {
		t.Fatalf("Correlation: error return %v", err)
	}

	// Positive scale and shift of both variables, independently
	x2 := make([]float64, len(x))
	y2 := make([]float64, len(y))
	for i := range x {
		x2[i] = 3.7*x[i] + 11.0
		y2[i] = 0.25*y[i] - 4.0
	}
	r2, err := Correlation(x2, y2, w)
	if err != nil {
		t.Fatalf("Correlation: error return %v", err)
	}
	if !almostEqual(r, r2, 1e-12) {
		t.Errorf("Correlation not invariant under affine rescaling: %v vs %v", r, r2)
	}

	// Negative scale flips the sign, magnitude unchanged
	for i := range x {
		x2[i] = -2.0 * x[i]
	}
	r3, err := Correlation(x2, y, w)
	if err != nil {
		t.Fatalf("Correlation: error return %v", err)
	}
	if !almostEqual(r, -r3, 1e-12) {
		t.Errorf("Correlation sign under negative scale: %v vs %v", r, r3)
	}
}

func TestZeroTotalWeight(t *testing.T) {
	x := []float64{1, 2, 3}
	w := []float64{0, 0, 0}
	_, err := Mean(x, w)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("Mean: error return %v, should be ErrDegenerateInput", err)
	}
	_, err = Covariance(x, x, w)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("Covariance: error return %v, should be ErrDegenerateInput", err)
	}
}

func TestZeroVariance(t *testing.T) {
	x := []float64{5, 5, 5}
	y := []float64{1, 2, 3}
	w := []float64{1, 1, 1}
	_, err := Correlation(x, y, w)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("Correlation: error return %v, should be ErrDegenerateInput", err)
	}
}
