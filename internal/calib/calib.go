package calib

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Calibration needs at least this many standards.
const minPoints = 3

// ErrInsufficientData is returned when fewer than three calibration
// standards are supplied.
var ErrInsufficientData = errors.New("insufficient calibration data")

// Point is one calibration standard: a known concentration and the
// mean and standard deviation of its replicate intensity measurements.
// The point's weight in the regression is 1/StdDev², so standards
// measured with lower replicate variance count more.
type Point struct {
	Concentration float64
	MeanIntensity float64
	StdDev        float64
}

// Result holds the fitted calibration line. It is computed once per
// calibration run and read-only thereafter.
type Result struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// Fit performs a weighted least squares regression of mean intensity
// against concentration over the calibration standards.
//
// The slope is corr(x,y,w) scaled by the ratio of the population
// standard deviations of y and x; the intercept follows from the
// weighted means. A standard with zero replicate deviation has
// undefined weight and is rejected with ErrDegenerateInput.
func Fit(points []Point) (Result, error) {
	if len(points) < minPoints {
		return Result{}, fmt.Errorf("%w: got %d standards, need at least %d",
			ErrInsufficientData, len(points), minPoints)
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	w := make([]float64, len(points))
	for i, p := range points {
		if p.StdDev <= 0 {
			return Result{}, fmt.Errorf(
				"%w: standard %d (concentration %g) has replicate deviation %g",
				ErrDegenerateInput, i, p.Concentration, p.StdDev)
		}
		x[i] = p.Concentration
		y[i] = p.MeanIntensity
		w[i] = 1 / (p.StdDev * p.StdDev)
	}

	c, err := Correlation(x, y, w)
	if err != nil {
		return Result{}, err
	}
	slope := c * stat.PopStdDev(y, nil) / stat.PopStdDev(x, nil)
	my, err := Mean(y, w)
	if err != nil {
		return Result{}, err
	}
	mx, err := Mean(x, w)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Slope:     slope,
		Intercept: my - mx*slope,
		RSquared:  c * c,
	}, nil
}
