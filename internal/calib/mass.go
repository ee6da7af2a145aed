package calib

import (
	"errors"
	"fmt"
	"math"
)

// slopeEps is the threshold below which a calibration slope is treated
// as zero; dividing by it would produce meaningless masses.
const slopeEps = 1e-12

// ErrDegenerateCalibration is returned when the calibration slope is
// zero or near zero, making mass conversion undefined.
var ErrDegenerateCalibration = errors.New("degenerate calibration")

// Acquisition holds the instrument constants of one analysis run.
// All of them are externally supplied and must be positive.
type Acquisition struct {
	DwellTime           float64 // sampling interval per row, seconds
	FlowRate            float64 // sample uptake, volume per second
	TransportEfficiency float64 // fraction of sample mass reaching the detector
}

// Validate checks that all acquisition constants are positive and that
// the transport efficiency is a fraction in (0,1].
func (a Acquisition) Validate() error {
	if a.DwellTime <= 0 {
		return fmt.Errorf("dwell time must be positive, got %g", a.DwellTime)
	}
	if a.FlowRate <= 0 {
		return fmt.Errorf("flow rate must be positive, got %g", a.FlowRate)
	}
	if a.TransportEfficiency <= 0 || a.TransportEfficiency > 1 {
		return fmt.Errorf("transport efficiency must be in (0,1], got %g",
			a.TransportEfficiency)
	}
	return nil
}

// Converter turns raw integrated intensities into estimated particle
// mass using a fixed calibration line and acquisition constants.
type Converter struct {
	cal Result
	acq Acquisition
}

// NewConverter validates the calibration and acquisition parameters.
// A zero or near-zero slope yields ErrDegenerateCalibration.
func NewConverter(cal Result, acq Acquisition) (*Converter, error) {
	if math.Abs(cal.Slope) < slopeEps {
		return nil, fmt.Errorf("%w: slope %g too close to zero",
			ErrDegenerateCalibration, cal.Slope)
	}
	if err := acq.Validate(); err != nil {
		return nil, err
	}
	return &Converter{cal: cal, acq: acq}, nil
}

// Mass converts one integrated intensity into estimated particle mass:
// (intensity - intercept)/slope * dwell * flow / transport efficiency.
func (c *Converter) Mass(intensity float64) float64 {
	return (intensity - c.cal.Intercept) / c.cal.Slope *
		c.acq.DwellTime * c.acq.FlowRate / c.acq.TransportEfficiency
}

// Bounds is the plausibility window for converted masses. Either side
// may be nil, meaning unbounded on that side. The bounds are a policy
// parameter supplied by the caller, not a built-in constant.
type Bounds struct {
	Min *float64
	Max *float64
}

// Contains reports whether a mass lies within the plausibility window.
func (b Bounds) Contains(mass float64) bool {
	if b.Min != nil && mass < *b.Min {
		return false
	}
	if b.Max != nil && mass > *b.Max {
		return false
	}
	return true
}

// Filter returns the masses inside the plausibility window, preserving
// order. The input slice is not modified.
func (b Bounds) Filter(masses []float64) []float64 {
	kept := make([]float64, 0, len(masses))
	for _, m := range masses {
		if b.Contains(m) {
			kept = append(kept, m)
		}
	}
	return kept
}
