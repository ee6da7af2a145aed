// Copyright 2024 The spquant authors.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spquant/spquant/internal/calib"
)

// Default number of rows per chunk for streaming reads
const defaultChunkSize = 1000000

// config holds the analysis parameters for one run. Acquisition
// constants and the mass plausibility bounds are deliberately not
// hard-coded: they describe the instrument and the sample, not the
// program.
type config struct {
	// Acquisition constants, all required and positive
	DwellTime           float64 `yaml:"dwell_time"`           // seconds per row
	FlowRate            float64 `yaml:"flow_rate"`            // e.g. uL/s
	TransportEfficiency float64 `yaml:"transport_efficiency"` // fraction in (0,1]

	// Channels
	SelectionMass   int `yaml:"selection_mass"`   // channel used for event detection
	MassOfInterest  int `yaml:"mass_of_interest"` // channel integrated over the events
	CalibrationMass int `yaml:"calibration_mass"` // defaults to mass_of_interest

	// Event width bounds in rows, inclusive
	MinEventLength float64 `yaml:"min_event_length"`
	MaxEventLength float64 `yaml:"max_event_length"`

	// Plausibility bounds for converted masses; omitted means unbounded
	MassMin *float64 `yaml:"mass_min"`
	MassMax *float64 `yaml:"mass_max"`

	// Rows per block for chunked reads
	ChunkSize int `yaml:"chunk_size"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.CalibrationMass == 0 {
		cfg.CalibrationMass = cfg.MassOfInterest
	}
	return &cfg, nil
}

func (c *config) acquisition() calib.Acquisition {
	return calib.Acquisition{
		DwellTime:           c.DwellTime,
		FlowRate:            c.FlowRate,
		TransportEfficiency: c.TransportEfficiency,
	}
}

func (c *config) bounds() calib.Bounds {
	return calib.Bounds{Min: c.MassMin, Max: c.MassMax}
}

// checkEventWidths validates the detection width bounds.
func (c *config) checkEventWidths() error {
	if c.MinEventLength <= 0 {
		return fmt.Errorf("min_event_length must be positive, got %g", c.MinEventLength)
	}
	if c.MaxEventLength < c.MinEventLength {
		return fmt.Errorf("max_event_length %g below min_event_length %g",
			c.MaxEventLength, c.MinEventLength)
	}
	return nil
}

// checkQuantify validates everything the quantification stage needs.
func (c *config) checkQuantify() error {
	if err := c.acquisition().Validate(); err != nil {
		return err
	}
	if c.SelectionMass <= 0 {
		return fmt.Errorf("selection_mass must be a positive mass number, got %d",
			c.SelectionMass)
	}
	if c.MassOfInterest <= 0 {
		return fmt.Errorf("mass_of_interest must be a positive mass number, got %d",
			c.MassOfInterest)
	}
	if c.MassMin != nil && c.MassMax != nil && *c.MassMax < *c.MassMin {
		return fmt.Errorf("mass_max %g below mass_min %g", *c.MassMax, *c.MassMin)
	}
	return c.checkEventWidths()
}

// checkCalibrate validates what the calibration stage needs; the event
// width bounds only matter when calibrating from event integrals.
func (c *config) checkCalibrate(mode string) error {
	if c.CalibrationMass <= 0 {
		return fmt.Errorf("calibration_mass must be a positive mass number, got %d",
			c.CalibrationMass)
	}
	if mode == calModeEvents {
		return c.checkEventWidths()
	}
	return nil
}
