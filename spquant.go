// Copyright 2024 The spquant authors.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/spquant/spquant/internal/calib"
	"github.com/spquant/spquant/internal/detect"
	"github.com/spquant/spquant/internal/series"
)

// Program name and version, written to the calibration output
const progName = "spQuant"

var progVersion = `Unknown`

// Format of the calibration parameter file, if it ever changes we
// should still be able to parse output from old versions
const calFormatVersion = "1.0"

// Calibration point source: whole-series statistics or event integrals
const (
	calModeSeries = `series`
	calModeEvents = `events`
)

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	stage       *int    // Compute calibration (1), quantify (2) or both (0)
	configFile  *string // YAML analysis configuration
	calFilename *string // Filename where JSON calibration parameters are written/read
	outFilename *string // Filename for the per-event mass report
	standards   *string // Calibration standards as <file>(<concentration>)...
	calMode     *string // Calibration point source (series|events)
	extract     *string // Column extraction mode: comma separated masses
	sampleFile  *string
	verbosity   int      // Verbosity of progress messages (infoDefault...)
	args        []string // Additional values passed on the command line
}

// standard is one calibration measurement: a signal file and the known
// concentration of the analyte in it.
type standard struct {
	path          string
	concentration float64
}

var ErrRangeSpec = errors.New("invalid range specified")

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned
func parseIntRange(r string, min int, max int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// parseStandards parses a compound standards specification of the form
// <file1>(<concentration1>)<file2>(<concentration2>)...
// Concentrations must match the numeric grammar of the data files.
func parseStandards(spec string) ([]standard, error) {
	re := regexp.MustCompile(`([^\(]+)\(([^\)]*)\)`)
	matchedStringsList := re.FindAllStringSubmatch(spec, -1)
	if len(matchedStringsList) == 0 {
		return nil, errors.New(`no standards specified, expected <file>(<concentration>)...`)
	}
	stds := make([]standard, 0, len(matchedStringsList))
	for _, matchedStrings := range matchedStringsList {
		conc, err := series.ParseValue(matchedStrings[2])
		if err != nil {
			return nil, fmt.Errorf("standard %s: invalid concentration: %w",
				matchedStrings[1], err)
		}
		if conc < 0 {
			return nil, fmt.Errorf("standard %s: concentration must not be negative, got %g",
				matchedStrings[1], conc)
		}
		stds = append(stds, standard{path: matchedStrings[1], concentration: conc})
	}
	return stds, nil
}

// calData is the JSON representation of calibration parameters,
// used when storing/loading them between the two stages.
type calData struct {
	SpQuantVersion string
	Mass           int
	CalMode        string
	Slope          float64
	Intercept      float64
	RSquared       float64
	Points         []calib.Point
}

func (c calData) result() calib.Result {
	return calib.Result{Slope: c.Slope, Intercept: c.Intercept, RSquared: c.RSquared}
}

// standardPoint derives one calibration point from a standard's signal
// file: mean and standard deviation of either the full series of the
// calibration mass, or of its event integrals.
func standardPoint(st standard, mass int, mode string, cfg *config) (calib.Point, error) {
	var point calib.Point

	idx, err := series.ReadIndex(st.path)
	if err != nil {
		return point, err
	}
	// A missing calibration mass is a hard error, unlike "no events
	// detected" which is only reported.
	if err := idx.Require(mass); err != nil {
		return point, err
	}
	table, err := series.Load(st.path, idx, []int{mass})
	if err != nil {
		return point, err
	}
	col, _ := table.Column(mass)

	values := col
	if mode == calModeEvents {
		events := detect.Detect(col, cfg.MinEventLength, cfg.MaxEventLength)
		if len(events) == 0 {
			return point, fmt.Errorf(
				"standard %s: no events detected for mass %d, cannot derive calibration point",
				st.path, mass)
		}
		values = detect.Integrate(col, events)
	}

	point.Concentration = st.concentration
	point.MeanIntensity = stat.Mean(values, nil)
	point.StdDev = stat.PopStdDev(values, nil)
	return point, nil
}

// makeCalibration computes the calibration line from all standards.
func makeCalibration(stds []standard, mass int, mode string, cfg *config,
	verbosity int) (calData, error) {
	cal := calData{
		SpQuantVersion: calFormatVersion,
		Mass:           mass,
		CalMode:        mode,
	}
	points := make([]calib.Point, 0, len(stds))
	for _, st := range stds {
		t := time.Now()
		if verbosity == infoVerbose {
			fmt.Fprintf(os.Stderr, "Reading standard %s: ", st.path)
		}
		point, err := standardPoint(st, mass, mode, cfg)
		if err != nil {
			return cal, err
		}
		if verbosity == infoVerbose {
			fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
			fmt.Fprintf(os.Stderr, "  concentration %g: mean %g, sd %g\n",
				point.Concentration, point.MeanIntensity, point.StdDev)
		}
		points = append(points, point)
	}
	res, err := calib.Fit(points)
	if err != nil {
		return cal, err
	}
	cal.Slope = res.Slope
	cal.Intercept = res.Intercept
	cal.RSquared = res.RSquared
	cal.Points = points
	return cal, nil
}

func writeCal(cal calData, par params) error {
	f, err := os.Create(*par.calFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(cal)
}

func readCal(par params) (calData, error) {
	var cal calData
	f, err := os.Open(*par.calFilename)
	if err != nil {
		return cal, err
	}
	defer f.Close()

	d := json.NewDecoder(f)
	err = d.Decode(&cal)
	return cal, err
}

// quantifySample runs detection on the selection channel, integrates
// the mass of interest over the detected windows and converts each
// integral into particle mass.
func quantifySample(path string, cal calData, cfg *config) (
	events []detect.Event, integrals, masses []float64, err error) {

	idx, err := series.ReadIndex(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := idx.Require(cfg.SelectionMass, cfg.MassOfInterest); err != nil {
		return nil, nil, nil, err
	}
	load := []int{cfg.SelectionMass}
	if cfg.MassOfInterest != cfg.SelectionMass {
		load = append(load, cfg.MassOfInterest)
	}
	table, err := series.Load(path, idx, load)
	if err != nil {
		return nil, nil, nil, err
	}
	selCol, _ := table.Column(cfg.SelectionMass)
	intCol, _ := table.Column(cfg.MassOfInterest)

	events = detect.Detect(selCol, cfg.MinEventLength, cfg.MaxEventLength)
	if len(events) == 0 {
		// Reportable, not fatal: the report will simply be empty.
		log.Printf("Warning: could not detect any event for mass %d in %s",
			cfg.SelectionMass, path)
		return events, nil, nil, nil
	}
	integrals = detect.Integrate(intCol, events)

	conv, err := calib.NewConverter(cal.result(), cfg.acquisition())
	if err != nil {
		return nil, nil, nil, err
	}
	masses = make([]float64, len(integrals))
	for i, v := range integrals {
		masses[i] = conv.Mass(v)
	}
	return events, integrals, masses, nil
}

// writeReport writes the per-event mass report as tab separated text.
// Events outside the plausibility bounds are dropped; the caller is
// told how many survived.
func writeReport(path string, events []detect.Event, integrals, masses []float64,
	bounds calib.Bounds) (kept int, err error) {

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.WriteString("event\tstart\tend\tintegral\tmass\n"); err != nil {
		return 0, err
	}
	for i, ev := range events {
		if !bounds.Contains(masses[i]) {
			continue
		}
		_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%g\t%g\n",
			i, ev.Start, ev.End, integrals[i], masses[i])
		if err != nil {
			return kept, err
		}
		kept++
	}
	if err := w.Flush(); err != nil {
		return kept, err
	}
	return kept, f.Close()
}

// doCalibrate glues together the calibration stage:
// Read each standard's signal file
// Derive per-standard mean/deviation for the calibration mass
// Fit the weighted least squares line
// Write the calibration parameters to a JSON file
func doCalibrate(par params, cfg *config) calData {
	stds, err := parseStandards(*par.standards)
	if err != nil {
		log.Fatalf("Invalid parameter 'standards': %v", err)
	}
	if err := cfg.checkCalibrate(*par.calMode); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cal, err := makeCalibration(stds, cfg.CalibrationMass, *par.calMode, cfg,
		par.verbosity)
	if err != nil {
		log.Fatalf("makeCalibration: %v", err)
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Calibration mass %d: I = %g * [C] + %g (r^2 = %g)\n",
			cal.Mass, cal.Slope, cal.Intercept, cal.RSquared)
	}
	if err := writeCal(cal, par); err != nil {
		log.Fatalf("writeCal: %v", err)
	}
	return cal
}

// doQuantify glues together the quantification stage:
// Load the sample file
// Detect events on the selection channel
// Integrate the mass of interest over the event windows
// Convert integrals to particle mass and filter implausible results
// Write the per-event report
func doQuantify(par params, cfg *config, cal calData) {
	if err := cfg.checkQuantify(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	t := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Quantifying %s: ", *par.sampleFile)
	}
	events, integrals, masses, err := quantifySample(*par.sampleFile, cal, cfg)
	if err != nil {
		log.Fatalf("quantifySample: %v", err)
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}
	debugLogEvents(events, integrals, masses)

	kept, err := writeReport(*par.outFilename, events, integrals, masses, cfg.bounds())
	if err != nil {
		log.Fatalf("writeReport: %v", err)
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Events: %d Within mass bounds: %d\n",
			len(events), kept)
	}
	if par.verbosity == infoVerbose && kept > 0 {
		keptMasses := cfg.bounds().Filter(masses)
		fmt.Fprintf(os.Stderr, "Mass of kept events: mean %g, sd %g\n",
			stat.Mean(keptMasses, nil), stat.PopStdDev(keptMasses, nil))
	}
}

// sanatizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanatizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if *par.extract != `` {
		if len(par.args) < 1 {
			fmt.Fprintf(os.Stderr, `Extraction mode needs at least one input file.
Type %s --help for usage
`, exeName)
			os.Exit(2)
		}
		return
	}

	needSample := *par.stage != 1
	if needSample {
		if len(par.args) != 1 {
			fmt.Fprintf(os.Stderr, `Last argument must be name of the sample signal file.
Type %s --help for usage
`, exeName)
			os.Exit(2)
		}
		sample := par.args[0]
		par.sampleFile = &sample
	}

	var startName string
	if par.sampleFile != nil {
		sample := *par.sampleFile
		extension := filepath.Ext(sample)
		startName = sample[0 : len(sample)-len(extension)]
	} else {
		startName = progName
	}

	if *par.calFilename == "" {
		*par.calFilename = startName + "-cal.json"
	}
	if *par.outFilename == "" {
		*par.outFilename = startName + "-events.txt"
	}
	if *par.calMode != calModeSeries && *par.calMode != calModeEvents {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'calmode'.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <signalfile>

  This program quantifies single-particle mass spectrometry signals.
  It detects particle events in a selection channel of a time-resolved
  signal file, integrates a channel of interest over the event windows,
  and converts the integrals into absolute particle mass using a
  calibration computed from standard measurements.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
FILE FORMAT:
  Input files are plain text, tab separated. The first line is a header
  with a row counter label followed by the integer mass number of each
  channel; every following line holds a row counter and one intensity
  value per channel.

USAGE EXAMPLES:
  %s -config run.yaml -standards 'std1.txt(0.5)std2.txt(5.0)std3.txt(50)' sample.txt
    Calibrate from three standards, quantify sample.txt, write the
    calibration to sample-cal.json and the per-event masses to
    sample-events.txt.

  %s -config run.yaml -stage 2 -cal sample-cal.json sample.txt
    Quantify using previously computed calibration parameters.

  %s -extract 142,175 -o selected.txt data.txt
    Extract the row counter and the channels for masses 142 and 175
    into selected.txt, reading the input in bounded-memory chunks.
`, exeName, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.stage = flag.Int("stage", 0,
		`0 (default): calibrate and quantify in one run
1: only compute calibration parameters
2: quantify using previously computed parameters`)
	par.configFile = flag.String("config",
		"",
		"`filename` of the YAML analysis configuration")
	par.calFilename = flag.String("cal",
		"",
		"`filename` for calibration parameters (JSON)")
	par.outFilename = flag.String("o",
		"",
		"`filename` of the per-event mass report")
	par.standards = flag.String("standards",
		"",
		`calibration standards to use. Format:
<file1>(<concentration1>)<file2>(<concentration2>)...
At least three standards are needed for a calibration.`)
	par.calMode = flag.String("calmode",
		calModeSeries,
		`source of per-standard statistics:
    series: mean and deviation of the full signal of the calibration mass
    events: mean and deviation of the event integrals of that mass`)
	par.extract = flag.String("extract",
		"",
		"column extraction mode: comma separated `masses` to copy into a new file")
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()

	sanatizeParams(&par)

	if *par.extract != `` {
		doExtract(par)
		return
	}

	if *par.configFile == "" {
		log.Fatalf("Parameter 'config' is required outside extraction mode")
	}
	cfg, err := loadConfig(*par.configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}

	switch *par.stage {
	case 1:
		doCalibrate(par, cfg)
	case 2:
		cal, err := readCal(par)
		if err != nil {
			log.Fatalf("readCal: %v", err)
		}
		doQuantify(par, cfg, cal)
	default:
		cal := doCalibrate(par, cfg)
		doQuantify(par, cfg, cal)
	}
}
