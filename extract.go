// Copyright 2024 The spquant authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spquant/spquant/internal/series"
)

// parseMassList parses a comma separated list of mass numbers,
// e.g. "142,175,193".
func parseMassList(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")
	masses := make([]int, 0, len(parts))
	for _, p := range parts {
		m, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || m <= 0 {
			return nil, fmt.Errorf("invalid mass number %q", p)
		}
		masses = append(masses, m)
	}
	return masses, nil
}

// extractOutName derives the output filename for one input file.
func extractOutName(infile string) string {
	extension := filepath.Ext(infile)
	return infile[0:len(infile)-len(extension)] + "_modified.txt"
}

// extractChunkSize returns the rows-per-chunk for extraction mode. The
// analysis configuration is optional here; without one the default
// applies.
func extractChunkSize(configFile string) (int, error) {
	if configFile == "" {
		return defaultChunkSize, nil
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return 0, err
	}
	return cfg.ChunkSize, nil
}

// doExtract runs the bulk column extraction: every input file is
// streamed chunk-wise into a new file holding only the row counter and
// the requested channels. The task is cancellable with SIGINT; a
// canceled run leaves the current output file in a partial state,
// which the user is told to discard.
func doExtract(par params) {
	masses, err := parseMassList(*par.extract)
	if err != nil {
		log.Fatalf("Invalid parameter 'extract': %v", err)
	}
	chunkSize, err := extractChunkSize(*par.configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for n, infile := range par.args {
		outfile := extractOutName(infile)
		if *par.outFilename != "" && len(par.args) == 1 {
			outfile = *par.outFilename
		}

		progress := func(pct float64) {
			if par.verbosity != infoSilent {
				fmt.Fprintf(os.Stderr, "\rFile %d/%d: %6.2f %%",
					n+1, len(par.args), pct)
			}
		}
		err := series.Extract(ctx, infile, outfile, masses, chunkSize, progress)
		if par.verbosity != infoSilent {
			fmt.Fprintf(os.Stderr, "\n")
		}
		if errors.Is(err, context.Canceled) {
			log.Printf("Operation canceled by user; partial output file %s is invalid",
				outfile)
			return
		}
		if err != nil {
			log.Fatalf("extract %s: %v", infile, err)
		}
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Modified files saved.\n")
	}
}
