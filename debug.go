// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"

	"github.com/spquant/spquant/internal/detect"
)

var debugEvents *string // Print debug output for given event range

func init() {
	debugEvents = flag.String("debug", "",
		"Print debug output for given event `range` e.g. 3:6")
}

// debugLogEvents prints the window, integral and converted mass of the
// detected events within the requested range.
func debugLogEvents(events []detect.Event, integrals, masses []float64) {
	if *debugEvents == `` {
		return
	}
	debugMin, debugMax, _ := parseIntRange(*debugEvents, 0, len(events)-1)
	for i, ev := range events {
		if i >= debugMin && i <= debugMax {
			fmt.Printf("event:%d rows:[%d:%d) width:%d integral:%f mass:%f\n",
				i, ev.Start, ev.End, ev.End-ev.Start, integrals[i], masses[i])
		}
	}
}
