package sim

import (
	"log"
	"math"
	"time"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
)

// FreqFromInterval converts a wall-clock interval into the frequency that
// ticks once per interval.
func FreqFromInterval(d time.Duration) Freq {
	if d <= 0 {
		log.Panicf("interval must be positive, got %s", d)
	}

	return Freq(float64(time.Second) / float64(d))
}

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}
	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// NCyclesLater returns the time n periods after the given time.
//
//	   Input                      Output (n = 2)
//	     |                          |
//	|----+-----|----------|---------+-|----->
func (f Freq) NCyclesLater(n uint64, since VTimeInSec) VTimeInSec {
	if math.IsNaN(float64(since)) {
		log.Panic("invalid time")
	}

	return since + VTimeInSec(float64(n)/float64(f))
}

// Duration converts a virtual time span into a wall-clock duration.
func Duration(t VTimeInSec) time.Duration {
	return time.Duration(float64(t) * float64(time.Second))
}

// VTime converts a wall-clock duration into a virtual time span.
func VTime(d time.Duration) VTimeInSec {
	return VTimeInSec(d.Seconds())
}
