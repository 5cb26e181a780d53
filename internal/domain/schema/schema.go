// Package schema holds the fixed column orderings of the BASGRA engine's
// binary contract. The orderings are part of the compiled engine and must
// never be reordered at runtime.
package schema

import "fmt"

// DefaultWeatherCapacity is the number of weather rows the stock engine
// build allocates (environment.f95, NMAXDAYS).
const DefaultWeatherCapacity = 36600

// MaxDOY is the largest valid day-of-year.
const MaxDOY = 366

// MinYear and MaxYear bound the calendar years a table may carry.
const (
	MinYear = 1
	MaxYear = 9999
)

// Key columns shared by the weather and harvest tables.
const (
	ColYear = "year"
	ColDOY  = "doy"
)

// Harvest column names.
const (
	ColFracHarv    = "frac_harv"
	ColHarvTrig    = "harv_trig"
	ColHarvTarg    = "harv_targ"
	ColWeedDMFrac  = "weed_dm_frac"
	ColReseedTrig  = "reseed_trig"
	ColReseedBasal = "reseed_basal"
)

// PETMode selects how potential evapotranspiration reaches the engine.
type PETMode int

const (
	// SuppliedPET expects a pet column in the weather table.
	SuppliedPET PETMode = iota
	// DerivedPET expects wind and vapour pressure so the engine can derive
	// PET with the Penman equation.
	DerivedPET
)

func (m PETMode) String() string {
	switch m {
	case SuppliedPET:
		return "pet"
	case DerivedPET:
		return "penman"
	default:
		return "unknown"
	}
}

// HarvestMode selects the authoring form of the harvest table.
type HarvestMode int

const (
	// ManualHarvest lists event days only; the schedule is densified.
	ManualHarvest HarvestMode = iota
	// AutoHarvest supplies one row per simulated day.
	AutoHarvest
)

func (m HarvestMode) String() string {
	if m == AutoHarvest {
		return "auto"
	}
	return "manual"
}

// ParsePETMode maps "pet" and "penman" to a PETMode.
func ParsePETMode(s string) (PETMode, error) {
	switch s {
	case "pet", "":
		return SuppliedPET, nil
	case "penman":
		return DerivedPET, nil
	}
	return 0, fmt.Errorf("unknown PET mode %q", s)
}

// ParseHarvestMode maps "manual" and "auto" to a HarvestMode.
func ParseHarvestMode(s string) (HarvestMode, error) {
	switch s {
	case "manual", "":
		return ManualHarvest, nil
	case "auto":
		return AutoHarvest, nil
	}
	return 0, fmt.Errorf("unknown harvest mode %q", s)
}

var weatherPET = []string{
	ColYear, ColDOY,
	"tmin", "tmax", "rain", "radn", "pet",
	"max_irr", "irr_trig", "irr_targ",
}

var weatherPenman = []string{
	ColYear, ColDOY,
	"tmin", "tmax", "rain", "radn", "wind", "vpa",
	"max_irr", "irr_trig", "irr_targ",
}

var harvest = []string{
	ColYear, ColDOY,
	ColFracHarv, ColHarvTrig, ColHarvTarg,
	ColWeedDMFrac, ColReseedTrig, ColReseedBasal,
}

// WeatherColumns returns the engine's weather column order for mode.
func WeatherColumns(mode PETMode) []string {
	if mode == DerivedPET {
		return clone(weatherPenman)
	}
	return clone(weatherPET)
}

// HarvestColumns returns the engine's harvest column order.
func HarvestColumns() []string { return clone(harvest) }

// OutputColumns returns the names of the engine's output columns in the
// order the engine writes them.
func OutputColumns() []string { return clone(output) }

// NumOutputColumns is the fixed output width passed to the engine as nout.
func NumOutputColumns() int { return len(output) }

// SameKeySet reports whether got holds exactly the names in want, ignoring
// order. It also returns the missing and unexpected names for reporting.
func SameKeySet(got, want []string) (ok bool, missing, extra []string) {
	have := make(map[string]int, len(got))
	for _, g := range got {
		have[g]++
	}
	need := make(map[string]struct{}, len(want))
	for _, w := range want {
		need[w] = struct{}{}
		if have[w] == 0 {
			missing = append(missing, w)
		}
	}
	for _, g := range got {
		if _, ok := need[g]; !ok {
			extra = append(extra, g)
			continue
		}
		if have[g] > 1 {
			extra = append(extra, g)
			have[g] = 1
		}
	}
	return len(missing) == 0 && len(extra) == 0, missing, extra
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
