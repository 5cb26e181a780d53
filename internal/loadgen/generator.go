package loadgen

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
)

// simulationRequest is the POST /simulations body.
type simulationRequest struct {
	RequestID  string             `json:"request_id"`
	Params     map[string]float64 `json:"params"`
	Weather    *model.Frame       `json:"weather"`
	Harvest    *model.Frame       `json:"harvest"`
	Irrigation []int              `json:"irrigation_days"`
	SupplyPET  bool               `json:"supply_pet"`
}

// generate builds one request of days contiguous days starting on a random
// year between 2000 and 2019, with a cut every 40 days and irrigation in
// the first month.
func generate(cfg *Config, rng *rand.Rand) simulationRequest {
	mode := schema.SuppliedPET
	if cfg.DerivePET {
		mode = schema.DerivedPET
	}
	first := time.Date(2000+rng.IntN(20), time.January, 1, 0, 0, 0, 0, time.UTC)

	cols := schema.WeatherColumns(mode)
	weather := model.NewFrame(cols...)
	var cuts []model.HarvestDirective
	for i := 0; i < cfg.Days; i++ {
		day := model.DayOf(first.AddDate(0, 0, i))
		season := math.Sin(2 * math.Pi * float64(day.DOY) / 365)
		values := map[string]float64{
			schema.ColYear: float64(day.Year),
			schema.ColDOY:  float64(day.DOY),
			"tmin":         5 + 4*season + rng.NormFloat64(),
			"tmax":         15 + 6*season + rng.NormFloat64(),
			"rain":         math.Max(0, 4*rng.NormFloat64()),
			"radn":         math.Max(0.5, 12+8*season+2*rng.NormFloat64()),
			"pet":          math.Max(0.1, 2.5+1.5*season+0.3*rng.NormFloat64()),
			"wind":         1 + 4*rng.Float64(),
			"vpa":          0.6 + rng.Float64(),
			"max_irr":      5,
			"irr_trig":     0.6,
			"irr_targ":     1,
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = values[c]
		}
		weather.Rows = append(weather.Rows, row)

		if i > 0 && i%40 == 0 {
			cuts = append(cuts, model.HarvestDirective{
				Year: day.Year, DOY: day.DOY,
				FracHarv: 1, HarvTrig: 2500, HarvTarg: 1500,
				WeedDMFrac: 0.1 * rng.Float64(), ReseedTrig: -1, ReseedBasal: 1,
			})
		}
	}

	irrigation := make([]int, 0, 30)
	for d := 1; d <= min(30, cfg.Days); d++ {
		irrigation = append(irrigation, d)
	}

	return simulationRequest{
		RequestID:  uuid.NewString(),
		Params:     cfg.Params,
		Weather:    weather,
		Harvest:    model.HarvestFrame(cuts),
		Irrigation: irrigation,
		SupplyPET:  mode == schema.SuppliedPET,
	}
}
