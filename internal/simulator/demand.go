package simulator

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DemandModel turns temperature into city consumption per hour.
type DemandModel struct {
	BaseLoadKWh  float64 `json:"base_load_kwh"`
	VariationKWh float64 `json:"variation_kwh"` // uniform ± around the base
	PenaltyKWh   float64 `json:"penalty_kwh"`   // heating or cooling load

	ColdThresholdC float64 `json:"cold_threshold_c"`
	HotThresholdC  float64 `json:"hot_threshold_c"`
}

func DefaultDemandModel() DemandModel {
	return DemandModel{
		BaseLoadKWh:    1000,
		VariationKWh:   200,
		PenaltyKWh:     200,
		ColdThresholdC: 0,
		HotThresholdC:  30,
	}
}

// Demand returns the consumption for one hour at temperatureC.
func (d DemandModel) Demand(temperatureC float64, rng *rand.Rand) float64 {
	demand := d.BaseLoadKWh
	if d.VariationKWh > 0 {
		demand += distuv.Uniform{Min: -d.VariationKWh, Max: d.VariationKWh, Src: rng}.Rand()
	}
	if temperatureC < d.ColdThresholdC || temperatureC > d.HotThresholdC {
		demand += d.PenaltyKWh
	}
	return math.Max(demand, 0)
}
