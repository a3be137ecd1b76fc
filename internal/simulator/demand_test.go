package simulator

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestDemand_Penalty(t *testing.T) {
	d := DefaultDemandModel()
	d.VariationKWh = 0

	tests := []struct {
		temp float64
		want float64
	}{
		{-5, 1200},
		{-0.1, 1200},
		{0, 1000},
		{20, 1000},
		{30, 1000},
		{30.5, 1200},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Demand(tt.temp, nil), "temperature %v", tt.temp)
	}
}

func TestDemand_VariationBounds(t *testing.T) {
	d := DefaultDemandModel()
	rng := newRNG(11)

	for i := 0; i < 1000; i++ {
		v := d.Demand(15, rng)
		assert.GreaterOrEqual(t, v, 800.0)
		assert.LessOrEqual(t, v, 1200.0)

		hot := d.Demand(35, rng)
		assert.GreaterOrEqual(t, hot, 1000.0)
		assert.LessOrEqual(t, hot, 1400.0)
	}
}

func TestDemand_NeverNegative(t *testing.T) {
	d := DemandModel{BaseLoadKWh: 10, VariationKWh: 100, HotThresholdC: 30}
	rng := newRNG(5)
	for i := 0; i < 500; i++ {
		assert.GreaterOrEqual(t, d.Demand(10, rng), 0.0)
	}
}

func TestDemand_Reproducible(t *testing.T) {
	d := DefaultDemandModel()
	a, b := newRNG(3), newRNG(3)
	for i := 0; i < 50; i++ {
		assert.Equal(t, d.Demand(5, a), d.Demand(5, b))
	}
}
