package simulator

// Balance is the grid outcome of one step.
type Balance struct {
	NetEnergyKWh float64
	GridUsageKWh float64
	GridCost     float64
	Savings      float64
}

// GridBalancer settles the step's net energy against the battery and the grid.
type GridBalancer struct {
	CostPerKWh float64
}

// Balance charges the battery with any surplus, covers any deficit from the
// battery and then the grid, and prices the result. Savings are the grid cost
// avoided for the demand that generation and storage covered.
func (g GridBalancer) Balance(demandKWh, totalGenerationKWh float64, battery *Battery) Balance {
	net := totalGenerationKWh - demandKWh
	grid := battery.ChargeOrDischarge(net)

	return Balance{
		NetEnergyKWh: net,
		GridUsageKWh: grid,
		GridCost:     grid * g.CostPerKWh,
		Savings:      (demandKWh - grid) * g.CostPerKWh,
	}
}
