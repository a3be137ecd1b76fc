package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"citygrid/internal/config"
	"citygrid/internal/model"
	"citygrid/internal/report"
	"citygrid/internal/simulator"
)

type result struct {
	capacity float64
	summary  model.Report
	battery  model.BatteryState
}

func main() {
	configPath := flag.String("config", "", "path to config file for the base capacities")
	capsFlag := flag.String("capacities", "0,5,10,25,50,100,200", "comma-separated battery capacities in kWh")
	days := flag.Int("days", 365, "number of simulated days per capacity")
	seed := flag.Uint64("seed", 0, "weather and demand seed (0 uses the configured seed)")
	flag.Parse()

	if *days <= 0 {
		log.Fatalf("Invalid days %d: must be positive", *days)
	}

	capacities, err := parseCapacities(*capsFlag)
	if err != nil {
		log.Fatalf("Invalid capacities %q: %v", *capsFlag, err)
	}
	sort.Float64s(capacities)

	cnfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	opts, err := cnfg.EngineOptions()
	if err != nil {
		log.Fatalf("Invalid simulation options: %v", err)
	}
	if *seed != 0 {
		opts.Seed = *seed
	}

	results := make([]result, 0, len(capacities))
	for _, c := range capacities {
		r, err := simulate(cnfg.CapacityConfig(), opts, c, *days)
		if err != nil {
			log.Fatalf("Simulating %.1f kWh: %v", c, err)
		}
		results = append(results, r)
		fmt.Fprintf(os.Stderr, "  %.1f kWh done\n", c)
	}

	printTable(os.Stdout, results, opts.Seed, *days)
}

// simulate runs days of simulation with the battery resized to capacity.
// The same seed yields the same weather and demand for every capacity.
func simulate(base model.CapacityConfig, opts simulator.Options, capacity float64, days int) (result, error) {
	cfg := base
	cfg.BatteryCapacityKWh = capacity
	cfg.InitialBatteryKWh = min(cfg.InitialBatteryKWh, capacity)
	cfg.Enabled.Battery = capacity > 0

	e, err := simulator.New(cfg, opts)
	if err != nil {
		return result{}, err
	}

	start := e.Now()
	steps := days * e.Clock().StepsPerDay()
	for range steps {
		if _, err := e.Advance(); err != nil {
			return result{}, err
		}
	}

	return result{
		capacity: capacity,
		summary:  report.Summarize(e.Log(), model.PeriodYear, start, e.Now()),
		battery:  e.Battery(),
	}, nil
}

func printTable(w io.Writer, results []result, seed uint64, days int) {
	if len(results) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Battery Size Comparison")
	fmt.Fprintf(w, "  Seed: %d, Days: %d\n", seed, days)
	fmt.Fprintf(w, "  Demand: %s kWh, Generation: %s kWh\n",
		report.KWh(results[0].summary.TotalDemandKWh), report.KWh(results[0].summary.TotalGenerationKWh))
	fmt.Fprintln(w)

	fmt.Fprintf(w, " %10s │ %14s │ %12s │ %12s │ %8s │ %7s │ %12s\n",
		"Capacity", "Grid Usage", "Grid Cost", "Savings", "Cycles", "Health", "Marginal")
	fmt.Fprintln(w, "────────────┼────────────────┼──────────────┼──────────────┼──────────┼─────────┼─────────────")

	for i, r := range results {
		marginal := "-"
		if i > 0 {
			if m, ok := marginalSavings(results[i-1], r); ok {
				marginal = report.Money(m) + "/kWh"
			}
		}

		fmt.Fprintf(w, " %6.1f kWh │ %10s kWh │ %12s │ %12s │ %8d │ %6.2f%% │ %12s\n",
			r.capacity,
			report.KWh(r.summary.TotalGridUsageKWh),
			report.Money(r.summary.TotalCost),
			report.Money(r.summary.TotalSavings),
			r.battery.CycleCount,
			r.battery.HealthPercent,
			marginal,
		)
	}
	fmt.Fprintln(w)
}

// marginalSavings is the extra savings per added kWh of capacity.
func marginalSavings(prev, cur result) (float64, bool) {
	dCap := cur.capacity - prev.capacity
	if dCap <= 0 {
		return 0, false
	}
	return (cur.summary.TotalSavings - prev.summary.TotalSavings) / dCap, true
}

func parseCapacities(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	caps := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("capacity must not be negative, got %v", v)
		}
		caps = append(caps, v)
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("no capacities specified")
	}
	return caps, nil
}
