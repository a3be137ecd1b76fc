package model

import "fmt"

type Source string

const (
	SourceHydro   Source = "hydro"
	SourceSolar   Source = "solar"
	SourceWind    Source = "wind"
	SourceBattery Source = "battery"
)

// GenerationSources lists the sources that produce energy, in display order.
var GenerationSources = []Source{SourceHydro, SourceSolar, SourceWind}

// SourceInfo holds display name and unit for a source.
type SourceInfo struct {
	Name string
	Unit string
}

// SourceCatalog maps every known Source to its display name and unit.
var SourceCatalog = map[Source]SourceInfo{
	SourceHydro:   {Name: "Hydroelectric", Unit: "kW"},
	SourceSolar:   {Name: "Solar", Unit: "kW"},
	SourceWind:    {Name: "Wind", Unit: "kW"},
	SourceBattery: {Name: "Battery", Unit: "kWh"},
}

// ParseSource converts a source name into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if _, ok := SourceCatalog[src]; !ok {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}
