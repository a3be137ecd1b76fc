package solar

import "math"

// DaylightProfile holds the relative clear-sky irradiance for each hour.
type DaylightProfile struct {
	// HourlyFactor holds the normalized factor for each hour [0-23].
	// Peak hour = 1.0, hours outside [Sunrise, Sunset] = 0.
	HourlyFactor [24]float64
	PeakHour     int
	Sunrise      int
	Sunset       int
}

// DefaultProfile returns the 06:00-18:00 daylight window peaking at noon.
func DefaultProfile() DaylightProfile {
	return NewProfile(6, 18)
}

// NewProfile builds a bell-shaped profile centred between sunrise and sunset.
// Both ends of the window are daylight hours. Invalid windows yield a profile
// that is dark all day.
func NewProfile(sunrise, sunset int) DaylightProfile {
	p := DaylightProfile{Sunrise: sunrise, Sunset: sunset}
	if sunrise < 0 || sunset > 23 || sunrise > sunset {
		p.Sunrise, p.Sunset = 0, -1
		return p
	}

	centre := float64(sunrise+sunset) / 2
	half := float64(sunset-sunrise) / 2
	p.PeakHour = int(math.Round(centre))

	// Width chosen so the window edges sit at exp(-2) of the peak.
	width := half * half / 2
	for h := sunrise; h <= sunset; h++ {
		if width == 0 {
			p.HourlyFactor[h] = 1
			continue
		}
		dist := float64(h) - centre
		p.HourlyFactor[h] = math.Exp(-dist * dist / width)
	}

	// Normalize so the peak hour is exactly 1.0 even for odd-length windows.
	peak := p.HourlyFactor[p.PeakHour]
	if peak > 0 {
		for h := range p.HourlyFactor {
			p.HourlyFactor[h] /= peak
		}
	}
	return p
}

// IsDaylight reports whether hour lies inside the daylight window.
func (p DaylightProfile) IsDaylight(hour int) bool {
	return hour >= p.Sunrise && hour <= p.Sunset
}

// Factor returns the profile factor for a whole hour.
func (p DaylightProfile) Factor(hour int) float64 {
	if hour < 0 || hour > 23 || !p.IsDaylight(hour) {
		return 0
	}
	return p.HourlyFactor[hour]
}

// FactorAt returns the linearly interpolated factor for a fractional hour.
func (p DaylightProfile) FactorAt(hour float64) float64 {
	return interpolateProfile(p.HourlyFactor, hour)
}

// interpolateProfile returns linearly interpolated factor for a fractional hour.
func interpolateProfile(factors [24]float64, hour float64) float64 {
	// Wrap to [0, 24)
	hour = math.Mod(hour, 24)
	if hour < 0 {
		hour += 24
	}

	lo := int(math.Floor(hour)) % 24
	hi := (lo + 1) % 24
	frac := hour - math.Floor(hour)

	return factors[lo]*(1-frac) + factors[hi]*frac
}
