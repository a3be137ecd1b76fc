package model

// WeatherSample is the weather for one simulation step.
type WeatherSample struct {
	TemperatureC       float64 `json:"temperature_c"`
	WindSpeedMs        float64 `json:"wind_speed_ms"`
	SolarIrradianceWm2 float64 `json:"solar_irradiance_wm2"`
	WaterFlow          float64 `json:"water_flow"`
	Month              int     `json:"month"` // 1-12
	Hour               int     `json:"hour"`  // 0-23
}
