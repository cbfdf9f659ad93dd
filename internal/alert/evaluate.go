package alert

import "github.com/smartegg/smartegg-core/internal/incubation"

// Evaluate compares a reading against th and returns one draft per
// violated rule, in this order: temperature, humidity, water.
//
// Bounds are inclusive, so a value equal to a bound is in range.
// The returned slice is never nil.
func Evaluate(r incubation.Reading, th incubation.Thresholds) []Draft {
	drafts := []Draft{}

	if r.Temperature < th.TempMin || r.Temperature > th.TempMax {
		v := FormatValue(r.Temperature)
		drafts = append(drafts, Draft{
			Type:     TypeTemperature,
			Severity: SeverityWarning,
			Title:    "Temperatura fuera de rango",
			Message:  "Temperatura actual: " + v + "°C",
			Value:    stringPtr(v),
		})
	}

	if r.Humidity < th.HumidityMin || r.Humidity > th.HumidityMax {
		v := FormatValue(r.Humidity)
		drafts = append(drafts, Draft{
			Type:     TypeHumidity,
			Severity: SeverityWarning,
			Title:    "Humedad fuera de rango",
			Message:  "Humedad actual: " + v + "%",
			Value:    stringPtr(v),
		})
	}

	if r.WaterLevel == incubation.WaterLow {
		drafts = append(drafts, Draft{
			Type:     TypeWater,
			Severity: SeverityCritical,
			Title:    "Nivel de agua bajo",
			Message:  "Se recomienda rellenar el depósito",
			Value:    stringPtr(string(incubation.WaterLow)),
		})
	}

	return drafts
}
