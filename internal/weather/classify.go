package weather

import (
	"sort"
	"time"

	"weather_alerts/internal/model"
)

// Categorize maps a numeric condition code to its severity category.
func Categorize(code int) model.Category {
	switch {
	case code >= 200 && code < 300:
		return model.CategoryThunderstorm
	case code >= 300 && code < 400:
		return model.CategoryDrizzle
	case code >= 500 && code < 600:
		return model.CategoryRain
	case code >= 600 && code < 700:
		return model.CategorySnow
	default:
		return model.CategoryOther
	}
}

// Classify reduces a forecast into the severe categories found within
// horizonHours of nowUTC. Samples arrive in chronological order, so the scan
// stops at the first sample past the horizon. Sample times are converted to
// the location's local time using the provider's fixed UTC offset.
func Classify(resp *ForecastResponse, nowUTC time.Time, horizonHours int) model.Severity {
	limit := nowUTC.Add(time.Duration(horizonHours) * time.Hour)
	offset := time.Duration(resp.City.TimezoneOffsetSec) * time.Second

	severity := model.Severity{}
	for _, sample := range resp.List {
		t := time.Unix(sample.Dt, 0).UTC()
		if t.After(limit) {
			break
		}
		hhmm := t.Add(offset).Format("15:04")

		for _, cond := range sample.Weather {
			cat := Categorize(cond.ID)
			if cat == model.CategoryOther {
				continue
			}
			if !contains(severity[cat], hhmm) {
				severity[cat] = append(severity[cat], hhmm)
			}
		}
	}

	for _, times := range severity {
		sort.Strings(times)
	}
	return severity
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
