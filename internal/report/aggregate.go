package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"citygrid/internal/model"
)

// Aggregate groups records into calendar buckets of the given period and
// returns one report per non-empty bucket, oldest first. It only reads its
// input, so repeated calls over the same records give identical reports.
func Aggregate(records []model.StepRecord, period model.Period) []model.Report {
	if len(records) == 0 {
		return nil
	}

	buckets := make(map[time.Time][]model.StepRecord)
	for _, r := range records {
		start := BucketStart(r.Timestamp, period)
		buckets[start] = append(buckets[start], r)
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	reports := make([]model.Report, 0, len(starts))
	for _, start := range starts {
		reports = append(reports, Summarize(buckets[start], period, start, BucketEnd(start, period)))
	}
	return reports
}

// Latest returns the report for the bucket holding the last record.
func Latest(records []model.StepRecord, period model.Period) (model.Report, bool) {
	if len(records) == 0 {
		return model.Report{}, false
	}

	start := BucketStart(records[len(records)-1].Timestamp, period)
	end := BucketEnd(start, period)
	var in []model.StepRecord
	for _, r := range records {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			in = append(in, r)
		}
	}
	return Summarize(in, period, start, end), true
}

// Summarize totals records into a single report covering [start, end).
func Summarize(records []model.StepRecord, period model.Period, start, end time.Time) model.Report {
	rep := model.Report{
		Period: period,
		Start:  start,
		End:    end,
		Steps:  len(records),
	}
	if len(records) == 0 {
		return rep
	}

	levels := make([]float64, len(records))
	temps := make([]float64, len(records))
	for i, r := range records {
		hours := stepHours(r)

		rep.TotalDemandKWh += r.DemandKWh
		rep.TotalHydroKWh += r.HydroKW * hours
		rep.TotalSolarKWh += r.SolarKW * hours
		rep.TotalWindKWh += r.WindKW * hours
		rep.TotalGenerationKWh += r.TotalGenerationKWh
		rep.TotalGridUsageKWh += r.GridUsageKWh
		rep.TotalCost += r.GridCost
		rep.TotalSavings += r.Savings

		levels[i] = r.BatteryLevelKWh
		temps[i] = r.Weather.TemperatureC
	}

	rep.AverageBatteryLevelKWh = stat.Mean(levels, nil)
	rep.AverageTemperatureC = stat.Mean(temps, nil)
	rep.EndHealthPercent = records[len(records)-1].BatteryHealthPercent
	return rep
}

// stepHours returns the record's step length, treating unset as hourly.
func stepHours(r model.StepRecord) float64 {
	if r.StepHours > 0 {
		return r.StepHours
	}
	return 1
}

// BucketStart returns the start of the period containing t. Weeks start on
// Monday.
func BucketStart(t time.Time, period model.Period) time.Time {
	switch period {
	case model.PeriodWeek:
		day := startOfDay(t)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.PeriodMonth:
		return startOfMonth(t)
	case model.PeriodYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return startOfDay(t)
	}
}

// BucketEnd returns the exclusive end of the bucket starting at start.
func BucketEnd(start time.Time, period model.Period) time.Time {
	switch period {
	case model.PeriodWeek:
		return start.AddDate(0, 0, 7)
	case model.PeriodMonth:
		return start.AddDate(0, 1, 0)
	case model.PeriodYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
