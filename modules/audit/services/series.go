package services

import "time"

// DailyCount is one point of a dense daily series.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// HourlyCount is one bucket of a 24-hour histogram.
type HourlyCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// denseDaily expands a sparse per-day map into an ascending series covering
// every UTC date from `from` through `to` inclusive, zero-filling gaps.
// Charting code depends on the series having no holes.
func denseDaily(counts map[time.Time]int64, from, to time.Time) []DailyCount {
	start := truncateToDay(from)
	end := truncateToDay(to)
	if end.Before(start) {
		return []DailyCount{}
	}
	series := make([]DailyCount, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		series = append(series, DailyCount{Date: day, Count: counts[day]})
	}
	return series
}

// denseHourly expands a sparse per-hour map into all 24 buckets.
func denseHourly(counts map[int]int64) []HourlyCount {
	series := make([]HourlyCount, 24)
	for hour := 0; hour < 24; hour++ {
		series[hour] = HourlyCount{Hour: hour, Count: counts[hour]}
	}
	return series
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayWindow returns the [from, to] range covering the last `days` days up to
// now, inclusive of today.
func dayWindow(days int) (time.Time, time.Time) {
	now := time.Now().UTC()
	return truncateToDay(now.AddDate(0, 0, -(days - 1))), now
}
