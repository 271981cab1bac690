package calendar

import (
	"errors"
	"time"

	"github.com/jinzhu/now"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange: интервал выборки [Start, End], обе границы включительно.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// NormalizeTimeRange нормализует интервал:
//   - меняет местами границы, если они перепутаны;
//   - переводит в заданный часовой пояс loc;
//   - при превышении maxDuration обрезает интервал до start+maxDuration.
//
// Если maxDuration <= 0, ограничение по длительности не применяется.
func NormalizeTimeRange(
	start, end time.Time,
	loc *time.Location,
	maxDuration time.Duration,
) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}

	// Перестановка границ при необходимости.
	if end.Before(start) {
		start, end = end, start
	}

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	if maxDuration > 0 && end.Sub(start) > maxDuration {
		end = start.Add(maxDuration)
	}

	return TimeRange{Start: start, End: end}, nil
}

// MonthRange возвращает календарный месяц t: от первой до последней наносекунды.
func MonthRange(t time.Time) TimeRange {
	n := now.With(t)
	return TimeRange{Start: n.BeginningOfMonth(), End: n.EndOfMonth()}
}

// DayRange расширяет интервал до целых суток.
func DayRange(start, end time.Time) TimeRange {
	return TimeRange{Start: now.With(start).BeginningOfDay(), End: now.With(end).EndOfDay()}
}

// ParseBound разбирает границу интервала: RFC3339 или дата YYYY-MM-DD.
// Для даты без времени upper=true даёт конец суток, иначе начало.
func ParseBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	day := DayRange(d, d)
	if upper {
		return day.End, nil
	}
	return day.Start, nil
}
