// Package agenda derives the appointment calendar view: month filtering,
// per-day grouping and ordering, and the visible day window. Everything here
// is a pure function of its inputs so results can be memoized safely.
package agenda

import (
	"sort"
	"time"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, bool) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func clockMinutes(timeStr string) (int, bool) {
	tm, err := time.Parse(ClockLayout, timeStr)
	if err != nil {
		return 0, false
	}
	return tm.Hour()*60 + tm.Minute(), true
}

// FilterByMonth keeps appointments whose date shares selected's calendar
// month and year. The comparison uses the date's own calendar fields, not a
// rolling 30-day window. Unparseable dates never match.
func FilterByMonth(appts []models.Appointment, selected time.Time, loc *time.Location) []models.Appointment {
	filtered := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		date, ok := ParseDate(a.Date, loc)
		if !ok {
			continue
		}
		if date.Year() == selected.Year() && date.Month() == selected.Month() {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// GroupByDay maps each appointment's literal date field to its day's agenda,
// each group sorted ascending by start time. The sort is stable: equal
// (date, startTime) pairs keep their incoming relative order.
func GroupByDay(appts []models.Appointment) map[string][]models.Appointment {
	groups := make(map[string][]models.Appointment)
	for _, a := range appts {
		groups[a.Date] = append(groups[a.Date], a)
	}
	for key := range groups {
		sortDay(groups[key])
	}
	return groups
}

func sortDay(day []models.Appointment) {
	sort.SliceStable(day, func(i, j int) bool {
		mi, iok := clockMinutes(day[i].StartTime)
		mj, jok := clockMinutes(day[j].StartTime)
		if iok && jok {
			return mi < mj
		}
		if iok != jok {
			// Parseable times sort before malformed ones.
			return iok
		}
		return day[i].StartTime < day[j].StartTime
	})
}

// DayKeys returns the group keys in ascending date order.
func DayKeys(groups map[string][]models.Appointment) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// VisibleDays lists min(7, daysCount) consecutive calendar days starting at
// selected truncated to midnight.
func VisibleDays(selected time.Time, daysCount int, loc *time.Location) []time.Time {
	if daysCount > 7 {
		daysCount = 7
	}
	if daysCount < 0 {
		daysCount = 0
	}
	start := time.Date(selected.Year(), selected.Month(), selected.Day(), 0, 0, 0, 0, loc)
	days := make([]time.Time, 0, daysCount)
	for i := 0; i < daysCount; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

type Day struct {
	Date         string               `json:"date"`
	Appointments []models.Appointment `json:"appointments"`
}

type View struct {
	SelectedDate string   `json:"selectedDate"`
	DaysCount    int      `json:"daysCount"`
	VisibleDays  []string `json:"visibleDays"`
	Days         []Day    `json:"days"`
}

// BuildView composes the month filter, grouping and window into the full
// agenda view. Identical inputs always yield an identical view.
func BuildView(appts []models.Appointment, selected time.Time, width int, loc *time.Location) View {
	daysCount := DaysCountForWidth(width)

	groups := GroupByDay(FilterByMonth(appts, selected, loc))
	days := make([]Day, 0, len(groups))
	for _, key := range DayKeys(groups) {
		days = append(days, Day{Date: key, Appointments: groups[key]})
	}

	visible := VisibleDays(selected, daysCount, loc)
	visibleKeys := make([]string, 0, len(visible))
	for _, d := range visible {
		visibleKeys = append(visibleKeys, d.Format(DateLayout))
	}

	return View{
		SelectedDate: selected.Format(DateLayout),
		DaysCount:    daysCount,
		VisibleDays:  visibleKeys,
		Days:         days,
	}
}
