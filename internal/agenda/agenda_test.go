package agenda

import (
	"reflect"
	"testing"
	"time"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func mustDate(t *testing.T, dateStr string, loc *time.Location) time.Time {
	date, ok := ParseDate(dateStr, loc)
	if !ok {
		t.Fatalf("parse date %q", dateStr)
	}
	return date
}

func appt(id, date, start string) models.Appointment {
	return models.Appointment{ID: id, Date: date, StartTime: start, Status: models.AppointmentStatusPending}
}

func TestFilterByMonthKeepsOnlyMatchingMonth(t *testing.T) {
	loc := mustLoadLoc(t)
	selected := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)
	appts := []models.Appointment{
		appt("a", "2026-03-01", "09:00"),
		appt("b", "2026-03-31", "10:00"),
		appt("c", "2026-02-28", "09:00"),
		appt("d", "2026-04-01", "09:00"),
		appt("e", "2025-03-15", "09:00"),
		appt("f", "not-a-date", "09:00"),
	}

	filtered := FilterByMonth(appts, selected, loc)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 appointments, got %d: %v", len(filtered), filtered)
	}
	if filtered[0].ID != "a" || filtered[1].ID != "b" {
		t.Fatalf("unexpected ids: %s, %s", filtered[0].ID, filtered[1].ID)
	}
}

func TestFilterByMonthUsesCalendarFieldsNotWindow(t *testing.T) {
	loc := mustLoadLoc(t)
	// Selected near month end; a 30-day window would pull in early April.
	selected := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
	appts := []models.Appointment{
		appt("march", "2026-03-02", "09:00"),
		appt("april", "2026-04-02", "09:00"),
	}

	filtered := FilterByMonth(appts, selected, loc)
	if len(filtered) != 1 || filtered[0].ID != "march" {
		t.Fatalf("expected only the march appointment, got %v", filtered)
	}
}

func TestGroupByDayEveryAppointmentAppearsOnce(t *testing.T) {
	appts := []models.Appointment{
		appt("a", "2026-03-01", "10:00"),
		appt("b", "2026-03-02", "09:00"),
		appt("c", "2026-03-01", "08:00"),
	}

	groups := GroupByDay(appts)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	total := 0
	for _, day := range groups {
		total += len(day)
	}
	if total != 3 {
		t.Fatalf("expected 3 appointments across groups, got %d", total)
	}
	if groups["2026-03-01"][0].ID != "c" || groups["2026-03-01"][1].ID != "a" {
		t.Fatalf("expected per-day sort by start time, got %v", groups["2026-03-01"])
	}
}

func TestGroupByDaySortIsStable(t *testing.T) {
	appts := []models.Appointment{
		appt("first", "2026-03-01", "09:00"),
		appt("second", "2026-03-01", "09:00"),
		appt("third", "2026-03-01", "09:00"),
	}

	day := GroupByDay(appts)["2026-03-01"]
	if day[0].ID != "first" || day[1].ID != "second" || day[2].ID != "third" {
		t.Fatalf("equal start times must keep insertion order, got %v", day)
	}
}

func TestGroupByDayMalformedTimesSortLast(t *testing.T) {
	appts := []models.Appointment{
		appt("bad", "2026-03-01", "whenever"),
		appt("good", "2026-03-01", "14:00"),
	}

	day := GroupByDay(appts)["2026-03-01"]
	if day[0].ID != "good" || day[1].ID != "bad" {
		t.Fatalf("parseable times should sort before malformed ones, got %v", day)
	}
}

func TestDayKeysAscending(t *testing.T) {
	groups := GroupByDay([]models.Appointment{
		appt("a", "2026-03-10", "09:00"),
		appt("b", "2026-03-02", "09:00"),
		appt("c", "2026-03-21", "09:00"),
	})

	keys := DayKeys(groups)
	want := []string{"2026-03-02", "2026-03-10", "2026-03-21"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
}

func TestVisibleDaysStartsAtMidnightAndIsConsecutive(t *testing.T) {
	loc := mustLoadLoc(t)
	selected := time.Date(2026, 3, 15, 17, 42, 9, 0, loc)

	days := VisibleDays(selected, 5, loc)
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}
	if days[0].Hour() != 0 || days[0].Minute() != 0 || days[0].Second() != 0 {
		t.Fatalf("first day not truncated to midnight: %v", days[0])
	}
	if days[0].Day() != 15 {
		t.Fatalf("window must start at the selected date, got %v", days[0])
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			t.Fatalf("days %d and %d are not consecutive: %v, %v", i-1, i, days[i-1], days[i])
		}
	}
}

func TestVisibleDaysTruncatesToSeven(t *testing.T) {
	loc := mustLoadLoc(t)
	selected := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	if got := len(VisibleDays(selected, 12, loc)); got != 7 {
		t.Fatalf("expected 7 days, got %d", got)
	}
	if got := len(VisibleDays(selected, 1, loc)); got != 1 {
		t.Fatalf("expected 1 day, got %d", got)
	}
}

func TestVisibleDaysCrossesMonthBoundary(t *testing.T) {
	loc := mustLoadLoc(t)
	selected := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
	days := VisibleDays(selected, 5, loc)
	if days[2].Month() != time.April || days[2].Day() != 1 {
		t.Fatalf("expected April 1 at index 2, got %v", days[2])
	}
}

func TestBuildViewDeterministic(t *testing.T) {
	loc := mustLoadLoc(t)
	selected := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)
	appts := []models.Appointment{
		appt("a", "2026-03-15", "10:00"),
		appt("b", "2026-03-15", "09:00"),
		appt("c", "2026-03-16", "11:00"),
		appt("d", "2026-04-01", "09:00"),
	}

	first := BuildView(appts, selected, 1200, loc)
	second := BuildView(appts, selected, 1200, loc)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different views")
	}

	if first.DaysCount != 5 {
		t.Fatalf("expected 5 visible days at width 1200, got %d", first.DaysCount)
	}
	if len(first.Days) != 2 {
		t.Fatalf("expected 2 agenda days (april filtered out), got %d", len(first.Days))
	}
	if first.Days[0].Appointments[0].ID != "b" {
		t.Fatalf("expected 09:00 appointment first, got %s", first.Days[0].Appointments[0].ID)
	}
}
