package domain

import "time"

// PlanningDays is the length of the planning window: two weeks.
const PlanningDays = 14

// WeekStart returns the Monday of the week containing d.
func WeekStart(d Date) Date {
	t := d.Time()
	offset := (int(t.Weekday()) + 6) % 7
	return DateOf(t.AddDate(0, 0, -offset))
}

// PlanningWindow returns the fourteen days starting the Monday of the week
// that contains d.
func PlanningWindow(d Date) []Date {
	start := WeekStart(d)
	days := make([]Date, PlanningDays)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}
