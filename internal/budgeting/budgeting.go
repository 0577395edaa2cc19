// Package budgeting holds the date-window and reconciliation rules shared by
// the budget, totals and report services. Nothing here touches storage.
package budgeting

import (
	"time"

	"github.com/shopspring/decimal"

	"spendtrack/internal/models"
)

// Window is a closed time interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two closed windows intersect. Touching endpoints
// count as an overlap.
func (w Window) Overlaps(other Window) bool {
	return !w.Start.After(other.End) && !w.End.Before(other.Start)
}

// Contains reports whether t falls inside the window, both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Valid reports whether End is not before Start.
func (w Window) Valid() bool {
	return !w.End.Before(w.Start)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// MonthWindow returns the calendar month containing now, from the first day
// at 00:00 to the last day at 23:59:59.999.
func MonthWindow(now time.Time) Window {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := start.AddDate(0, 1, -1)
	return Window{Start: start, End: EndOfDay(last)}
}

// DayWindow stretches [start, end] so the end day is covered in full.
func DayWindow(start, end time.Time) Window {
	return Window{Start: start, End: EndOfDay(end)}
}

// BeforeDay reports whether t's calendar date is strictly before today's,
// ignoring time of day. Both dates are compared in today's location.
func BeforeDay(t, today time.Time) bool {
	t = t.In(today.Location())
	return StartOfDay(t).Before(StartOfDay(today))
}

// Reconcile recomputes the derived fields of a budget from the sum of its
// matching expenses. It reports whether the budget has just become
// overspent so callers can emit a notification on the transition.
func Reconcile(b *models.Budget, total decimal.Decimal, now time.Time) (becameOverspent bool) {
	wasOverspent := b.IsOverspent

	b.TotalExpenses = total
	b.IsOverspent = total.GreaterThan(b.Amount)
	b.IsActive = !now.After(b.EndDate)

	return b.IsOverspent && !wasOverspent
}
