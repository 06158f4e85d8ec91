package domain

import "time"

// WindowPolicy names the time-window constants that encode delivery policy.
// The values are product policy, not implementation detail, so they are
// loaded from configuration with these defaults.
type WindowPolicy struct {
	// DeliveryPreWindow is how far before a notice's timestamp a delivery
	// outcome may land and still be matched to it.
	DeliveryPreWindow time.Duration
	// DeliveryPostWindow is how far after a notice's timestamp a delivery
	// outcome may land and still be matched to it.
	DeliveryPostWindow time.Duration
	// SilentSuccessCutoff is how long the vendor gets to report a failure
	// before silence is read as success.
	SilentSuccessCutoff time.Duration
	// VerificationSlackDays absorbs export-timing offsets when pairing
	// submissions with verification rows (same day plus this many days).
	VerificationSlackDays int
	// BucketCap limits each mismatch bucket to this many returned rows.
	BucketCap int
}

// DefaultWindowPolicy returns the vendor-contract defaults.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		DeliveryPreWindow:     2 * time.Hour,
		DeliveryPostWindow:    24 * time.Hour,
		SilentSuccessCutoff:   24 * time.Hour,
		VerificationSlackDays: 1,
		BucketCap:             50,
	}
}

// DeliveryMatchRange returns the [from, to] range a delivery outcome must
// fall in to be matched to a notice stamped at ts.
func (p WindowPolicy) DeliveryMatchRange(ts time.Time) (time.Time, time.Time) {
	return ts.Add(-p.DeliveryPreWindow), ts.Add(p.DeliveryPostWindow)
}

// DateWindow is a caller-supplied inclusive time range. Callers keep windows
// small enough to bound result-set size; the core does not paginate beyond
// the explicit bucket caps.
type DateWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window (inclusive).
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Day truncates t to its calendar day in t's location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey renders t's calendar day as a map key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// WithinDaySlack reports whether t falls on base's calendar day or at most
// slackDays calendar days after it.
func WithinDaySlack(base, t time.Time, slackDays int) bool {
	d := Day(t)
	from := Day(base)
	to := from.AddDate(0, 0, slackDays)
	return !d.Before(from) && !d.After(to)
}
