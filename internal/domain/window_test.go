package domain

import (
	"testing"
	"time"
)

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 11, 9, 0, 0, 1, 0, time.UTC)
	b := time.Date(2025, 11, 9, 23, 59, 59, 0, time.UTC)
	c := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)

	if !SameDay(a, b) {
		t.Errorf("expected %v and %v to share a calendar day", a, b)
	}
	if SameDay(b, c) {
		t.Errorf("expected %v and %v to be different calendar days", b, c)
	}
}

func TestWithinDaySlack(t *testing.T) {
	base := time.Date(2025, 11, 9, 22, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"same day", time.Date(2025, 11, 9, 1, 0, 0, 0, time.UTC), true},
		{"next day", time.Date(2025, 11, 10, 23, 0, 0, 0, time.UTC), true},
		{"two days later", time.Date(2025, 11, 11, 0, 0, 0, 0, time.UTC), false},
		{"day before", time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		if got := WithinDaySlack(base, tc.t, 1); got != tc.want {
			t.Errorf("%s: WithinDaySlack = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDeliveryMatchRange(t *testing.T) {
	policy := DefaultWindowPolicy()
	ts := time.Date(2025, 11, 9, 14, 23, 15, 0, time.UTC)

	from, to := policy.DeliveryMatchRange(ts)
	if want := ts.Add(-2 * time.Hour); !from.Equal(want) {
		t.Errorf("range start = %v, want %v", from, want)
	}
	if want := ts.Add(24 * time.Hour); !to.Equal(want) {
		t.Errorf("range end = %v, want %v", to, want)
	}
}

func TestDateWindowContains(t *testing.T) {
	w := DateWindow{
		From: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 11, 30, 23, 59, 59, 0, time.UTC),
	}

	if !w.Contains(w.From) || !w.Contains(w.To) {
		t.Errorf("window bounds should be inclusive")
	}
	if w.Contains(w.To.Add(time.Second)) {
		t.Errorf("window should exclude instants past To")
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name   string
		result VerificationResult
		want   OverallStatus
	}{
		{"nothing matched", VerificationResult{Created: true}, StatusPending},
		{"submitted only", VerificationResult{Created: true, Submitted: true}, StatusPartial},
		{"submitted and verified", VerificationResult{Created: true, Submitted: true, Verified: true}, StatusPartial},
		{"delivered ok", VerificationResult{Created: true, Submitted: true, Delivered: true, DeliveryStatus: StatusDelivered}, StatusSuccess},
		{"delivered failed", VerificationResult{Created: true, Submitted: true, Delivered: true, DeliveryStatus: StatusFailed}, StatusFailure},
	}

	for _, tc := range cases {
		tc.result.DeriveStatus()
		if tc.result.OverallStatus != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.name, tc.result.OverallStatus, tc.want)
		}
	}
}
