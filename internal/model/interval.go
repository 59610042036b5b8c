package model

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one instant. Adjacent intervals
// (aEnd == bStart) do not overlap, so a dropoff at 10:00 and a pickup
// at 10:00 for the same unit are legal back-to-back rentals. This is
// the canonical overlap test for the whole engine; no call site should
// enumerate range cases on its own.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
