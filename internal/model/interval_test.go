package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h int) time.Time {
	return time.Date(2026, 9, 1, h, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"disjoint", at(1), at(2), at(3), at(4), false},
		{"partial overlap", at(1), at(3), at(2), at(4), true},
		{"contained", at(1), at(6), at(2), at(3), true},
		{"identical", at(1), at(3), at(1), at(3), true},
		{"adjacent back-to-back", at(1), at(3), at(3), at(5), false},
		{"adjacent reversed", at(3), at(5), at(1), at(3), false},
		{"one instant apart", at(1), at(3), at(2), at(2).Add(time.Nanosecond), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// overlap is symmetric
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}
