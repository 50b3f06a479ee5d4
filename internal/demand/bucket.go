package demand

import (
	"fmt"
	"time"
)

// Bounds accepted for a bucket schedule.
const (
	MinBucketMinutes = 5
	MaxBucketMinutes = 60
	MinHorizonHours  = 1
	MaxHorizonHours  = 12

	DefaultBucketMinutes = 15
	DefaultHorizonHours  = 4
)

// TimeBucket is one half-open interval [Start, End) of a schedule.
type TimeBucket struct {
	Index int
	Start time.Time
	End   time.Time
}

// Schedule is a contiguous run of equal-width buckets anchored at Now.
type Schedule struct {
	Now     time.Time
	Width   time.Duration
	Buckets []TimeBucket
}

// ValidateBounds checks bucket width and horizon against the accepted ranges.
func ValidateBounds(bucketMinutes, horizonHours int) error {
	if bucketMinutes < MinBucketMinutes || bucketMinutes > MaxBucketMinutes {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("bucket_minutes must be between %d and %d", MinBucketMinutes, MaxBucketMinutes)}
	}
	if horizonHours < MinHorizonHours || horizonHours > MaxHorizonHours {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("horizon_hours must be between %d and %d", MinHorizonHours, MaxHorizonHours)}
	}
	return nil
}

// NewSchedule lays out ceil(horizon/width) buckets starting at now. The
// caller is expected to have validated the bounds.
func NewSchedule(now time.Time, bucketMinutes, horizonHours int) Schedule {
	width := time.Duration(bucketMinutes) * time.Minute
	horizonMinutes := horizonHours * 60
	count := (horizonMinutes + bucketMinutes - 1) / bucketMinutes

	s := Schedule{
		Now:     now,
		Width:   width,
		Buckets: make([]TimeBucket, count),
	}
	for i := range s.Buckets {
		start := now.Add(time.Duration(i) * width)
		s.Buckets[i] = TimeBucket{Index: i, Start: start, End: start.Add(width)}
	}
	return s
}

// End is the exclusive end of the last bucket.
func (s Schedule) End() time.Time {
	return s.Now.Add(time.Duration(len(s.Buckets)) * s.Width)
}

// Len is the number of buckets.
func (s Schedule) Len() int {
	return len(s.Buckets)
}

// Index returns the bucket that t falls into, or false when t lies outside
// [Now, End).
func (s Schedule) Index(t time.Time) (int, bool) {
	if t.Before(s.Now) || !t.Before(s.End()) || s.Width <= 0 {
		return 0, false
	}
	return int(t.Sub(s.Now) / s.Width), true
}
