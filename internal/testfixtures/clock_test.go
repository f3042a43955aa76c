package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAtAdvanceAndToday(t *testing.T) {
	clock := ClockAt("2024-03-14 23:30")

	updated := clock.Advance(45 * time.Minute)
	if want := time.Date(2024, time.March, 15, 0, 15, 0, 0, time.UTC); !updated.Equal(want) {
		t.Fatalf("advance returned %v, want %v", updated, want)
	}
	if want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC); !clock.Today().Equal(want) {
		t.Fatalf("Today = %v, want %v", clock.Today(), want)
	}

	nowFn := clock.NowFunc()
	clock.Set(ReferenceTime())
	if got := nowFn(); !got.Equal(ReferenceTime()) {
		t.Fatalf("NowFunc must follow Set, got %v", got)
	}
}

func TestClockAtPanicsOnMalformedTimestamp(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	ClockAt("14/03/2024")
}
