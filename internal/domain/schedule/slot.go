package schedule

import (
	"errors"
	"time"
)

var (
	ErrInvalidStartTime = errors.New("start time must be HH:mm")
	ErrEmptyDuration    = errors.New("slot must have a positive duration")
	ErrPastMidnight     = errors.New("slot must end by 24:00 on the booking date")
)

// Slot is a booking interval on one calendar date, held both as shop-local
// minute-of-day values and as absolute instants.
type Slot struct {
	date     Date
	startMin int
	endMin   int
	startAt  time.Time
	endAt    time.Time
}

func NewSlot(date Date, startTime string, durations []int, loc *time.Location) (Slot, error) {
	if date.IsZero() {
		return Slot{}, ErrInvalidDate
	}
	if !IsClockTime(startTime) {
		return Slot{}, ErrInvalidStartTime
	}

	startMin := ToMinutes(startTime)
	endMin := ToMinutes(ComputeEnd(startTime, durations))
	if endMin <= startMin {
		return Slot{}, ErrEmptyDuration
	}
	if endMin > MinutesPerDay {
		return Slot{}, ErrPastMidnight
	}

	return Slot{
		date:     date,
		startMin: startMin,
		endMin:   endMin,
		startAt:  date.At(startMin, loc),
		endAt:    date.At(endMin, loc),
	}, nil
}

// ReconstructSlot rebuilds a slot from persisted values without validation.
func ReconstructSlot(date Date, startTime, endTime string, startAt, endAt time.Time) Slot {
	return Slot{
		date:     date,
		startMin: ToMinutes(startTime),
		endMin:   ToMinutes(endTime),
		startAt:  startAt,
		endAt:    endAt,
	}
}

func (s Slot) Date() Date {
	return s.date
}

func (s Slot) StartMinutes() int {
	return s.startMin
}

func (s Slot) EndMinutes() int {
	return s.endMin
}

func (s Slot) StartTime() string {
	return FromMinutes(s.startMin)
}

func (s Slot) EndTime() string {
	return FromMinutes(s.endMin)
}

func (s Slot) StartAt() time.Time {
	return s.startAt
}

func (s Slot) EndAt() time.Time {
	return s.endAt
}

func (s Slot) DurationMinutes() int {
	return s.endMin - s.startMin
}

func (s Slot) FitsWorkingHours(windows []WorkingHoursWindow) bool {
	return IsWithinWorkingHours(s.startMin, s.endMin, windows)
}
