package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const MinutesPerDay = 24 * 60

var clockTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// IsClockTime reports whether s is a strict "HH:mm" wall-clock value.
func IsClockTime(s string) bool {
	return clockTimeRegex.MatchString(s)
}

// ToMinutes converts "HH:mm" into minutes since midnight.
// Parsing is lenient: a part that is not a number counts as 0.
func ToMinutes(hhmm string) int {
	h, m, _ := strings.Cut(hhmm, ":")
	return atoiOrZero(h)*60 + atoiOrZero(m)
}

// FromMinutes is the inverse of ToMinutes and zero-pads both parts.
func FromMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ComputeEnd returns start plus the sum of durations. An empty list yields start.
func ComputeEnd(start string, durations []int) string {
	total := ToMinutes(start)
	for _, d := range durations {
		total += d
	}
	return FromMinutes(total)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
