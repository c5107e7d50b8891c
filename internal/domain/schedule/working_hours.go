package schedule

// WorkingHoursWindow is one opening window of a shop on a weekday.
// Several windows on the same weekday model split shifts.
type WorkingHoursWindow struct {
	OpenMinutes  int
	CloseMinutes int
	Open24h      bool
}

// DefaultWorkingHours applies when a weekday has no window rows at all.
var DefaultWorkingHours = WorkingHoursWindow{OpenMinutes: 9 * 60, CloseMinutes: 18 * 60}

func (w WorkingHoursWindow) Contains(startMin, endMin int) bool {
	if w.Open24h {
		return true
	}
	return startMin >= w.OpenMinutes && endMin <= w.CloseMinutes
}

// IsWithinWorkingHours reports whether [startMin, endMin] fits into at least one window.
func IsWithinWorkingHours(startMin, endMin int, windows []WorkingHoursWindow) bool {
	if len(windows) == 0 {
		return DefaultWorkingHours.Contains(startMin, endMin)
	}
	for _, w := range windows {
		if w.Open24h {
			return true
		}
	}
	for _, w := range windows {
		if w.Contains(startMin, endMin) {
			return true
		}
	}
	return false
}
