//go:build unit

package schedule_test

import (
	"testing"

	"salon-booking/internal/domain/schedule"

	"github.com/stretchr/testify/assert"
)

func window(open, close string) schedule.WorkingHoursWindow {
	return schedule.WorkingHoursWindow{
		OpenMinutes:  schedule.ToMinutes(open),
		CloseMinutes: schedule.ToMinutes(close),
	}
}

func TestIsWithinWorkingHours(t *testing.T) {
	cases := []struct {
		name    string
		start   string
		end     string
		windows []schedule.WorkingHoursWindow
		want    bool
	}{
		{
			name:    "open 24h admits anything",
			start:   "02:00",
			end:     "03:15",
			windows: []schedule.WorkingHoursWindow{window("09:00", "10:00"), {Open24h: true}},
			want:    true,
		},
		{
			name:    "inside single window",
			start:   "09:00",
			end:     "10:00",
			windows: []schedule.WorkingHoursWindow{window("09:00", "10:00")},
			want:    true,
		},
		{
			name:    "starts after close",
			start:   "10:30",
			end:     "11:00",
			windows: []schedule.WorkingHoursWindow{window("09:00", "10:00")},
			want:    false,
		},
		{
			name:    "overruns close",
			start:   "09:30",
			end:     "10:01",
			windows: []schedule.WorkingHoursWindow{window("09:00", "10:00")},
			want:    false,
		},
		{
			name:    "fits second split shift",
			start:   "14:00",
			end:     "15:00",
			windows: []schedule.WorkingHoursWindow{window("09:00", "12:00"), window("13:00", "18:00")},
			want:    true,
		},
		{
			name:    "spans the split gap",
			start:   "11:30",
			end:     "13:30",
			windows: []schedule.WorkingHoursWindow{window("09:00", "12:00"), window("13:00", "18:00")},
			want:    false,
		},
		{
			name:  "default window when no rows",
			start: "09:00",
			end:   "18:00",
			want:  true,
		},
		{
			name:  "outside default window when no rows",
			start: "17:30",
			end:   "18:30",
			want:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := schedule.IsWithinWorkingHours(schedule.ToMinutes(tc.start), schedule.ToMinutes(tc.end), tc.windows)
			assert.Equal(t, tc.want, got)
		})
	}
}
