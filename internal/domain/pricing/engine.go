package pricing

import (
	"time"

	"salon-booking/internal/domain/schedule"

	"github.com/google/uuid"
)

type Input struct {
	ShopID    uuid.UUID
	Date      schedule.Date
	StartMin  int
	EndMin    int
	BaseTotal float64
	Context   Context
	// Now is the evaluation instant for coupon validity windows.
	Now time.Time
}

type Stage string

const (
	StagePeak     Stage = "peak"
	StageOffPeak  Stage = "off_peak"
	StageCampaign Stage = "campaign"
	StageCoupon   Stage = "coupon"
	StageSegment  Stage = "segment"
)

type Quote struct {
	BaseTotal float64
	Total     float64
	Applied   []Stage
}

// Quote runs the stages in fixed order, each on the running total of the
// previous one: peak or off-peak, campaign, coupon, segment.
func (r Rules) Quote(in Input) Quote {
	q := Quote{BaseTotal: Round2(in.BaseTotal)}
	current := in.BaseTotal

	peaked := false
	for _, rule := range r.PeakHours {
		if rule.matches(in.Date, in.StartMin, in.EndMin) {
			current = Round2(current * rule.Multiplier)
			q.Applied = append(q.Applied, StagePeak)
			peaked = true
			break
		}
	}
	if !peaked && r.OffPeakMultiplier != nil && *r.OffPeakMultiplier != 1 {
		current = Round2(current * *r.OffPeakMultiplier)
		q.Applied = append(q.Applied, StageOffPeak)
	}
	if current < 0 {
		current = 0
	}

	if id := in.Context.CampaignID; id != "" {
		if c, ok := r.findCampaign(id); ok && c.appliesTo(in.ShopID, in.Date) {
			current = c.Apply(current)
			q.Applied = append(q.Applied, StageCampaign)
		}
	}

	if code := in.Context.CouponCode; code != "" {
		if c, ok := r.findCoupon(code); ok && c.usableAt(in.Now) {
			current = c.Apply(current)
			q.Applied = append(q.Applied, StageCoupon)
		}
	}

	if seg := in.Context.CustomerSegment; seg != "" {
		if s, ok := r.findSegment(seg); ok {
			current = s.Apply(current)
			q.Applied = append(q.Applied, StageSegment)
		}
	}

	q.Total = Round2(current)
	return q
}

// Identity quotes the base total unchanged.
func Identity(in Input) Quote {
	return Rules{}.Quote(in)
}
