package pricing

import (
	"encoding/json"
	"strings"
	"time"

	"salon-booking/internal/domain/schedule"

	"github.com/google/uuid"
)

// Rules is the tenant's "pricing_rules" setting.
type Rules struct {
	PeakHours         []PeakRule    `json:"peakHours,omitempty"`
	OffPeakMultiplier *float64      `json:"offPeakMultiplier,omitempty"`
	Campaigns         []Campaign    `json:"campaigns,omitempty"`
	Coupons           []Coupon      `json:"coupons,omitempty"`
	Segments          []SegmentRule `json:"segments,omitempty"`
}

type PeakRule struct {
	// Weekday filters by day, 0 = Sunday. Nil matches every day.
	Weekday    *int    `json:"weekday,omitempty"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Multiplier float64 `json:"multiplier"`
}

func (r PeakRule) valid() bool {
	if r.Multiplier <= 0 || !schedule.IsClockTime(r.Start) {
		return false
	}
	if r.End != "24:00" && !schedule.IsClockTime(r.End) {
		return false
	}
	if r.Weekday != nil && (*r.Weekday < 0 || *r.Weekday > 6) {
		return false
	}
	return schedule.ToMinutes(r.Start) < schedule.ToMinutes(r.End)
}

func (r PeakRule) matches(date schedule.Date, startMin, endMin int) bool {
	if r.Weekday != nil && time.Weekday(*r.Weekday) != date.Weekday() {
		return false
	}
	return startMin >= schedule.ToMinutes(r.Start) && endMin <= schedule.ToMinutes(r.End)
}

type Campaign struct {
	ID      string      `json:"id"`
	ShopIDs []uuid.UUID `json:"shopIds,omitempty"`
	Active  bool        `json:"active"`
	// StartDate and EndDate are inclusive "YYYY-MM-DD" bounds on the booking date.
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Adjustment
}

func (c Campaign) appliesTo(shopID uuid.UUID, date schedule.Date) bool {
	if !c.Active {
		return false
	}
	if len(c.ShopIDs) > 0 {
		found := false
		for _, id := range c.ShopIDs {
			if id == shopID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.StartDate != "" {
		from, err := schedule.ParseDate(c.StartDate)
		if err != nil || date.Before(from) {
			return false
		}
	}
	if c.EndDate != "" {
		to, err := schedule.ParseDate(c.EndDate)
		if err != nil || date.After(to) {
			return false
		}
	}
	return true
}

type Coupon struct {
	Code      string     `json:"code"`
	Active    bool       `json:"active"`
	ValidFrom *time.Time `json:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
	Adjustment
}

func (c Coupon) usableAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return false
	}
	return true
}

type SegmentRule struct {
	Segment string `json:"segment"`
	Adjustment
}

// Context carries the optional client-side pricing selectors of a booking.
type Context struct {
	CampaignID      string `json:"campaignId,omitempty"`
	CouponCode      string `json:"couponCode,omitempty"`
	CustomerSegment string `json:"customerSegment,omitempty"`
}

func (c Context) IsZero() bool {
	return c == Context{}
}

// ParseRules decodes a stored rules document. Malformed entries are dropped
// rather than failing the whole document: peak rules need a positive multiplier
// and a non-empty "HH:mm" window, adjustments must validate, and a
// non-positive off-peak multiplier is ignored.
func ParseRules(raw []byte) (Rules, error) {
	var r Rules
	if err := json.Unmarshal(raw, &r); err != nil {
		return Rules{}, err
	}

	r.PeakHours = keepValid(r.PeakHours, PeakRule.valid)
	if r.OffPeakMultiplier != nil && *r.OffPeakMultiplier <= 0 {
		r.OffPeakMultiplier = nil
	}
	r.Campaigns = keepValid(r.Campaigns, func(c Campaign) bool { return c.Validate() == nil })
	r.Coupons = keepValid(r.Coupons, func(c Coupon) bool { return c.Validate() == nil })
	r.Segments = keepValid(r.Segments, func(s SegmentRule) bool { return s.Validate() == nil })
	return r, nil
}

func keepValid[T any](items []T, ok func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if ok(it) {
			out = append(out, it)
		}
	}
	return out
}

func (r Rules) findCampaign(id string) (Campaign, bool) {
	for _, c := range r.Campaigns {
		if c.ID == id {
			return c, true
		}
	}
	return Campaign{}, false
}

func (r Rules) findCoupon(code string) (Coupon, bool) {
	for _, c := range r.Coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Coupon{}, false
}

func (r Rules) findSegment(segment string) (SegmentRule, bool) {
	for _, s := range r.Segments {
		if s.Segment == segment {
			return s, true
		}
	}
	return SegmentRule{}, false
}
