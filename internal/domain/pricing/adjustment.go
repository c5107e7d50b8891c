package pricing

import "errors"

var (
	ErrInvalidAdjustment = errors.New("adjustment must set exactly one of percentOff or amountOff")
	ErrInvalidPercent    = errors.New("percentOff must be between 0 and 100")
	ErrInvalidAmount     = errors.New("amountOff cannot be negative")
)

// Adjustment is either a percentage or a fixed amount taken off the running total.
type Adjustment struct {
	PercentOff *float64 `json:"percentOff,omitempty"`
	AmountOff  *float64 `json:"amountOff,omitempty"`
}

func (a Adjustment) IsPercentage() bool {
	return a.PercentOff != nil
}

func (a Adjustment) Validate() error {
	if (a.PercentOff == nil) == (a.AmountOff == nil) {
		return ErrInvalidAdjustment
	}
	if a.PercentOff != nil && (*a.PercentOff < 0 || *a.PercentOff > 100) {
		return ErrInvalidPercent
	}
	if a.AmountOff != nil && *a.AmountOff < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Apply returns the adjusted total, rounded to cents and floored at zero.
func (a Adjustment) Apply(current float64) float64 {
	var next float64
	switch {
	case a.PercentOff != nil:
		next = Round2(current * (1 - *a.PercentOff/100))
	case a.AmountOff != nil:
		next = Round2(current - *a.AmountOff)
	default:
		return current
	}
	if next < 0 {
		return 0
	}
	return next
}
