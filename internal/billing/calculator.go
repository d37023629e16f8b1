package billing

import (
	"context"
	"fmt"

	"github.com/ordergrid/ordergrid/internal/models"
)

// DefaultPeriodDays is the billing period length used for proration when
// the caller does not supply one.
const DefaultPeriodDays = 30

// Charge breaks down a subscription charge for one billing period.
type Charge struct {
	BasePrice     float64 `json:"base_price"`     // Plan base price for the cadence.
	OverageCount  int     `json:"overage_count"`  // Active locations beyond the included limit.
	OveragePrice  float64 `json:"overage_price"`  // Per-location overage price for the cadence.
	OverageCharge float64 `json:"overage_charge"` // OverageCount times OveragePrice.
	Total         float64 `json:"total"`          // Base plus overage.
	Yearly        bool    `json:"yearly"`         // Billing cadence.
}

// LimitCheck reports how a business's active locations compare to its
// plan limit.
type LimitCheck struct {
	WithinLimit     bool         `json:"within_limit"`               // Whether active locations fit the included limit.
	ActiveLocations int          `json:"active_locations"`           // Current billing-active location count.
	LocationLimit   int          `json:"location_limit"`             // Included locations (-1 means unlimited).
	Overage         int          `json:"overage"`                    // Locations beyond the limit.
	RecommendedPlan *models.Plan `json:"recommended_plan,omitempty"` // Next tier that fits, when over.
}

// Proration breaks down a mid-period plan change.
type Proration struct {
	Credit float64 `json:"credit"` // Unused portion of the old plan.
	Charge float64 `json:"charge"` // Remaining-period portion of the new plan.
	Net    float64 `json:"net"`    // Charge minus credit; negative means a refund.
}

// ActivationCheck is the outcome of a location activation request.
// Activation is never blocked by the plan limit; going over simply incurs
// overage charges, so the check permits and warns.
type ActivationCheck struct {
	Allowed       bool    `json:"allowed"`                  // Always true.
	OverLimit     bool    `json:"over_limit"`               // Whether the activation exceeds the included limit.
	OverageCharge float64 `json:"overage_charge,omitempty"` // Estimated extra charge for the cadence.
	Warning       string  `json:"warning,omitempty"`        // Human-readable overage warning.
}

// Calculator computes subscription charges and plan limit checks.
type Calculator struct {
	catalog Catalog
}

// NewCalculator constructs a Calculator backed by the given catalog.
func NewCalculator(catalog Catalog) *Calculator {
	return &Calculator{catalog: catalog}
}

// Overage returns how many active locations exceed the plan's included
// limit. Unlimited plans never have overage.
func Overage(plan *models.Plan, activeLocations int) int {
	if plan.Unlimited() {
		return 0
	}
	over := activeLocations - plan.LocationLimit
	if over < 0 {
		return 0
	}
	return over
}

// CalculateBillingAmount computes the charge for one billing period:
// the plan base price plus per-location overage for every active
// location beyond the included limit. The yearly overage price is its
// own plan field, not twelve monthly charges.
func CalculateBillingAmount(plan *models.Plan, activeLocations int, yearly bool) Charge {
	over := Overage(plan, activeLocations)
	base := plan.BasePrice(yearly)
	overagePrice := plan.OveragePrice(yearly)
	overageCharge := float64(over) * overagePrice
	return Charge{
		BasePrice:     base,
		OverageCount:  over,
		OveragePrice:  overagePrice,
		OverageCharge: overageCharge,
		Total:         base + overageCharge,
		Yearly:        yearly,
	}
}

// CheckPlanLimits compares the active location count to the plan limit
// and, when over, recommends the next tier whose limit fits the current
// count. Tiers are ordered by SortOrder; an unlimited tier always fits.
func (calc *Calculator) CheckPlanLimits(ctx context.Context, plan *models.Plan, activeLocations int) (LimitCheck, error) {
	over := Overage(plan, activeLocations)
	check := LimitCheck{
		WithinLimit:     over == 0,
		ActiveLocations: activeLocations,
		LocationLimit:   plan.LocationLimit,
		Overage:         over,
	}
	if over == 0 {
		return check, nil
	}

	plans, errPlans := calc.catalog.Plans(ctx)
	if errPlans != nil {
		return check, errPlans
	}
	for i := range plans {
		candidate := plans[i]
		if candidate.SortOrder <= plan.SortOrder {
			continue
		}
		if candidate.Unlimited() || candidate.LocationLimit >= activeLocations {
			check.RecommendedPlan = &candidate
			break
		}
	}
	return check, nil
}

// CalculateProration computes the credit and charge for a mid-period
// plan change. The unused fraction of the period is daysRemaining over
// periodDays; a non-positive periodDays falls back to the default
// 30-day period, and daysRemaining is clamped into [0, periodDays].
func CalculateProration(oldPrice, newPrice float64, daysRemaining, periodDays int) Proration {
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > periodDays {
		daysRemaining = periodDays
	}

	fraction := float64(daysRemaining) / float64(periodDays)
	credit := oldPrice * fraction
	charge := newPrice * fraction
	return Proration{
		Credit: credit,
		Charge: charge,
		Net:    charge - credit,
	}
}

// ValidateLocationActivation checks what activating one more location
// would cost. The activation is always permitted; when it would push the
// business past the included limit the check carries the estimated
// overage charge and a warning.
func ValidateLocationActivation(plan *models.Plan, currentActive int, yearly bool) ActivationCheck {
	check := ActivationCheck{Allowed: true}
	if plan.Unlimited() {
		return check
	}
	if currentActive+1 <= plan.LocationLimit {
		return check
	}
	check.OverLimit = true
	check.OverageCharge = plan.OveragePrice(yearly)
	check.Warning = fmt.Sprintf(
		"activating this location exceeds the %d included locations and adds %.2f per billing period",
		plan.LocationLimit, check.OverageCharge,
	)
	return check
}
