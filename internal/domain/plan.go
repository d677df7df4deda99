package domain

import "time"

// Plan is an entry of the static plan table.
type Plan struct {
	Type           PlanType `json:"plan_type"`
	PriceMinor     int64    `json:"price_minor"`
	Currency       string   `json:"currency"`
	DurationMonths int      `json:"duration_months"`
}

// plans is the immutable plan table. Changing it requires a redeploy.
var plans = map[PlanType]Plan{
	Plan3Months: {Type: Plan3Months, PriceMinor: 150000, Currency: "IDR", DurationMonths: 3},
	Plan6Months: {Type: Plan6Months, PriceMinor: 275000, Currency: "IDR", DurationMonths: 6},
	Plan1Year:   {Type: Plan1Year, PriceMinor: 500000, Currency: "IDR", DurationMonths: 12},
}

// LookupPlan returns the plan for t and whether it exists.
func LookupPlan(t PlanType) (Plan, bool) {
	p, ok := plans[t]
	return p, ok
}

// Plans returns a copy of the plan table ordered by duration.
func Plans() []Plan {
	return []Plan{plans[Plan3Months], plans[Plan6Months], plans[Plan1Year]}
}

// PeriodEnd returns the end of a period of months calendar months starting
// at start.
func PeriodEnd(start time.Time, months int) time.Time {
	return start.AddDate(0, months, 0)
}
