package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// Plan is a fixed price/credit tier.
type Plan struct {
	Key     string `json:"key"`
	Price   int64  `json:"price"`
	Credits int64  `json:"credits"`
}

var planTable = map[string]Plan{
	PlanBasic:   {Key: PlanBasic, Price: 4000, Credits: 500},
	PlanPremium: {Key: PlanPremium, Price: 8000, Credits: 1000},
}

// LookupPlan resolves a plan key case-insensitively.
func LookupPlan(key string) (Plan, error) {
	p, ok := planTable[normalizePlan(key)]
	if !ok {
		return Plan{}, ErrInvalidPlan
	}
	return p, nil
}

// Plans lists the plan table ordered by price.
func Plans() []Plan {
	return []Plan{planTable[PlanBasic], planTable[PlanPremium]}
}

// Title is the human readable plan name, e.g. "Basic".
func (p Plan) Title() string {
	if p.Key == "" {
		return ""
	}
	return strings.ToUpper(p.Key[:1]) + p.Key[1:]
}

func normalizePlan(plan string) string {
	return strings.ToLower(strings.TrimSpace(plan))
}

func creditsForPlan(plan string) (int64, error) {
	p, err := LookupPlan(plan)
	if err != nil {
		return 0, err
	}
	return p.Credits, nil
}

// toMinorUnits converts a whole-currency amount into its smallest unit
// (rupees to paise).
func toMinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Shift(2).IntPart()
}

// DisplayAmount renders a recorded transaction amount with two decimals.
// Card checkout records USD cents, the order gateway records whole rupees.
func DisplayAmount(amount int64, currency string) string {
	d := decimal.NewFromInt(amount)
	if strings.EqualFold(currency, stripeCurrency) {
		d = d.Shift(-2)
	}
	return d.StringFixed(2)
}
