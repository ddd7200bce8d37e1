package underwriting

import (
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	baseRate         = decimal.RequireFromString("0.005")
	companyBase      = decimal.RequireFromString("0.8")
	employeesPerUnit = decimal.NewFromInt(50)
	hundred          = decimal.NewFromInt(100)
)

// Projected loss ratio by tier, in percent.
var lossRatios = map[string]int{
	domain.TierPreferred:   40,
	domain.TierStandard:    55,
	domain.TierSubstandard: 70,
	domain.TierDecline:     100,
}

// Premium is the pricing part of an underwriting decision.
type Premium struct {
	Base        decimal.Decimal
	Adjustment  int
	Recommended decimal.Decimal
}

// BasePremium prices the requested coverage before risk adjustment,
// rounded to cents.
func BasePremium(app domain.ApplicationInput) decimal.Decimal {
	return decimal.NewFromFloat(app.CoverageAmount).
		Mul(baseRate).
		Mul(variantFactor(app)).
		Round(2)
}

// variantFactor scales the base rate by age band or company size.
func variantFactor(app domain.ApplicationInput) decimal.Decimal {
	switch app.ApplicantType {
	case domain.ApplicantIndividual:
		if app.Age == nil {
			return decimal.NewFromInt(1)
		}
		switch age := *app.Age; {
		case age < 30:
			return decimal.RequireFromString("0.7")
		case age < 40:
			return decimal.RequireFromString("0.9")
		case age < 50:
			return decimal.RequireFromString("1.1")
		case age < 60:
			return decimal.RequireFromString("1.4")
		default:
			return decimal.NewFromInt(2)
		}
	case domain.ApplicantCompany:
		if app.EmployeeCount == nil {
			return companyBase
		}
		size := decimal.NewFromInt(int64(*app.EmployeeCount)).Div(employeesPerUnit)
		return companyBase.Mul(decimal.Max(decimal.NewFromInt(1), size))
	default:
		return decimal.NewFromInt(1)
	}
}

// Price applies a clamped percentage adjustment to the base premium and
// rounds to whole currency units.
func Price(app domain.ApplicationInput, adjustment int) Premium {
	base := BasePremium(app)
	factor := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(adjustment)).Div(hundred))
	return Premium{
		Base:        base,
		Adjustment:  adjustment,
		Recommended: base.Mul(factor).Round(0),
	}
}

// LossRatio is the projected loss ratio for a tier. It is a fixed
// approximation per tier, not derived from the signals.
func LossRatio(tier string) int {
	if r, ok := lossRatios[tier]; ok {
		return r
	}
	return lossRatios[domain.TierStandard]
}
