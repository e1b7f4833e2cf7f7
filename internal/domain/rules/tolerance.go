package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WarningBand is how many percentage points past tolerance still rate as a
// warning rather than an error.
const WarningBand = 5.0

var (
	hundred     = decimal.NewFromInt(100)
	warningBand = decimal.NewFromFloat(WarningBand)
)

// ToleranceRule checks that a numeric field on the invoice is within a
// percentage of the same field on the purchase order.
type ToleranceRule struct {
	TolerancePercent float64
	Field            Field
}

var _ Rule = ToleranceRule{}

// NewToleranceRule builds a rule for fieldName with the given tolerance in percent.
func NewToleranceRule(tolerancePercent float64, fieldName string) ToleranceRule {
	return ToleranceRule{
		TolerancePercent: tolerancePercent,
		Field:            Field(fieldName),
	}
}

// Explain describes the rule for audit output.
func (r ToleranceRule) Explain() string {
	return fmt.Sprintf("%s on the invoice must be within %.2f%% of the purchase order", r.Field, r.TolerancePercent)
}

// Evaluate compares invoice (actual) against purchase order (expected).
// A field that is not numeric on either side passes with info severity.
func (r ToleranceRule) Evaluate(ctx Context) RuleResult {
	name := r.name()

	actual, okActual := r.Field.Value(ctx.Invoice)
	expected, okExpected := r.Field.Value(ctx.PurchaseOrder)
	if !okActual || !okExpected {
		return RuleResult{
			Rule:     name,
			Passed:   true,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s is not numeric on both documents, skipped", r.Field),
		}
	}

	details := map[string]any{
		"field":            string(r.Field),
		"expected":         expected.InexactFloat64(),
		"actual":           actual.InexactFloat64(),
		"tolerancePercent": r.TolerancePercent,
	}

	if expected.IsZero() {
		if actual.IsZero() {
			details["differencePercent"] = 0.0
			return RuleResult{
				Rule:     name,
				Passed:   true,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("%s matches exactly", r.Field),
				Details:  details,
			}
		}
		return RuleResult{
			Rule:     name,
			Passed:   false,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is %s but the purchase order expects 0", r.Field, actual.String()),
			Details:  details,
		}
	}

	// Percent difference relative to the purchase order, in exact decimal.
	diff := actual.Sub(expected).Abs().Mul(hundred).Div(expected.Abs())
	tolerance := decimal.NewFromFloat(r.TolerancePercent)
	diffPercent := diff.InexactFloat64()
	details["differencePercent"] = diffPercent

	if diff.LessThanOrEqual(tolerance) {
		return RuleResult{
			Rule:     name,
			Passed:   true,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s differs by %.2f%%, within %.2f%% tolerance", r.Field, diffPercent, r.TolerancePercent),
			Details:  details,
		}
	}

	severity := SeverityError
	if diff.Sub(tolerance).LessThanOrEqual(warningBand) {
		severity = SeverityWarning
	}
	return RuleResult{
		Rule:     name,
		Passed:   false,
		Severity: severity,
		Message:  fmt.Sprintf("%s differs by %.2f%%, exceeding %.2f%% tolerance", r.Field, diffPercent, r.TolerancePercent),
		Details:  details,
	}
}

func (r ToleranceRule) name() string {
	return fmt.Sprintf("tolerance:%s", r.Field)
}
