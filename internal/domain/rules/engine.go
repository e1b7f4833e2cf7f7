package rules

import (
	"fmt"
)

// BusinessRuleViolationError is returned by Engine.Evaluate for the first
// failed rule with error severity.
type BusinessRuleViolationError struct {
	Explanation string
	Result      RuleResult

	// Results holds every result produced up to and including the violation.
	Results []RuleResult
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("business rule violation: %s: %s", e.Explanation, e.Result.Message)
}

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeViolation
)

// outcome tags a rule result as either letting evaluation continue or
// terminating it.
type outcome struct {
	kind   outcomeKind
	result RuleResult
}

func classify(r RuleResult) outcome {
	if !r.Passed && r.Severity == SeverityError {
		return outcome{kind: outcomeViolation, result: r}
	}
	return outcome{kind: outcomeContinue, result: r}
}

// Engine evaluates an ordered list of rules.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the given rules in order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// AddRule appends r and returns the engine for chaining.
// Register rules before the engine is shared between goroutines.
func (e *Engine) AddRule(r Rule) *Engine {
	e.rules = append(e.rules, r)
	return e
}

// Rules returns a copy of the registered rules.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule in registration order against ctx. It stops at
// the first error-severity failure and returns it as a
// *BusinessRuleViolationError; later rules are not evaluated.
func (e *Engine) Evaluate(ctx Context) (*EvaluationResult, error) {
	result := &EvaluationResult{
		Passed:   true,
		Results:  make([]RuleResult, 0, len(e.rules)),
		Warnings: make([]RuleResult, 0),
	}

	for _, rule := range e.rules {
		o := classify(rule.Evaluate(ctx))
		result.Results = append(result.Results, o.result)

		if o.kind == outcomeViolation {
			return nil, &BusinessRuleViolationError{
				Explanation: rule.Explain(),
				Result:      o.result,
				Results:     result.Results,
			}
		}

		if !o.result.Passed {
			result.Passed = false
			if o.result.Severity == SeverityWarning {
				result.Warnings = append(result.Warnings, o.result)
			}
		}
	}

	return result, nil
}

// Definition describes a tolerance rule in configuration.
type Definition struct {
	Field            string
	TolerancePercent float64
}

// FromConfig builds an engine of tolerance rules. Unknown fields and
// tolerances outside [0,100] are rejected.
func FromConfig(defs []Definition) (*Engine, error) {
	engine := NewEngine()
	for i, s := range defs {
		f := Field(s.Field)
		if !f.Known() {
			return nil, fmt.Errorf("rule %d: unknown field %q", i, s.Field)
		}
		if s.TolerancePercent < 0 || s.TolerancePercent > 100 {
			return nil, fmt.Errorf("rule %d: tolerance %.2f%% out of range [0,100]", i, s.TolerancePercent)
		}
		engine.AddRule(NewToleranceRule(s.TolerancePercent, s.Field))
	}
	return engine, nil
}
