package eligibility

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(ruleShape, Promotion{})
	return v
}

// ruleShape enforces the constraints the evaluator deliberately tolerates:
// date and time bounds must come in pairs, and windows must be ordered.
func ruleShape(sl validator.StructLevel) {
	p := sl.Current().Interface().(Promotion)

	if (p.ValidFrom == nil) != (p.ValidTo == nil) {
		field := "ValidFrom"
		if p.ValidFrom != nil {
			field = "ValidTo"
		}
		sl.ReportError(p.ValidFrom, field, field, "datepair", "")
	}
	if p.ValidFrom != nil && p.ValidTo != nil && p.ValidFrom.Compare(*p.ValidTo) > 0 {
		sl.ReportError(p.ValidFrom, "ValidFrom", "ValidFrom", "dateorder", "")
	}

	if (p.StartTime == nil) != (p.EndTime == nil) {
		field := "StartTime"
		if p.StartTime != nil {
			field = "EndTime"
		}
		sl.ReportError(p.StartTime, field, field, "timepair", "")
	}
	if p.StartTime != nil && p.EndTime != nil && *p.StartTime > *p.EndTime {
		sl.ReportError(p.StartTime, "StartTime", "StartTime", "timeorder", "")
	}
}

// Validate rejects malformed rule-sets at the boundary, before they reach
// the store or the evaluator. Returns validator.ValidationErrors on failure.
func Validate(p Promotion) error {
	return validate.Struct(p)
}
