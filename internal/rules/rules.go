// Package rules implements a generic field-rule evaluator for flat
// field→value maps. Rules are pipe-delimited strings of atoms, e.g.
// "required|in:active,inactive|max:50". Every atom for a field runs in
// order; a field with any failing atom is excluded from the validated
// output and recorded in the error map.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the canonical form the datetime atom normalizes to.
const DateTimeLayout = "2006-01-02 15:04:05"

// acceptedDatetimeLayouts are the input forms the datetime atom parses.
var acceptedDatetimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Validator evaluates one data map against one rule set. Construct a fresh
// Validator per call; it is not safe for reuse or concurrent use.
type Validator struct {
	data      map[string]any
	rules     map[string]string
	validated map[string]any
	errors    map[string]string
}

// New builds a Validator over the given data and field→rule-string map.
func New(data map[string]any, ruleset map[string]string) *Validator {
	return &Validator{
		data:      data,
		rules:     ruleset,
		validated: make(map[string]any),
		errors:    make(map[string]string),
	}
}

// Validate runs every rule atom for every field and reports whether all
// fields passed.
func (v *Validator) Validate() bool {
	for field, ruleString := range v.rules {
		v.validateField(field, ruleString)
	}
	return len(v.errors) == 0
}

// Validated returns the fields that passed all their rule atoms, with any
// normalization (e.g. datetime canonicalization) applied.
func (v *Validator) Validated() map[string]any {
	return v.validated
}

// Errors returns the field→message map of validation failures.
func (v *Validator) Errors() map[string]string {
	return v.errors
}

func (v *Validator) validateField(field, ruleString string) {
	value, present := v.data[field]
	failed := false

	for _, atom := range strings.Split(ruleString, "|") {
		atom = strings.TrimSpace(atom)
		if atom == "" {
			continue
		}
		name, param := atom, ""
		if idx := strings.Index(atom, ":"); idx >= 0 {
			name, param = atom[:idx], atom[idx+1:]
		}

		// Only required and required_if apply to absent fields; every
		// other atom is a constraint on a supplied value.
		if !present && name != "required" && name != "required_if" {
			continue
		}

		var (
			ok  bool
			msg string
		)
		switch name {
		case "required":
			ok, msg = v.checkRequired(field, value, present)
		case "required_if":
			ok, msg = v.checkRequiredIf(field, value, present, param)
		case "in":
			ok, msg = v.checkIn(field, value, param)
		case "numeric":
			ok, msg = v.checkNumeric(field, value)
		case "integer":
			ok, msg = v.checkInteger(field, value)
		case "array":
			ok, msg = v.checkArray(field, value)
		case "array_of_integers":
			ok, msg = v.checkArrayOfIntegers(field, value)
		case "max":
			ok, msg = v.checkBound(field, value, param, false)
		case "min":
			ok, msg = v.checkBound(field, value, param, true)
		case "max_if":
			ok, msg = v.checkBoundIf(field, value, param, false)
		case "min_if":
			ok, msg = v.checkBoundIf(field, value, param, true)
		case "gte":
			ok, msg = v.checkCompare(field, value, param, true)
		case "lte":
			ok, msg = v.checkCompare(field, value, param, false)
		case "datetime":
			// Never fails; normalizes in place or nulls the value.
			value = normalizeDatetime(value)
			ok = true
		default:
			ok = true
		}

		if !ok && !failed {
			failed = true
			v.errors[field] = msg
		}
	}

	if present && !failed {
		v.validated[field] = value
	}
}

func (v *Validator) checkRequired(field string, value any, present bool) (bool, string) {
	if !present || isEmpty(value) {
		return false, fmt.Sprintf("The %s field is required.", field)
	}
	return true, ""
}

func (v *Validator) checkRequiredIf(field string, value any, present bool, param string) (bool, string) {
	parts := strings.Split(param, ",")
	if len(parts) < 2 {
		return true, ""
	}
	other, triggers := parts[0], parts[1:]
	otherValue := stringify(v.data[other])
	triggered := false
	for _, trigger := range triggers {
		if otherValue == trigger {
			triggered = true
			break
		}
	}
	if !triggered {
		return true, ""
	}
	if !present || isEmpty(value) {
		return false, fmt.Sprintf("The %s field is required when %s is %s.", field, other, otherValue)
	}
	return true, ""
}

func (v *Validator) checkIn(field string, value any, param string) (bool, string) {
	s := stringify(value)
	allowed := strings.Split(param, ",")
	for _, a := range allowed {
		if s == a {
			return true, ""
		}
	}
	return false, fmt.Sprintf("The %s field must be one of: %s.", field, strings.Join(allowed, ", "))
}

func (v *Validator) checkNumeric(field string, value any) (bool, string) {
	if _, ok := toFloat(value); !ok {
		return false, fmt.Sprintf("The %s field must be a number.", field)
	}
	return true, ""
}

func (v *Validator) checkInteger(field string, value any) (bool, string) {
	if _, ok := toInt(value); !ok {
		return false, fmt.Sprintf("The %s field must be an integer.", field)
	}
	return true, ""
}

func (v *Validator) checkArray(field string, value any) (bool, string) {
	if !isArray(value) {
		return false, fmt.Sprintf("The %s field must be an array.", field)
	}
	return true, ""
}

func (v *Validator) checkArrayOfIntegers(field string, value any) (bool, string) {
	msg := fmt.Sprintf("The %s field must be an array of integers.", field)
	items, ok := toSlice(value)
	if !ok {
		return false, msg
	}
	for _, item := range items {
		if _, ok := toInt(item); !ok {
			return false, msg
		}
	}
	return true, ""
}

// checkBound implements max:N and min:N. For string values the bound
// applies to length; for numeric values to the value itself.
func (v *Validator) checkBound(field string, value any, param string, isMin bool) (bool, string) {
	bound, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
	if err != nil {
		return true, ""
	}
	if s, isString := value.(string); isString {
		if _, numeric := toFloat(value); !numeric {
			length := float64(len([]rune(s)))
			if isMin && length < bound {
				return false, fmt.Sprintf("The %s field must be at least %s characters.", field, trimFloat(bound))
			}
			if !isMin && length > bound {
				return false, fmt.Sprintf("The %s field must not exceed %s characters.", field, trimFloat(bound))
			}
			return true, ""
		}
	}
	n, ok := toFloat(value)
	if !ok {
		return true, ""
	}
	if isMin && n < bound {
		return false, fmt.Sprintf("The %s field must be at least %s.", field, trimFloat(bound))
	}
	if !isMin && n > bound {
		return false, fmt.Sprintf("The %s field must not exceed %s.", field, trimFloat(bound))
	}
	return true, ""
}

// checkBoundIf implements max_if and min_if: "otherField,v1,...,bound".
// The bound applies only when otherField equals one of the listed values.
func (v *Validator) checkBoundIf(field string, value any, param string, isMin bool) (bool, string) {
	parts := strings.Split(param, ",")
	if len(parts) < 3 {
		return true, ""
	}
	other, triggers, bound := parts[0], parts[1:len(parts)-1], parts[len(parts)-1]
	otherValue := stringify(v.data[other])
	for _, trigger := range triggers {
		if otherValue == trigger {
			return v.checkBound(field, value, bound, isMin)
		}
	}
	return true, ""
}

// checkCompare implements gte:otherField / lte:otherField. The check
// passes when either side is missing or non-numeric.
func (v *Validator) checkCompare(field string, value any, param string, isGte bool) (bool, string) {
	other := strings.TrimSpace(param)
	otherValue, present := v.data[other]
	if !present {
		return true, ""
	}
	n, ok := toFloat(value)
	if !ok {
		return true, ""
	}
	m, ok := toFloat(otherValue)
	if !ok {
		return true, ""
	}
	if isGte && n < m {
		return false, fmt.Sprintf("The %s field must be greater than or equal to %s.", field, other)
	}
	if !isGte && n > m {
		return false, fmt.Sprintf("The %s field must be less than or equal to %s.", field, other)
	}
	return true, ""
}

// normalizeDatetime parses the value against the accepted layouts and
// rewrites it in canonical form, or returns nil when unparseable.
func normalizeDatetime(value any) any {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range acceptedDatetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateTimeLayout)
		}
	}
	return nil
}
