// Package forms implements data-driven field validation: a rule set is plain
// data, evaluation is synchronous and pure, and the result maps field names
// to human-readable messages. Transport concerns never leak in here.
package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// emailPattern is deliberately permissive; real verification happens by
// sending mail, not by regex.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rule is one constraint on a field. Zero values mean "not constrained".
type Rule struct {
	Required  bool     `json:"required,omitempty"`
	Email     bool     `json:"email,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	MinLength int      `json:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Message   string   `json:"message,omitempty"` // overrides the default message
}

// RuleSet maps field names to their rules, evaluated in order.
type RuleSet map[string][]Rule

// Validate checks values against rules and returns the failures per field.
// Fields without failures are absent from the result; a valid form yields an
// empty map. Rules for fields missing from values treat the value as empty.
func Validate(values map[string]interface{}, rules RuleSet) map[string][]string {
	failures := make(map[string][]string)

	for field, fieldRules := range rules {
		value := values[field]
		for _, rule := range fieldRules {
			if msg := applyRule(value, rule); msg != "" {
				failures[field] = append(failures[field], msg)
			}
		}
	}
	return failures
}

// Valid reports whether values passes every rule.
func Valid(values map[string]interface{}, rules RuleSet) bool {
	return len(Validate(values, rules)) == 0
}

func applyRule(value interface{}, rule Rule) string {
	str, isString := stringValue(value)
	empty := value == nil || (isString && strings.TrimSpace(str) == "")

	if rule.Required && empty {
		return message(rule, "this field is required")
	}
	// Remaining constraints only apply to present values.
	if empty {
		return ""
	}

	if rule.Email && !emailPattern.MatchString(str) {
		return message(rule, "must be a valid email address")
	}
	if rule.Pattern != "" {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			// A broken rule fails closed; the message names the rule, not the value.
			return message(rule, "invalid validation pattern")
		}
		if !re.MatchString(str) {
			return message(rule, "has an invalid format")
		}
	}
	if rule.MinLength > 0 && len([]rune(str)) < rule.MinLength {
		return message(rule, fmt.Sprintf("must be at least %d characters", rule.MinLength))
	}
	if rule.MaxLength > 0 && len([]rune(str)) > rule.MaxLength {
		return message(rule, fmt.Sprintf("must be at most %d characters", rule.MaxLength))
	}

	if rule.Min != nil || rule.Max != nil {
		num, ok := numericValue(value)
		if !ok {
			return message(rule, "must be a number")
		}
		if rule.Min != nil && num < *rule.Min {
			return message(rule, fmt.Sprintf("must be at least %v", *rule.Min))
		}
		if rule.Max != nil && num > *rule.Max {
			return message(rule, fmt.Sprintf("must be at most %v", *rule.Max))
		}
	}
	return ""
}

func message(rule Rule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	default:
		return fmt.Sprintf("%v", v), false
	}
}

func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return num, err == nil
	default:
		return 0, false
	}
}
