package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// MatchOperator applies one comparison operator to an actual/expected value
// pair. It is total over the supported operator set: malformed input (invalid
// regex pattern, non-numeric operands, unknown operator) yields false and a
// log line, never a panic. The engine must stay resilient to malformed rules.
func MatchOperator(actual any, op Operator, expected any, caseSensitive bool) bool {
	switch op {
	case OperatorEquals:
		return matchEquals(actual, expected, caseSensitive)

	case OperatorContains, OperatorStartsWith, OperatorEndsWith:
		a, e := stringify(actual), stringify(expected)
		if !caseSensitive {
			a, e = strings.ToLower(a), strings.ToLower(e)
		}
		switch op {
		case OperatorContains:
			return strings.Contains(a, e)
		case OperatorStartsWith:
			return strings.HasPrefix(a, e)
		default:
			return strings.HasSuffix(a, e)
		}

	case OperatorRegexMatch:
		pattern := stringify(expected)
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Warn("invalid regex pattern in rule condition",
				"pattern", stringify(expected), "error", err.Error())
			return false
		}
		return re.MatchString(stringify(actual))

	case OperatorGreaterThan, OperatorLessThan:
		a, aok := toFloat(actual)
		e, eok := toFloat(expected)
		if !aok || !eok {
			return false
		}
		if op == OperatorGreaterThan {
			return a > e
		}
		return a < e

	case OperatorExists:
		return !isEmpty(actual)

	case OperatorNotExists:
		return isEmpty(actual)

	default:
		slog.Error("unknown condition operator", "operator", string(op))
		return false
	}
}

func matchEquals(actual, expected any, caseSensitive bool) bool {
	aStr, aIsStr := actual.(string)
	eStr, eIsStr := expected.(string)
	if aIsStr && eIsStr {
		if !caseSensitive {
			return strings.EqualFold(aStr, eStr)
		}
		return aStr == eStr
	}
	// No coercion for non-string comparisons, but JSON decoding turns all
	// numbers into float64 while condition actuals may be ints.
	if a, ok := toNumber(actual); ok {
		if e, ok := toNumber(expected); ok {
			return a == e
		}
		return false
	}
	return actual == expected
}

// toNumber converts numeric types only; strings are not numbers here.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// stringify renders a value the way it is compared: numbers without
// trailing zeros, nil as the empty string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
