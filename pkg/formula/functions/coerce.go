package functions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ferrors "tabula-hq/formula/pkg/formula/errors"
)

// Normalize maps the value types a record source may produce onto the
// formula value model: float64, string, bool, time.Time or nil.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, float64, string, bool, time.Time:
		return v
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []byte:
		return string(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

// IsFinite reports whether v is a usable value: anything but an infinite or
// NaN number.
func IsFinite(v any) bool {
	n, ok := v.(float64)
	return !ok || !(math.IsInf(n, 0) || math.IsNaN(n))
}

// ToNumber converts v to a number. Booleans count as 1 and 0 and numeric
// strings are parsed. The second result is false for blank and
// non-numeric values.
func ToNumber(v any) (float64, bool) {
	switch val := Normalize(v).(type) {
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		return parseNumber(val)
	default:
		return 0, false
	}
}

// NumericValue is like ToNumber but does not treat booleans as numbers.
// Comparisons and the averaging functions use it.
func NumericValue(v any) (float64, bool) {
	switch val := Normalize(v).(type) {
	case float64:
		return val, true
	case string:
		return parseNumber(val)
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToText renders v as text. nil becomes the empty string, whole numbers have
// no decimal point and booleans render as TRUE and FALSE.
func ToText(v any) string {
	switch val := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// IsBlank reports whether v is nil or a whitespace-only string.
func IsBlank(v any) bool {
	switch val := Normalize(v).(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// Truthy reports the boolean meaning of v: false for nil, false, 0, the
// empty string and the zero time.
func Truthy(v any) bool {
	switch val := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case time.Time:
		return !val.IsZero()
	default:
		return true
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
	"01/02/2006",
}

// ToTime converts v to a time. Strings are parsed as RFC 3339, ISO date-time
// or date-only values; date-only values are interpreted in local time.
func ToTime(v any) (time.Time, bool) {
	switch val := Normalize(v).(type) {
	case time.Time:
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Equal compares two values the way the "=" operator does: numerically when
// both are numeric, blank equals blank, booleans only equal booleans, times
// by instant and everything else as text.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)

	aBlank, bBlank := IsBlank(a), IsBlank(b)
	if aBlank || bBlank {
		return aBlank && bBlank
	}

	if an, ok := NumericValue(a); ok {
		if bn, ok := NumericValue(b); ok {
			return an == bn
		}
	}

	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool || bIsBool {
		return aIsBool && bIsBool && ab == bb
	}

	_, aIsTime := a.(time.Time)
	_, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		at, aok := ToTime(a)
		bt, bok := ToTime(b)
		return aok && bok && at.Equal(bt)
	}

	return ToText(a) == ToText(b)
}

// typeError builds the error returned for an unusable argument.
func typeError(fn string, index int, want string, got any) error {
	return ferrors.New(ferrors.KindType, "%s: argument %d must be %s, got %s", fn, index+1, want, Describe(got))
}

// Describe names the type of a value for error messages.
func Describe(v any) string {
	switch val := Normalize(v).(type) {
	case nil:
		return "blank"
	case float64:
		return "number"
	case string:
		return fmt.Sprintf("text %q", val)
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// numberArg reads argument i as a number; blank counts as 0.
func numberArg(fn string, args []any, i int) (float64, error) {
	if i >= len(args) || IsBlank(args[i]) {
		return 0, nil
	}
	n, ok := ToNumber(args[i])
	if !ok {
		return 0, typeError(fn, i, "a number", args[i])
	}
	return n, nil
}

// maxIntArg bounds whole-number arguments. Counts and positions beyond it
// behave like "all of the text".
const maxIntArg = math.MaxInt32

// intArg reads argument i as a whole number, truncating toward zero and
// clamping to [-maxIntArg, maxIntArg].
func intArg(fn string, args []any, i int, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	n, err := numberArg(fn, args, i)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(n):
		return 0, typeError(fn, i, "a number", args[i])
	case n > maxIntArg:
		return maxIntArg, nil
	case n < -maxIntArg:
		return -maxIntArg, nil
	}
	return int(n), nil
}

// timeArg reads argument i as a date.
func timeArg(fn string, args []any, i int) (time.Time, error) {
	if i < len(args) {
		if t, ok := ToTime(args[i]); ok {
			return t, nil
		}
		return time.Time{}, typeError(fn, i, "a date", args[i])
	}
	return time.Time{}, typeError(fn, i, "a date", nil)
}
