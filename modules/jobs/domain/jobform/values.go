package jobform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "1", "yes":
			return true
		}
		return false
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func parseNumber(v any) (decimal.Decimal, bool) {
	if isBlank(v) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(toString(v)))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// stripDecimal keeps digits and the first decimal point.
func stripDecimal(v any) string {
	var b strings.Builder
	seenDot := false
	for _, r := range toString(v) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dateOnly strips a time suffix such as "T00:00:00Z".
func dateOnly(v any) string {
	s := strings.TrimSpace(toString(v))
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	return s
}

// hourMinute reduces "HH:MM:SS" to "HH:MM".
func hourMinute(v any) string {
	s := strings.TrimSpace(toString(v))
	if len(s) > 5 && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

// idValue sends numeric ids as integers and keeps anything else verbatim.
func idValue(v any) any {
	s := strings.TrimSpace(toString(v))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
