package jobform

import "strings"

// NormalizePhone rewrites a South African number into +27 form.
// 0821234567 and 821234567 become +27821234567; anything else is returned trimmed.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(compact, "+27") {
		return compact
	}
	if !isDigits(compact) {
		return s
	}
	switch {
	case len(compact) == 10 && compact[0] == '0':
		return "+27" + compact[1:]
	case len(compact) == 9 && compact[0] != '0':
		return "+27" + compact
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
