package youtube

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseAmount splits a locale formatted amount ("R$ 10,00", "$1,000.50",
// "¥500") into currency and value. Leading non-digit characters are the
// currency. In the numeric part the last separator is the decimal point when
// one or two digits follow it; every other separator groups thousands.
func parseAmount(s string) (currency string, value float64, err error) {
	s = strings.TrimSpace(s)
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return "", 0, fmt.Errorf("amount %q has no digits", s)
	}
	currency = strings.TrimSpace(s[:start])

	var digits strings.Builder
	decimal := -1
	for _, r := range s[start:] {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == ',':
			decimal = digits.Len()
		case unicode.IsSpace(r), r == '\'':
		default:
			return "", 0, fmt.Errorf("amount %q has unexpected character %q", s, r)
		}
	}

	num := digits.String()
	if decimal >= 0 && len(num)-decimal >= 1 && len(num)-decimal <= 2 {
		num = num[:decimal] + "." + num[decimal:]
	}
	value, err = strconv.ParseFloat(num, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return currency, value, nil
}
