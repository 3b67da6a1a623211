package display

import (
	"strconv"
	"strings"
)

// Minimise shortens a formatted number such as "12.35U" or "0.50" so that it
// fits in maxLen characters. Decimals and a leading zero ("0.5" becomes ".5")
// go before the unit suffix does. Text that does not start with a number is
// cut to maxLen.
func Minimise(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	num, unit := splitNumber(s)
	if num == "" {
		return s[:maxLen]
	}

	withUnit := func(n string) string { return n + unit }
	if out, ok := reduceDecimals(num, maxLen-len(unit), withUnit); ok {
		return out
	}
	if out, ok := reduceDecimals(num, maxLen, func(n string) string { return n }); ok {
		return out
	}
	n := roundTo(num, 0)
	if len(n) > maxLen {
		return n[:maxLen]
	}
	return n
}

func reduceDecimals(num string, limit int, format func(string) string) (string, bool) {
	if limit <= 0 {
		return "", false
	}
	dec := 0
	if i := strings.IndexByte(num, '.'); i >= 0 {
		dec = len(num) - i - 1
	}
	for d := dec; d >= 0; d-- {
		n := roundTo(num, d)
		if len(n) <= limit {
			return format(n), true
		}
		if short := dropLeadingZero(n); len(short) <= limit {
			return format(short), true
		}
	}
	return "", false
}

func roundTo(num string, dec int) string {
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return num
	}
	out := strconv.FormatFloat(f, 'f', dec, 64)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	return out
}

func dropLeadingZero(n string) string {
	switch {
	case strings.HasPrefix(n, "0."):
		return n[1:]
	case strings.HasPrefix(n, "-0."):
		return "-" + n[2:]
	}
	return n
}

// splitNumber separates a leading decimal number from a trailing unit.
func splitNumber(s string) (num, unit string) {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == ',') {
		i++
	}
	if i == start {
		return "", ""
	}
	num = strings.ReplaceAll(s[:i], ",", ".")
	return num, strings.TrimSpace(s[i:])
}
