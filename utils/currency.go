package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatTHB formats an amount as Thai baht with thousands separators and two
// decimals. Example: 1234.5 -> "฿1,234.50"
func FormatTHB(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	parts := strings.SplitN(fixed, ".", 2)
	integerPart := parts[0]

	var b strings.Builder
	for i, r := range integerPart {
		if i > 0 && (len(integerPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + "฿" + b.String() + "." + parts[1]
}

// FormatPoints formats a point balance with thousands separators.
func FormatPoints(points int) string {
	return strings.Replace(strings.TrimSuffix(FormatTHB(decimal.NewFromInt(int64(points))), ".00"), "฿", "", 1)
}
