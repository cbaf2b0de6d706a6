package utils

import (
	"fmt"
	"strings"
)

// FormatIndianCurrency renders an amount with Indian digit grouping, e.g.
// ₹1,23,456.78. Negative amounts keep the sign ahead of the rupee symbol.
func FormatIndianCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	whole := int64(amount)
	frac := int64((amount-float64(whole))*100 + 0.5)
	if frac >= 100 {
		whole++
		frac -= 100
	}

	return fmt.Sprintf("%s₹%s.%02d", sign, groupIndian(whole), frac)
}

func groupIndian(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(groups, ",") + "," + tail
}

// FormatPnl renders a signed P&L with an explicit plus for gains.
func FormatPnl(pnl float64) string {
	if pnl >= 0 {
		return "+" + FormatIndianCurrency(pnl)
	}
	return FormatIndianCurrency(pnl)
}
