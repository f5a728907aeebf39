package fsm

import (
	"strconv"
	"strings"
)

// parseChoice reads a 1-based menu number and returns the 0-based index.
func parseChoice(text string, size int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	idx := n - 1
	if idx < 0 || idx >= size {
		return 0, false
	}
	return idx, true
}

// parseAmount keeps only ASCII digits, so "Rp 50.000" becomes 50000.
func parseAmount(text string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0, false
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
