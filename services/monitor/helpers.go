package monitor

import "strconv"

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "CLP"
	}
	return currency
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
