package utils

import (
	"fmt"
	"strconv"
	"time"
)

// FormatAmount renders a monetary value with dot-grouped thousands, the
// way Chilean documents print CLP ("1.234.567").
func FormatAmount(value float64) string {
	raw := strconv.FormatInt(int64(value), 10)

	negative := false
	if len(raw) > 0 && raw[0] == '-' {
		negative = true
		raw = raw[1:]
	}

	var out []byte
	for i, c := range []byte(raw) {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}

	if negative {
		return "-" + string(out)
	}
	return string(out)
}

// FormatDate renders a date as day/month/year, or a dash when unset.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006")
}

// FormatDateTime renders a timestamp as day/month/year hour:minute.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// Plural appends an "s" for counts other than one. Spanish and English
// agree on this for the words we use it with.
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
