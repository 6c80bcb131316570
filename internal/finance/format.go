package finance

import humanize "github.com/dustin/go-humanize"

// FormatCurrency renders an amount with thousands separators and two decimals.
func FormatCurrency(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
