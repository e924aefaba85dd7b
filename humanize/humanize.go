// Package humanize formats byte counts for people.
package humanize

import "fmt"

func format(v uint64, suffix string) string {
	switch {
	case v >= 1024*1024:
		return fmt.Sprintf("%.1f Mi%s", float64(v)/1024/1024, suffix)
	case v >= 1024:
		return fmt.Sprintf("%.1f Ki%s", float64(v)/1024, suffix)
	default:
		return fmt.Sprintf("%d %s", v, suffix)
	}
}

func BPS(bps uint64) string {
	return format(bps, "B/s")
}

func Bytes(bytes uint64) string {
	return format(bytes, "B")
}
