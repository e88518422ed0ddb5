package console

import (
	"fmt"
	"math"
	"strconv"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with binary scaling and two decimals:
// 0 -> "0 B", 512 -> "512 B", 1536 -> "1.50 KB". A value that rounds up
// to 1024.00 moves to the next unit. TB is the largest unit.
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 B"
	}
	if n < 1024 && n > -1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	v := float64(n)
	i := 0
	for i < len(byteUnits)-1 && math.Abs(math.Round(v*100)) >= 1024*100 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[i])
}

// FormatPercent renders a gauge value with one decimal. Out-of-range
// values are shown as-is.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatLimit renders a traffic limit, where 0 means unlimited.
func FormatLimit(limit int64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return FormatBytes(limit)
}

// TrafficRatio returns used/limit. ok is false for unlimited accounts.
func TrafficRatio(used, limit int64) (ratio float64, ok bool) {
	if limit <= 0 {
		return 0, false
	}
	return float64(used) / float64(limit), true
}

// Highlighted reports whether the traffic-used cell should be emphasized:
// the account has a limit and has used more than threshold of it.
func Highlighted(used, limit int64, threshold float64) bool {
	ratio, ok := TrafficRatio(used, limit)
	return ok && ratio > threshold
}
