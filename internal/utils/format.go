package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Number formats an integer with thousands separators: 1234567 becomes "1,234,567"
func Number[T ~int | ~int32 | ~int64 | ~uint32 | ~uint64](n T) string {
	var str string
	neg := n < 0
	if neg {
		str = strconv.FormatInt(-int64(n), 10)
	} else {
		str = strconv.FormatUint(uint64(n), 10)
	}

	out := make([]byte, 0, len(str)+len(str)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, str[i])
	}
	return string(out)
}

// Bytes formats a byte count with a binary unit suffix.
// Examples:
//   - 512: "512 B"
//   - 1536: "1.5 KiB"
//   - 3221225472: "3.0 GiB"
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 5; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Duration formats time duration in human-readable form.
// Examples:
//   - Less than 1 millisecond: "0ms"
//   - Less than 1 second: "250ms"
//   - Less than 1 minute: "5.2s"
//   - Less than 1 hour: "3m5.2s"
//   - 1 hour or more: "2h15m"
func Duration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		minutes := int(d.Minutes())
		seconds := d.Seconds() - float64(minutes*60)
		return fmt.Sprintf("%dm%.1fs", minutes, seconds)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// Rate formats a per-second rate with K/M suffixes
func Rate(rate float64) string {
	switch {
	case rate < 1000:
		return fmt.Sprintf("%.2f", rate)
	case rate < 1000000:
		return fmt.Sprintf("%.2fK", rate/1000)
	default:
		return fmt.Sprintf("%.2fM", rate/1000000)
	}
}
