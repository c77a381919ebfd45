package dissect

import (
	"fmt"
	"strings"
	"time"
)

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

// formatSeconds 按给定精度输出秒数，例如 0.001000000
func formatSeconds(d time.Duration, digits int) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	secs := int64(d / time.Second)
	if digits == 0 {
		return fmt.Sprintf("%s%d", sign, secs)
	}
	frac := int64(d%time.Second) / pow10[9-digits]
	return fmt.Sprintf("%s%d.%0*d", sign, secs, digits, frac)
}

// formatEpoch 输出 Unix 纪元秒
func formatEpoch(ts time.Time, digits int) string {
	return formatSeconds(time.Duration(ts.Unix())*time.Second+time.Duration(ts.Nanosecond()), digits)
}

// formatAbsolute 输出 UTC 绝对时间
func formatAbsolute(ts time.Time, digits int) string {
	layout := "Jan _2, 2006 15:04:05"
	if digits > 0 {
		layout += "." + strings.Repeat("0", digits)
	}
	return ts.UTC().Format(layout) + " UTC"
}
