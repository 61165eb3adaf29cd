// Package timecode converts between seconds and the display timecodes used by
// subtitle files and the player UI.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// splits seconds into h/m/s/ms, rounding to the nearest millisecond
func split(seconds float64) (h, m, s, ms int64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	h = total / 3_600_000
	m = (total % 3_600_000) / 60_000
	s = (total % 60_000) / 1000
	ms = total % 1000
	return h, m, s, ms
}

// formats seconds as an SRT timecode: HH:MM:SS,mmm
func SRT(seconds float64) string {
	h, m, s, ms := split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// formats seconds as a WebVTT timecode: HH:MM:SS.mmm
func VTT(seconds float64) string {
	h, m, s, ms := split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// formats milliseconds as HH:MM:SS.mmm
func Millis(ms int64) string {
	return VTT(float64(ms) / 1000)
}

// formats seconds as HH:MM:SS, truncating the fractional part
func HHMMSS(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Parse reads "HH:MM:SS", "HH:MM:SS.mmm" or "HH:MM:SS,mmm" back into seconds.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timecode %q: expected HH:MM:SS[.mmm]", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hours in timecode %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minutes in timecode %q", s)
	}

	secPart := strings.Replace(parts[2], ",", ".", 1)
	secStr, msStr, hasMillis := strings.Cut(secPart, ".")
	sec, err := strconv.Atoi(secStr)
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid seconds in timecode %q", s)
	}

	var ms int
	if hasMillis {
		if msStr == "" || len(msStr) > 3 {
			return 0, fmt.Errorf("invalid milliseconds in timecode %q", s)
		}
		// "5" means 500ms, "05" means 50ms
		for len(msStr) < 3 {
			msStr += "0"
		}
		ms, err = strconv.Atoi(msStr)
		if err != nil {
			return 0, fmt.Errorf("invalid milliseconds in timecode %q", s)
		}
	}

	return float64(h*3600+m*60+sec) + float64(ms)/1000, nil
}

// short human-readable duration: 45s, 3m12s, 1h05m
func HumanDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm%02ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh%02dm", total/3600, (total%3600)/60)
	}
}
