package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SilenceDB is the level at and below which DecibelFormatter shows -∞.
const SilenceDB = -96.0

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	if db <= SilenceDB {
		return "-∞ dB"
	}
	if math.Abs(db) < 0.05 {
		return "0.0 dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser parses dB strings
func DecibelParser(str string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	if strings.Contains(s, "∞") || strings.Contains(s, "inf") {
		return SilenceDB, nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "db"))
	return strconv.ParseFloat(s, 64)
}

// PercentFormatter formats normalized values as a percentage
func PercentFormatter(normalized float64) string {
	return fmt.Sprintf("%.0f%%", normalized*100)
}
