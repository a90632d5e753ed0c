package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"permit-fees/core/types"
)

// meterTolerance absorbs rounding between "1.5" and "1-1/2"
const meterTolerance = 0.01

var (
	quoteMarks = strings.NewReplacer(`"`, "", "”", "", "“", "", "″", "", "''", "")
	inchWords  = regexp.MustCompile(`(?i)\s*(inches|inch|in\.?)\s*$`)
	labelSize  = regexp.MustCompile(`(\d+(?:\.\d+)?(?:[- ]\d+/\d+)?(?:/\d+)?)\s*(?:"|”|″|''|-?inch)`)
)

// ParseMeterSize converts a meter designation to inches.
// It accepts 1-1/2", 1 1/2", 1.5", 3/4", 2 inch and compound
// designations like 5/8" x 3/4", which take the first figure.
func ParseMeterSize(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "x"); i >= 0 {
		s = s[:i]
	}
	s = quoteMarks.Replace(s)
	s = inchWords.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// "1-1/2" is a whole number followed by a fraction
	if i := strings.Index(s, "-"); i > 0 && strings.Contains(s[i:], "/") {
		s = s[:i] + " " + s[i+1:]
	}

	var total float64
	for _, part := range strings.Fields(s) {
		v, ok := parseFraction(part)
		if !ok {
			return 0, false
		}
		total += v
	}
	return total, total > 0
}

func parseFraction(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MeterSizesMatch reports whether two designations denote the same meter
func MeterSizesMatch(a, b string) bool {
	va, ok := ParseMeterSize(a)
	if !ok {
		return false
	}
	vb, ok := ParseMeterSize(b)
	if !ok {
		return false
	}
	return math.Abs(va-vb) < meterTolerance
}

// LabelMeterSizes extracts meter designations embedded in a unit label
func LabelMeterSizes(label string) []string {
	matches := labelSize.FindAllStringSubmatch(label, -1)
	sizes := make([]string, 0, len(matches))
	for _, m := range matches {
		sizes = append(sizes, m[1]+`"`)
	}
	return sizes
}

// MatchMeter finds the rate for the project's meter size. Rules with a
// meter-rate table are looked up directly; otherwise eligibility comes
// from sizes in the unit label, where "up to N" admits every size ≤ N.
func MatchMeter(rule *types.FeeCalculationRule, meterSize string) (types.MeterRate, bool) {
	size, ok := ParseMeterSize(meterSize)
	if !ok {
		return types.MeterRate{}, false
	}

	if len(rule.MeterRates) > 0 {
		for _, mr := range rule.MeterRates {
			if v, ok := ParseMeterSize(mr.Size); ok && math.Abs(v-size) < meterTolerance {
				return mr, true
			}
		}
		return types.MeterRate{}, false
	}

	labelSizes := LabelMeterSizes(rule.UnitLabel)
	if len(labelSizes) == 0 {
		return types.MeterRate{}, false
	}

	if strings.Contains(strings.ToLower(rule.UnitLabel), "up to") {
		limit, ok := ParseMeterSize(labelSizes[len(labelSizes)-1])
		if ok && size <= limit+meterTolerance {
			return types.MeterRate{Size: meterSize, Rate: rule.Rate}, true
		}
		return types.MeterRate{}, false
	}

	for _, ls := range labelSizes {
		if MeterSizesMatch(ls, meterSize) {
			return types.MeterRate{Size: ls, Rate: rule.Rate}, true
		}
	}
	return types.MeterRate{}, false
}
