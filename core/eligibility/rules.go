// Package eligibility holds the side-effect free predicates deciding whether a
// pilot or drone satisfies a mission's declared requirements. The functions
// operate on value snapshots only and never touch the record store.
package eligibility

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the date format used by every record store backend.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date. ok is false for empty or malformed input.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseList splits a comma separated cell into trimmed, non-empty values.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SkillsMatch returns true if every required skill is present in the actor's
// skill set. An empty requirement always matches.
func SkillsMatch(actor, required []string) bool {
	return containsAll(actor, required)
}

// CertificationsMatch has the same "contains all" semantics as SkillsMatch.
func CertificationsMatch(actor, required []string) bool {
	return containsAll(actor, required)
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.TrimSpace(h)] = struct{}{}
	}
	for _, w := range want {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

var ipCode = regexp.MustCompile(`\bip\s?([0-9x])([0-9x])\b`)

// clearSkyForecasts are the only forecasts a clear-sky-only drone may fly in.
var clearSkyForecasts = []string{"sunny", "cloudy"}

// WeatherCompatible applies the two-tier resistance policy:
//
//   - rain-capable: the rating mentions "rain" or carries an IP code whose
//     water-protection digit is 3 or higher (IP43, IP54, IP67...). Compatible
//     with any forecast.
//   - clear-sky-only: everything else, including "None", "Clear sky only",
//     empty or unclassifiable ratings. Compatible with Sunny and Cloudy only.
//
// The tiers are an operational policy, not a physical model.
func WeatherCompatible(resistance, forecast string) bool {
	if rainCapable(resistance) {
		return true
	}
	f := strings.ToLower(strings.TrimSpace(forecast))
	for _, ok := range clearSkyForecasts {
		if f == ok {
			return true
		}
	}
	return false
}

func rainCapable(resistance string) bool {
	r := strings.ToLower(resistance)
	if strings.Contains(r, "rain") {
		return true
	}
	m := ipCode.FindStringSubmatch(r)
	if m == nil {
		return false
	}
	water, err := strconv.Atoi(m[2])
	if err != nil {
		return false
	}
	return water >= 3
}

// DatesOverlap reports whether the inclusive ranges [startA,endA] and
// [startB,endB] intersect. Any malformed date makes the result false.
func DatesOverlap(startA, endA, startB, endB string) bool {
	sa, ok1 := ParseDate(startA)
	ea, ok2 := ParseDate(endA)
	sb, ok3 := ParseDate(startB)
	eb, ok4 := ParseDate(endB)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return !sa.After(eb) && !sb.After(ea)
}

// MaintenanceDue returns true if due parses and is on or before now.
func MaintenanceDue(due string, now time.Time) bool {
	d, ok := ParseDate(due)
	if !ok {
		return false
	}
	return !d.After(now)
}

// Duration returns the number of days covered by [start,end], both ends
// included. Malformed dates and inverted ranges yield 0.
func Duration(start, end string) int {
	s, ok1 := ParseDate(start)
	e, ok2 := ParseDate(end)
	if !ok1 || !ok2 {
		return 0
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// Cost is the pilot cost for a mission window: dailyRate * Duration.
func Cost(dailyRate float64, start, end string) float64 {
	return dailyRate * float64(Duration(start, end))
}

// ContainsFold reports whether needle is a case-insensitive substring of s.
func ContainsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(needle)))
}
