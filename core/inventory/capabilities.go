package inventory

import "strings"

// DefaultCapability is required when no skill maps to a capability.
const DefaultCapability = "RGB"

var skillCapabilities = map[string]string{
	"thermal":    "Thermal",
	"mapping":    "RGB",
	"survey":     "RGB",
	"inspection": "RGB",
	"lidar":      "LiDAR",
}

// CapabilitiesFor maps mission skills to the drone capabilities they need.
// The result is de-duplicated and keeps first-seen order; unmapped or empty
// skills fall back to DefaultCapability.
func CapabilitiesFor(skills []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range skills {
		c, ok := skillCapabilities[strings.ToLower(strings.TrimSpace(s))]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return []string{DefaultCapability}
	}
	return out
}
