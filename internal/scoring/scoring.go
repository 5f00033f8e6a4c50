// Package scoring computes token values and group bonuses from injected
// configuration. Everything here is a pure function; the ledger strategies
// own all state.
package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// Config carries the value tables. Base values are keyed by rating (1-5),
// type multipliers by memory type category. The "UNKNOWN" multiplier is the
// fallback for unrecognized categories.
type Config struct {
	BaseValues      map[int]int
	TypeMultipliers map[string]int
}

// DefaultConfig returns the production value tables.
func DefaultConfig() Config {
	return Config{
		BaseValues: map[int]int{
			1: 100,
			2: 500,
			3: 1000,
			4: 5000,
			5: 10000,
		},
		TypeMultipliers: map[string]int{
			"Technical": 5,
			"Business":  3,
			"Personal":  1,
			"UNKNOWN":   0,
		},
	}
}

// TokenValue returns the score contribution of a single token. Unknown
// tokens are worth nothing, as is any memory type without a configured
// multiplier (it falls back to the UNKNOWN entry).
func (c Config) TokenValue(valueRating int, memoryType string, isUnknown bool) int {
	if isUnknown {
		return 0
	}
	base := c.BaseValues[valueRating]
	mult, ok := c.TypeMultipliers[memoryType]
	if !ok {
		mult = c.TypeMultipliers["UNKNOWN"]
	}
	return base * mult
}

// GroupLabel is the parsed form of a raw group tag like "Server Logs (x5)".
type GroupLabel struct {
	Name       string
	Multiplier int
}

var groupSuffix = regexp.MustCompile(`(?i)^(.*?)\s*\(x(\d+)\)$`)

// ParseGroupLabel splits a raw group label into its name and multiplier.
// Labels without a "(xN)" suffix are plain groups with multiplier 1. Empty
// input parses to the "Unknown" group. A multiplier below 1 is invalid and
// coerced to 1.
func ParseGroupLabel(raw string) GroupLabel {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GroupLabel{Name: "Unknown", Multiplier: 1}
	}
	m := groupSuffix.FindStringSubmatch(trimmed)
	if m == nil {
		return GroupLabel{Name: trimmed, Multiplier: 1}
	}
	mult, err := strconv.Atoi(m[2])
	if err != nil || mult < 1 {
		mult = 1
	}
	return GroupLabel{Name: strings.TrimSpace(m[1]), Multiplier: mult}
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// NormalizeGroupName produces the canonical key used for group identity
// everywhere in the system: lowercased, whitespace runs collapsed, curly
// apostrophes straightened.
func NormalizeGroupName(name string) string {
	name = apostrophes.Replace(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}
