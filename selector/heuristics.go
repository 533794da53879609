package selector

import "regexp"

// Heuristics decides whether an attribute looks machine-generated. These
// are string-shape guesses and will misjudge some values; swap them with
// WithHeuristics when a site needs stricter or looser rules.
type Heuristics interface {
	RandomID(id string) bool
	RandomValue(v string) bool
}

// PatternHeuristics judges ids and values against regex tables.
type PatternHeuristics struct {
	IDPatterns    []*regexp.Regexp
	ValuePatterns []*regexp.Regexp
	MaxValueLen   int // values longer than this are random; 0 disables
}

// DefaultHeuristics rejects hex strings, UUID-shaped ids, long digit runs,
// framework-generated ids (React, Radix, MUI, Headless UI) and long opaque
// tokens.
func DefaultHeuristics() *PatternHeuristics {
	return &PatternHeuristics{
		IDPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^[a-f0-9]{8,}$`),
			regexp.MustCompile(`^[\w-]+-[\w-]+-[\w-]+$`),
			regexp.MustCompile(`^\d{10,}$`),
			regexp.MustCompile(`^react-`),
			regexp.MustCompile(`^radix-`),
			regexp.MustCompile(`^:r[0-9]+:$`),
			regexp.MustCompile(`^mui-[0-9]+$`),
			regexp.MustCompile(`^headlessui-`),
			regexp.MustCompile(`(?i)^[a-z0-9]{20,}$`),
		},
		ValuePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^[a-f0-9]{16,}$`),
		},
		MaxValueLen: 50,
	}
}

func (h *PatternHeuristics) RandomID(id string) bool {
	return anyMatch(h.IDPatterns, id)
}

func (h *PatternHeuristics) RandomValue(v string) bool {
	if h.MaxValueLen > 0 && len(v) > h.MaxValueLen {
		return true
	}
	return anyMatch(h.ValuePatterns, v)
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
