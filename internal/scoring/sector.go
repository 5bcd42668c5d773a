package scoring

import "strings"

// DefaultSector is used when a caller supplies none.
const DefaultSector = "general"

func sectorBoost(sector string) []Reason {
	switch strings.ToLower(strings.TrimSpace(sector)) {
	case "banking", "finance", "payment":
		return []Reason{{Text: "Banking/finance related → higher risk", Points: 10}}
	case "social", "messaging", "email":
		return []Reason{{Text: "Social/messaging related → phishing prone", Points: 5}}
	default:
		return nil
	}
}

func normalizeSector(sector string) string {
	s := strings.ToLower(strings.TrimSpace(sector))
	if s == "" {
		return DefaultSector
	}
	return s
}
