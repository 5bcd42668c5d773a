package ml

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/JaimeStill/linkguard/internal/features"
)

// HashBuckets bounds hashed string features.
const HashBuckets = 1000

// Encode builds the classifier input for set. The vector always has
// len(columns) slots in column order; unknown keys encode as 0.
func Encode(columns []string, set features.Set) []float64 {
	vec := make([]float64, len(columns))
	if set == nil {
		return vec
	}
	for i, name := range columns {
		v, ok := set.Lookup(name)
		if !ok {
			continue
		}
		vec[i] = encodeValue(v)
	}
	return vec
}

func encodeValue(v features.Value) float64 {
	switch v.Kind {
	case features.Number:
		return v.Num
	case features.Bool:
		if v.Bool {
			return 1
		}
		return 0
	case features.String:
		return Hash(v.Str)
	case features.List:
		return Hash(strings.Join(v.List, "_"))
	default:
		return 0
	}
}

// Hash maps s into [0, HashBuckets).
func Hash(s string) float64 {
	return float64(xxhash.Sum64String(s) % HashBuckets)
}
