package scoring

const (
	MinScore = 0
	MaxScore = 100

	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// Aggregate sums reason points, clamps the total to [0, 100], and derives
// the status label.
func Aggregate(reasons []Reason) (int, Status) {
	var sum int
	for _, r := range reasons {
		sum += r.Points
	}
	score := clamp(sum, MinScore, MaxScore)
	return score, StatusFor(score)
}

// StatusFor maps a score to its status label.
func StatusFor(score int) Status {
	switch {
	case score >= HighRiskThreshold:
		return HighRisk
	case score >= MediumRiskThreshold:
		return MediumRisk
	default:
		return Safe
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
