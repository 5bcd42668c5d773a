package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/ml"
)

const (
	mlScale      = 50
	mlFailedText = "ML scoring failed"
)

var ErrInvalidProbability = errors.New("classifier returned an invalid probability")

// applyML appends the classifier reason to reasons. A nil handle leaves
// reasons unchanged. Any failure, including a panic inside the classifier,
// appends a zero-point diagnostic reason and returns the cause.
func applyML(ctx context.Context, h *ml.Handle, set features.Set, reasons []Reason) (out []Reason, err error) {
	if h == nil || h.Classifier == nil {
		return reasons, nil
	}

	failed := func(cause error) ([]Reason, error) {
		return append(slices.Clone(reasons), Reason{Text: mlFailedText, Points: 0}), cause
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = failed(fmt.Errorf("classifier panic: %v", r))
		}
	}()

	vec := ml.Encode(h.Features, set)
	p, err := h.Classifier.PredictProba(ctx, vec)
	if err != nil {
		return failed(err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return failed(fmt.Errorf("%w: %v", ErrInvalidProbability, p))
	}

	points := clamp(int(math.Round(p*mlScale)), 0, mlScale)
	return append(slices.Clone(reasons), Reason{
		Text:   fmt.Sprintf("ML probability: %.2f", p),
		Points: points,
	}), nil
}
