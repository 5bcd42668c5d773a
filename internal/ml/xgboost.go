package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidModel = errors.New("invalid model")

// Booster evaluates a gradient-boosted tree ensemble saved in the XGBoost
// JSON model format.
type Booster struct {
	trees        []tree
	margin       float64
	logistic     bool
	numFeatures  int
	featureNames []string
}

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float64
	defaultLeft []bool
}

type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch s := strings.TrimSpace(string(b)); s {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return fmt.Errorf("invalid default_left value %s", s)
	}
	return nil
}

type modelDoc struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Model struct {
				Trees []struct {
					LeftChildren    []int     `json:"left_children"`
					RightChildren   []int     `json:"right_children"`
					SplitIndices    []int     `json:"split_indices"`
					SplitConditions []float64 `json:"split_conditions"`
					DefaultLeft     []flag    `json:"default_left"`
				} `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

// ParseBooster decodes an XGBoost JSON model.
func ParseBooster(r io.Reader) (*Booster, error) {
	var doc modelDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	l := doc.Learner
	if len(l.GradientBooster.Model.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidModel)
	}

	b := &Booster{
		logistic:     l.Objective.Name == "" || l.Objective.Name == "binary:logistic",
		featureNames: l.FeatureNames,
	}

	if n := l.LearnerModelParam.NumFeature; n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("%w: num_feature %q", ErrInvalidModel, n)
		}
		b.numFeatures = v
	}

	base := 0.5
	if s := strings.Trim(l.LearnerModelParam.BaseScore, "[] "); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: base_score %q", ErrInvalidModel, l.LearnerModelParam.BaseScore)
		}
		base = v
	}
	if b.logistic {
		if base <= 0 || base >= 1 {
			return nil, fmt.Errorf("%w: base_score %v outside (0,1)", ErrInvalidModel, base)
		}
		b.margin = math.Log(base / (1 - base))
	} else {
		b.margin = base
	}

	for i, t := range l.GradientBooster.Model.Trees {
		n := len(t.LeftChildren)
		if n == 0 || len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
			return nil, fmt.Errorf("%w: tree %d has inconsistent node arrays", ErrInvalidModel, i)
		}
		tr := tree{
			left:        t.LeftChildren,
			right:       t.RightChildren,
			splitIndex:  t.SplitIndices,
			splitCond:   t.SplitConditions,
			defaultLeft: make([]bool, n),
		}
		for j := 0; j < n && j < len(t.DefaultLeft); j++ {
			tr.defaultLeft[j] = bool(t.DefaultLeft[j])
		}
		for j := range n {
			if tr.left[j] == -1 {
				continue
			}
			if tr.left[j] < 0 || tr.right[j] < 0 || tr.left[j] >= n || tr.right[j] >= n {
				return nil, fmt.Errorf("%w: tree %d node %d child out of range", ErrInvalidModel, i, j)
			}
		}
		b.trees = append(b.trees, tr)
	}

	return b, nil
}

// FeatureNames returns the column names stored in the model, if any.
func (b *Booster) FeatureNames() []string { return b.featureNames }

// NumFeatures returns the model's declared input width, or 0 when unknown.
func (b *Booster) NumFeatures() int { return b.numFeatures }

// PredictProba sums the leaf values for vec across all trees and applies
// the logistic link for binary:logistic models.
func (b *Booster) PredictProba(ctx context.Context, vec []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.numFeatures > 0 && len(vec) != b.numFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), b.numFeatures)
	}

	sum := b.margin
	for i, t := range b.trees {
		leaf, err := t.eval(vec)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += leaf
	}

	if !b.logistic {
		return sum, nil
	}
	return 1 / (1 + math.Exp(-sum)), nil
}

func (t tree) eval(vec []float64) (float64, error) {
	node := 0
	for range len(t.left) {
		if t.left[node] == -1 {
			return t.splitCond[node], nil
		}
		idx := t.splitIndex[node]
		if idx < 0 || idx >= len(vec) {
			return 0, fmt.Errorf("%w: split index %d", ErrDimension, idx)
		}
		x := vec[idx]
		switch {
		case math.IsNaN(x):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case x < t.splitCond[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return 0, fmt.Errorf("%w: cycle in tree", ErrInvalidModel)
}
