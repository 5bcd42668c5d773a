// Package ml adapts a trained binary classifier to the scoring engine.
//
// A Handle pairs a Classifier with the ordered feature columns used during
// training. Encode turns any features.Set into a vector in that order.
package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrDimension = errors.New("feature vector length mismatch")
	ErrNoColumns = errors.New("no feature columns")
)

// Classifier returns the positive-class probability for one vector.
type Classifier interface {
	PredictProba(ctx context.Context, vec []float64) (float64, error)
}

// Handle is a loaded classifier and its feature column order.
type Handle struct {
	Classifier Classifier
	Features   []string
}

// Load reads an XGBoost JSON model and its feature columns. When
// columnsPath is empty or missing, the model's feature_names are used.
func Load(modelPath, columnsPath string) (*Handle, error) {
	mf, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer mf.Close()

	var cols io.Reader
	if columnsPath != "" {
		cf, err := os.Open(columnsPath)
		switch {
		case err == nil:
			defer cf.Close()
			cols = cf
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("open feature columns: %w", err)
		}
	}

	return Read(mf, cols)
}

// Read builds a Handle from a model document and an optional feature
// columns document.
func Read(model io.Reader, columns io.Reader) (*Handle, error) {
	booster, err := ParseBooster(model)
	if err != nil {
		return nil, err
	}

	names := booster.FeatureNames()
	if columns != nil {
		names, err = ParseColumns(columns)
		if err != nil {
			return nil, err
		}
	}
	if len(names) == 0 {
		return nil, ErrNoColumns
	}
	if n := booster.NumFeatures(); n > 0 && n != len(names) {
		return nil, fmt.Errorf("%w: model expects %d, columns list %d", ErrDimension, n, len(names))
	}

	return &Handle{Classifier: booster, Features: names}, nil
}

// ParseColumns decodes a JSON array of feature names.
func ParseColumns(r io.Reader) ([]string, error) {
	var names []string
	if err := json.NewDecoder(r).Decode(&names); err != nil {
		return nil, fmt.Errorf("decode feature columns: %w", err)
	}
	return names, nil
}
