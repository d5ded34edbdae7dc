package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	ModelLogisticRegression = "logistic_regression"
	ModelLinearSVC          = "linear_svc"
	ModelMultinomialNB      = "multinomial_nb"
)

var ErrDimensionMismatch = errors.New("feature vector does not match model dimension")

// ModelArtifact is the on-disk form of a fitted binary classifier.
type ModelArtifact struct {
	Type      string    `json:"type"`
	Classes   []int     `json:"classes,omitempty"`
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
}

type LinearModel struct {
	classes   [2]int
	coef      []float64
	intercept float64
}

func (m *LinearModel) Dim() int { return len(m.coef) }

// Predict returns classes[1] when the decision function is positive.
func (m *LinearModel) Predict(x SparseVector) (int, error) {
	if x.Dim != len(m.coef) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, x.Dim, len(m.coef))
	}
	score := m.intercept
	for i, idx := range x.Indices {
		score += m.coef[idx] * x.Values[i]
	}
	if score > 0 {
		return m.classes[1], nil
	}
	return m.classes[0], nil
}

type NaiveBayesModel struct {
	classes        [2]int
	classLogPrior  [2]float64
	featureLogProb [2][]float64
}

func (m *NaiveBayesModel) Dim() int { return len(m.featureLogProb[0]) }

func (m *NaiveBayesModel) Predict(x SparseVector) (int, error) {
	if x.Dim != m.Dim() {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, x.Dim, m.Dim())
	}
	best, bestScore := 0, math.Inf(-1)
	for c := 0; c < 2; c++ {
		score := m.classLogPrior[c]
		for i, idx := range x.Indices {
			score += m.featureLogProb[c][idx] * x.Values[i]
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return m.classes[best], nil
}

// NewModel builds a binary Model from its artifact.
func NewModel(a ModelArtifact) (Model, error) {
	classes := [2]int{0, 1}
	if len(a.Classes) != 0 {
		if len(a.Classes) != 2 {
			return nil, fmt.Errorf("binary model needs 2 classes, got %d", len(a.Classes))
		}
		classes = [2]int{a.Classes[0], a.Classes[1]}
	}

	switch a.Type {
	case ModelLogisticRegression, ModelLinearSVC:
		if len(a.Coef) == 0 {
			return nil, errors.New("linear model has no coefficients")
		}
		return &LinearModel{classes: classes, coef: a.Coef, intercept: a.Intercept}, nil
	case ModelMultinomialNB:
		if len(a.ClassLogPrior) != 2 || len(a.FeatureLogProb) != 2 {
			return nil, errors.New("naive bayes model needs priors and feature log probs for 2 classes")
		}
		if len(a.FeatureLogProb[0]) == 0 || len(a.FeatureLogProb[0]) != len(a.FeatureLogProb[1]) {
			return nil, errors.New("naive bayes feature log probs have inconsistent widths")
		}
		return &NaiveBayesModel{
			classes:        classes,
			classLogPrior:  [2]float64{a.ClassLogPrior[0], a.ClassLogPrior[1]},
			featureLogProb: [2][]float64{a.FeatureLogProb[0], a.FeatureLogProb[1]},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", a.Type)
	}
}

func LoadModel(path string) (Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var a ModelArtifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return NewModel(a)
}
