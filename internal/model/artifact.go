package model

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/diabetes-risk/internal/survey"
)

// ArtifactKindLogistic is the only artifact kind scored in-process.
const ArtifactKindLogistic = "logistic"

// Artifact is the on-disk form of an exported model. JSON documents parse
// as well, since they are valid YAML.
type Artifact struct {
	Name         string    `yaml:"name"`
	Kind         string    `yaml:"kind"`
	Features     []string  `yaml:"features"`
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`
}

// LinearModel scores vectors with a logistic link over exported weights.
type LinearModel struct {
	name      string
	weights   [survey.FeatureCount]float64
	intercept float64
}

// LoadArtifact reads and validates a model artifact file.
func LoadArtifact(path string) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	var a Artifact
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrArtifactLoad, path, err)
	}
	return NewLinearModel(a)
}

// NewLinearModel validates an artifact against the survey feature order.
func NewLinearModel(a Artifact) (*LinearModel, error) {
	if a.Kind != "" && a.Kind != ArtifactKindLogistic {
		return nil, fmt.Errorf("%w: unsupported artifact kind %q", ErrArtifactLoad, a.Kind)
	}
	if len(a.Features) != survey.FeatureCount {
		return nil, fmt.Errorf("%w: artifact lists %d features, want %d", ErrFeatureMismatch, len(a.Features), survey.FeatureCount)
	}
	if len(a.Coefficients) != survey.FeatureCount {
		return nil, fmt.Errorf("%w: artifact has %d coefficients, want %d", ErrFeatureMismatch, len(a.Coefficients), survey.FeatureCount)
	}
	for i, name := range a.Features {
		f := survey.Feature(i)
		if !strings.EqualFold(name, f.String()) && !strings.EqualFold(name, f.Column()) {
			return nil, fmt.Errorf("%w: position %d is %q, want %q", ErrFeatureMismatch, i, name, f.Column())
		}
	}

	m := &LinearModel{name: a.Name, intercept: a.Intercept}
	if m.name == "" {
		m.name = ArtifactKindLogistic
	}
	copy(m.weights[:], a.Coefficients)
	return m, nil
}

func (m *LinearModel) Name() string { return m.name }

// Predict returns the class-1 probability for features.
func (m *LinearModel) Predict(ctx context.Context, features survey.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	z := m.intercept
	for i, x := range features.Values() {
		z += m.weights[i] * x
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: score is not a number", ErrPrediction)
	}
	return p, nil
}
