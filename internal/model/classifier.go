// Package model adapts pre-trained diabetes classifiers to the feature
// vectors produced by the survey package.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/survey"
)

var (
	// ErrArtifactLoad means the model artifact could not be read or parsed.
	ErrArtifactLoad = errors.New("model artifact load failed")
	// ErrFeatureMismatch means the artifact does not expect the survey's feature order.
	ErrFeatureMismatch = errors.New("model feature mismatch")
	// ErrShapeMismatch means the classifier returned an unexpected output shape.
	ErrShapeMismatch = errors.New("model output shape mismatch")
	// ErrPrediction covers any other failure while scoring a vector.
	ErrPrediction = errors.New("model prediction failed")
)

// Classifier returns the positive-class probability for a feature vector.
// Implementations are built once and are safe for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, features survey.FeatureVector) (float64, error)
	Name() string
}

// Options selects and configures a classifier. Exactly one of Path or URL is set.
type Options struct {
	Path    string
	URL     string
	Timeout time.Duration
}

// Load builds the classifier described by opts. A local artifact is parsed
// and checked against the feature order; a remote one must answer its health
// check. Any failure here is fatal for the process.
func Load(ctx context.Context, opts Options, logger *zap.Logger) (Classifier, error) {
	switch {
	case opts.Path != "" && opts.URL != "":
		return nil, fmt.Errorf("%w: set either a model path or a model URL, not both", ErrArtifactLoad)
	case opts.Path != "":
		m, err := LoadArtifact(opts.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("model artifact loaded", zap.String("path", opts.Path), zap.String("model", m.Name()))
		return m, nil
	case opts.URL != "":
		c := NewRemoteClassifier(opts.URL, opts.Timeout, logger)
		if err := c.Check(ctx); err != nil {
			return nil, err
		}
		logger.Info("remote model reachable", zap.String("url", opts.URL))
		return c, nil
	default:
		return nil, fmt.Errorf("%w: no model path or URL configured", ErrArtifactLoad)
	}
}
