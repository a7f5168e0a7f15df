package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/survey"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RemoteClassifier calls an inference server hosting the opaque artifact.
// The server mirrors predict_proba: one row in, one [p0, p1] row out.
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type predictRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type predictResponse struct {
	Model         string      `json:"model"`
	Probabilities [][]float64 `json:"probabilities"`
}

// NewRemoteClassifier builds a client for the server at baseURL.
func NewRemoteClassifier(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteClassifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("model.remote"),
	}
}

func (c *RemoteClassifier) Name() string { return "remote:" + c.baseURL }

// Check verifies the inference server is up.
func (c *RemoteClassifier) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: inference server unreachable: %v", ErrArtifactLoad, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: inference server health returned %d", ErrArtifactLoad, resp.StatusCode)
	}
	return nil
}

// Predict sends features in model column order and returns index 1 of the
// single returned probability row.
func (c *RemoteClassifier) Predict(ctx context.Context, features survey.FeatureVector) (float64, error) {
	body, err := json.Marshal(predictRequest{
		Columns: survey.Columns(),
		Rows:    [][]float64{features.Values()},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal request: %v", ErrPrediction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict_proba", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read response: %v", ErrPrediction, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("inference server returned error status",
			zap.Int("status", resp.StatusCode), zap.String("response", string(respBody)))
		return 0, fmt.Errorf("%w: inference server returned %d: %s", ErrPrediction, resp.StatusCode, string(respBody))
	}

	var out predictResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrShapeMismatch, err)
	}
	if len(out.Probabilities) != 1 || len(out.Probabilities[0]) != 2 {
		return 0, fmt.Errorf("%w: want 1x2 probabilities, got %s", ErrShapeMismatch, shape(out.Probabilities))
	}
	p := out.Probabilities[0][1]
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: positive-class probability %v outside [0,1]", ErrShapeMismatch, p)
	}

	c.logger.Debug("remote prediction complete",
		zap.Duration("duration", time.Since(start)), zap.String("model", out.Model))
	return p, nil
}

func shape(rows [][]float64) string {
	if len(rows) == 0 {
		return "0x0"
	}
	return fmt.Sprintf("%dx%d", len(rows), len(rows[0]))
}
