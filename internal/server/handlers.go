package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/pipeline"
	"github.com/Skufu/diabetes-risk/internal/survey"
)

// Disclaimer accompanies every result.
const Disclaimer = "This is an educational tool only. It is not a medical diagnosis. " +
	"Always consult your family doctor, nurse practitioner or certified diabetes educator. " +
	"Results are estimates based on survey data patterns."

type handlers struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

type featuresResponse struct {
	Features []string  `json:"features"`
	Values   []float64 `json:"values"`
}

type assessResponse struct {
	ID          string           `json:"id"`
	Probability float64          `json:"probability"`
	Percent     string           `json:"percent"`
	Tier        string           `json:"tier"`
	Severity    string           `json:"severity"`
	Message     string           `json:"message"`
	Model       string           `json:"model"`
	Features    featuresResponse `json:"features"`
	Advice      string           `json:"advice,omitempty"`
	AdviceError string           `json:"advice_error,omitempty"`
	Disclaimer  string           `json:"disclaimer"`
}

func (h *handlers) survey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"questions":  survey.Catalogue(),
		"features":   survey.FeatureNames(),
		"disclaimer": Disclaimer,
	})
}

func (h *handlers) features(c *gin.Context) {
	answers, ok := bindAnswers(c)
	if !ok {
		return
	}
	v, err := h.pipeline.Features(answers)
	if err != nil {
		writePipelineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newFeaturesResponse(v))
}

func (h *handlers) assess(c *gin.Context) {
	answers, ok := bindAnswers(c)
	if !ok {
		return
	}

	skip, _ := strconv.ParseBool(c.DefaultQuery("skip_advice", "false"))
	res, err := h.pipeline.Assess(c.Request.Context(), answers, pipeline.AssessOptions{SkipAdvice: skip})
	if err != nil {
		writePipelineError(c, h.logger, err)
		return
	}

	resp := assessResponse{
		ID:          res.ID.String(),
		Probability: res.Estimate.Probability,
		Percent:     res.Estimate.Percent(),
		Tier:        res.Estimate.Tier.String(),
		Severity:    res.Estimate.Tier.Severity(),
		Message:     res.Estimate.Message(),
		Model:       res.Model,
		Features:    newFeaturesResponse(res.Features),
		Advice:      res.Advice,
		Disclaimer:  Disclaimer,
	}
	if res.AdviceError != nil {
		resp.AdviceError = "Could not generate advice: " + res.AdviceError.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func newFeaturesResponse(v survey.FeatureVector) featuresResponse {
	return featuresResponse{Features: survey.FeatureNames(), Values: v.Values()}
}

func bindAnswers(c *gin.Context) (survey.Answers, bool) {
	var answers survey.Answers
	err := c.ShouldBindJSON(&answers)
	if err == nil {
		return answers, true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describe(fe))
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": details})
		return answers, false
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
		return answers, false
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	return answers, false
}

func writePipelineError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		fields := survey.FieldErrors(err)
		details := make([]string, 0, len(fields))
		for _, fe := range fields {
			details = append(details, fe.Error())
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": details})
	case errors.Is(err, pipeline.ErrInference):
		logger.Error("inference failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "inference_failed",
			"details": "Model prediction failed, possible input mismatch: " + err.Error(),
		})
	default:
		logger.Error("assessment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

var fieldNamesOnce sync.Once

// registerJSONFieldNames makes validation errors name fields as the JSON
// payload does.
func registerJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}
