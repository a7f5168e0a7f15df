package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/diabetes-risk/internal/advice"
	"github.com/Skufu/diabetes-risk/internal/model"
	"github.com/Skufu/diabetes-risk/internal/observability"
	"github.com/Skufu/diabetes-risk/internal/pipeline"
	"github.com/Skufu/diabetes-risk/internal/survey"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type stubClassifier struct {
	p     float64
	err   error
	calls int
}

func (s *stubClassifier) Predict(context.Context, survey.FeatureVector) (float64, error) {
	s.calls++
	return s.p, s.err
}

func (s *stubClassifier) Name() string { return "stub" }

type stubAdvisor struct {
	text  string
	err   error
	calls int
}

func (s *stubAdvisor) Advise(context.Context, advice.Request) (string, error) {
	s.calls++
	return s.text, s.err
}

func scenarioAnswers() survey.Answers {
	return survey.Answers{
		Sex:                "Female",
		GeneralHealth:      "Good",
		PhysicalHealthDays: survey.Days(0),
		Stroke:             "No",
		FruitVeg:           "Yes",
		PhysicalActivity:   "Yes",
		HeartDisease:       "No",
		Race:               "White only, non-Hispanic",
		AgeGroup:           "55–59",
		BMI:                25.5,
		Education:          "Attended college/technical school",
		Smoker:             "Never smoked",
		Income:             "$50,000+",
	}
}

func newTestRouter(t *testing.T, clf model.Classifier, opts ...pipeline.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(Deps{Pipeline: pipeline.New(clf, opts...)})
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t, &stubClassifier{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouterReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		db     HealthChecker
		status int
		want   string
	}{
		{"disabled", nil, http.StatusOK, `"db":"disabled"`},
		{"healthy", fakeDB{}, http.StatusOK, `"db":"ok"`},
		{"unhealthy", fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(Deps{Pipeline: pipeline.New(&stubClassifier{}), DB: tc.db})
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestSurvey(t *testing.T) {
	router := newTestRouter(t, &stubClassifier{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/survey", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Questions  []survey.Question `json:"questions"`
		Features   []string          `json:"features"`
		Disclaimer string            `json:"disclaimer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Questions, 13)
	assert.Equal(t, survey.FeatureNames(), body.Features)
	assert.Equal(t, Disclaimer, body.Disclaimer)
}

func TestFeatures(t *testing.T) {
	clf := &stubClassifier{p: 0.9}
	router := newTestRouter(t, clf)

	w := postJSON(t, router, "/api/risk/features", scenarioAnswers())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body featuresResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	want := []float64{2, 3, 88, 2, 1, 1, 2, 1, 8, 2550, 3, 4, 2023, 5}
	if diff := cmp.Diff(want, body.Values); diff != "" {
		t.Fatalf("feature vector mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "MICHD", body.Features[6])
	assert.Zero(t, clf.calls, "features must not run the classifier")
}

func TestAssess_EndToEnd(t *testing.T) {
	adv := &stubAdvisor{text: "Walk after dinner."}
	router := newTestRouter(t, &stubClassifier{p: 0.30}, pipeline.WithAdvisor(adv))

	w := postJSON(t, router, "/api/risk/assess", scenarioAnswers())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body assessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, 0.30, body.Probability)
	assert.Equal(t, "30.0%", body.Percent)
	assert.Equal(t, "Medium", body.Tier)
	assert.Equal(t, "warning", body.Severity)
	assert.Contains(t, body.Message, "Your estimated risk level: Medium")
	assert.Equal(t, "stub", body.Model)
	assert.Equal(t, 2550.0, body.Features.Values[9])
	assert.Equal(t, "Walk after dinner.", body.Advice)
	assert.Empty(t, body.AdviceError)
	assert.Equal(t, Disclaimer, body.Disclaimer)
	assert.Equal(t, 1, adv.calls)
}

func TestAssess_AdviceFailureStillReturnsEstimate(t *testing.T) {
	adv := &stubAdvisor{err: errors.New("quota exceeded")}
	router := newTestRouter(t, &stubClassifier{p: 0.52}, pipeline.WithAdvisor(adv))

	w := postJSON(t, router, "/api/risk/assess", scenarioAnswers())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "High", body["tier"])
	assert.Equal(t, "error", body["severity"])
	assert.Equal(t, "Could not generate advice: quota exceeded", body["advice_error"])
	assert.NotContains(t, body, "advice")
}

func TestAssess_SkipAdvice(t *testing.T) {
	adv := &stubAdvisor{text: "unused"}
	router := newTestRouter(t, &stubClassifier{p: 0.1}, pipeline.WithAdvisor(adv))

	w := postJSON(t, router, "/api/risk/assess?skip_advice=true", scenarioAnswers())
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Low", body["tier"])
	assert.NotContains(t, body, "advice_error")
	assert.Zero(t, adv.calls)
}

func TestAssess_InferenceFailure(t *testing.T) {
	adv := &stubAdvisor{text: "unused"}
	router := newTestRouter(t, &stubClassifier{err: model.ErrShapeMismatch}, pipeline.WithAdvisor(adv))

	w := postJSON(t, router, "/api/risk/assess", scenarioAnswers())
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body := decode(t, w)
	assert.Equal(t, "inference_failed", body["error"])
	assert.Contains(t, body["details"], "possible input mismatch")
	assert.Zero(t, adv.calls)
}

func TestAssess_ValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*survey.Answers)
		detail string
	}{
		{"bmi below range", func(a *survey.Answers) { a.BMI = 9.5 }, "bmi must be at least 10"},
		{"bmi missing", func(a *survey.Answers) { a.BMI = 0 }, "bmi is required"},
		{"days above range", func(a *survey.Answers) { a.PhysicalHealthDays = survey.Days(31) }, "physical_health_days must be at most 30"},
		{"days null", func(a *survey.Answers) { a.PhysicalHealthDays = nil }, "physical_health_days is required"},
		{"sex missing", func(a *survey.Answers) { a.Sex = "" }, "sex is required"},
		{"unknown option", func(a *survey.Answers) { a.Income = "$1,000,000+" }, "income"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clf := &stubClassifier{p: 0.5}
			router := newTestRouter(t, clf)

			a := scenarioAnswers()
			tc.mutate(&a)
			w := postJSON(t, router, "/api/risk/assess", a)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, "validation_failed", body["error"])
			assert.Contains(t, w.Body.String(), tc.detail)
			assert.Zero(t, clf.calls)
		})
	}
}

func TestOmittedDaysIsRejected(t *testing.T) {
	raw, err := json.Marshal(scenarioAnswers())
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	delete(payload, "physical_health_days")

	for _, path := range []string{"/api/risk/assess", "/api/risk/features"} {
		t.Run(path, func(t *testing.T) {
			clf := &stubClassifier{p: 0.5}
			router := newTestRouter(t, clf)

			w := postJSON(t, router, path, payload)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "physical_health_days is required")
			assert.Zero(t, clf.calls)
		})
	}
}

func TestAssess_MalformedJSON(t *testing.T) {
	router := newTestRouter(t, &stubClassifier{})
	w := postJSON(t, router, "/api/risk/assess", `{"sex": "Female",`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid payload")
}

func TestAssess_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{
		Pipeline: pipeline.New(&stubClassifier{p: 0.2}),
		Limiter:  NewRateLimiter(1, 1),
	})

	first := postJSON(t, router, "/api/risk/assess?skip_advice=true", scenarioAnswers())
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, router, "/api/risk/assess?skip_advice=true", scenarioAnswers())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	// the feature preview is not limited
	third := postJSON(t, router, "/api/risk/features", scenarioAnswers())
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	router := NewRouter(Deps{
		Pipeline: pipeline.New(&stubClassifier{p: 0.7}, pipeline.WithObserver(m)),
		Metrics:  m,
	})

	w := postJSON(t, router, "/api/risk/assess?skip_advice=true", scenarioAnswers())
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `risk_assessments_total{tier="High"} 1`)
	assert.Contains(t, w.Body.String(), `route="/api/risk/assess"`)
}
