package risk

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor_Boundaries(t *testing.T) {
	cases := []struct {
		p    float64
		want Tier
	}{
		{0, Low},
		{0.2499, Low},
		{0.25, Medium},
		{0.30, Medium},
		{0.5199, Medium},
		{0.52, High},
		{1, High},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.p), "p=%v", tc.p)
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	prev := TierFor(0)
	for i := 1; i <= 10000; i++ {
		cur := TierFor(float64(i) / 10000)
		require.GreaterOrEqual(t, cur, prev, "tier decreased at p=%v", float64(i)/10000)
		prev = cur
	}
}

func TestNewEstimate(t *testing.T) {
	est, err := NewEstimate(0.30)
	require.NoError(t, err)
	assert.Equal(t, Medium, est.Tier)
	assert.Equal(t, "30.0%", est.Percent())
	assert.Contains(t, est.Message(), "Medium")

	for _, bad := range []float64{-0.01, 1.01, math.NaN()} {
		_, err := NewEstimate(bad)
		assert.ErrorIs(t, err, ErrInvalidProbability)
	}
}

func TestPercentRounding(t *testing.T) {
	assert.Equal(t, "52.0%", Estimate{Probability: 0.52}.Percent())
	assert.Equal(t, "12.3%", Estimate{Probability: 0.12345}.Percent())
	assert.Equal(t, "0.0%", Estimate{Probability: 0}.Percent())
}

func TestTierSeverityAndJSON(t *testing.T) {
	assert.Equal(t, "error", High.Severity())
	assert.Equal(t, "warning", Medium.Severity())
	assert.Equal(t, "success", Low.Severity())

	b, err := json.Marshal(Estimate{Probability: 0.6, Tier: High})
	require.NoError(t, err)
	assert.JSONEq(t, `{"probability":0.6,"tier":"High"}`, string(b))
}
