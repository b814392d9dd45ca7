package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"arogya-swarm/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlender(t *testing.T) *Blender {
	t.Helper()
	b, err := NewBlender(DefaultConfig(), nil)
	require.NoError(t, err)
	return b
}

func assessment(likelihood string, confidence int, increase string) string {
	return fmt.Sprintf(`{"surge_likelihood":%q,"confidence_score":%d,"predicted_patient_increase":%q,"departments_affected":["ER","ICU","ER"],"time_horizon":"48h","reasoning":"AQI above 300"}`,
		likelihood, confidence, increase)
}

func TestBlend_AgreementBonus(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 18.0}
	res := newBlender(t).Blend(assessment("high", 70, "22%"), fc)

	require.False(t, res.Degraded())
	p := res.Prediction
	assert.Equal(t, 85, p.ConfidenceScore)
	assert.Equal(t, models.LikelihoodHigh, p.Likelihood)
	assert.Equal(t, 22.0, p.PredictedIncreasePct)
	assert.Equal(t, []string{"ER", "ICU"}, p.AffectedDepartments)
	assert.Equal(t, models.Horizon48h, p.TimeHorizon)
	require.NotNil(t, p.StatisticalForecast)
	assert.Equal(t, 18.0, p.StatisticalForecast.PredictedIncreasePct)
}

func TestBlend_NoBonusOnDisagreement(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 5.0}
	res := newBlender(t).Blend(assessment("high", 70, "40%"), fc)
	assert.Equal(t, 70, res.Prediction.ConfidenceScore)
}

func TestBlend_BoundaryIsExclusive(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 20.0}
	res := newBlender(t).Blend(assessment("medium", 50, "30%"), fc)
	assert.Equal(t, 50, res.Prediction.ConfidenceScore)
}

func TestBlend_BonusCapped(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 30.0}
	res := newBlender(t).Blend(assessment("critical", 90, "31%"), fc)
	assert.Equal(t, 95, res.Prediction.ConfidenceScore)
}

func TestBlend_DefaultRecordOnGarbage(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 18.0}
	for _, raw := range []string{"not json at all", `{"surge_likelihood": "high"`, `{"reasoning":"no fields"}`, ""} {
		res := newBlender(t).Blend(raw, fc)

		var perr *ParseError
		require.ErrorAs(t, res.ParseErr, &perr)
		want := DefaultPrediction()
		want.StatisticalForecast = fc
		assert.Equal(t, want, res.Prediction)
	}
}

func TestBlend_DefaultRecordWithoutForecast(t *testing.T) {
	res := newBlender(t).Blend("garbage", nil)
	assert.Equal(t, DefaultPrediction(), res.Prediction)
}

func TestBlend_MissingIncreaseAssumesTwenty(t *testing.T) {
	raw := `{"surge_likelihood":"high","confidence_score":60}`
	res := newBlender(t).Blend(raw, &models.Forecast{PredictedIncreasePct: 25})
	assert.Equal(t, 75, res.Prediction.ConfidenceScore)
	assert.Equal(t, 20.0, res.Prediction.PredictedIncreasePct)
	assert.Equal(t, models.Horizon24h, res.Prediction.TimeHorizon)
}

func TestBlend_UnparseableIncreaseSkipsBonus(t *testing.T) {
	res := newBlender(t).Blend(assessment("high", 60, "a lot"), &models.Forecast{PredictedIncreasePct: 25})
	assert.False(t, res.Degraded())
	assert.Equal(t, 60, res.Prediction.ConfidenceScore)
	assert.Equal(t, 25.0, res.Prediction.PredictedIncreasePct)
}

func TestBlend_NonFiniteIncreaseSkipsBonus(t *testing.T) {
	for _, increase := range []string{"NaN%", "Inf", "-infinity %"} {
		res := newBlender(t).Blend(assessment("high", 70, increase), &models.Forecast{PredictedIncreasePct: 18})
		assert.False(t, res.Degraded(), increase)
		assert.Equal(t, 70, res.Prediction.ConfidenceScore, increase)
		assert.Equal(t, 18.0, res.Prediction.PredictedIncreasePct, increase)
		_, err := json.Marshal(res.Prediction)
		assert.NoError(t, err, increase)
	}
}

func TestBlend_NonFiniteForecastIgnored(t *testing.T) {
	res := newBlender(t).Blend(assessment("high", 70, "22%"), &models.Forecast{PredictedIncreasePct: math.NaN()})
	assert.Equal(t, 70, res.Prediction.ConfidenceScore)
	assert.Equal(t, 22.0, res.Prediction.PredictedIncreasePct)
	assert.Nil(t, res.Prediction.StatisticalForecast)
	_, err := json.Marshal(res.Prediction)
	assert.NoError(t, err)
}

func TestBlend_ConfidenceFormats(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		want       int
	}{
		{"integer", `70`, 70},
		{"fraction rounds up", `72.5`, 73},
		{"fraction rounds down", `64.2`, 64},
		{"numeric string", `"85"`, 85},
		{"above range", `140.7`, 100},
		{"below range", `-3`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"surge_likelihood":"critical","confidence_score":` + tt.confidence + `,"predicted_patient_increase":"40%"}`
			res := newBlender(t).Blend(raw, nil)
			require.False(t, res.Degraded())
			assert.Equal(t, models.LikelihoodCritical, res.Prediction.Likelihood)
			assert.Equal(t, tt.want, res.Prediction.ConfidenceScore)
		})
	}

	for _, bad := range []string{`"high"`, `""`, `null`, `true`} {
		raw := `{"surge_likelihood":"critical","confidence_score":` + bad + `}`
		res := newBlender(t).Blend(raw, nil)
		assert.True(t, res.Degraded(), bad)
		assert.Equal(t, DefaultPrediction(), res.Prediction, bad)
	}
}

func TestBlend_NoForecastNoBonus(t *testing.T) {
	res := newBlender(t).Blend(assessment("high", 70, "22%"), nil)
	assert.Equal(t, 70, res.Prediction.ConfidenceScore)
	assert.Nil(t, res.Prediction.StatisticalForecast)
}

func TestBlend_ConfidenceBounds(t *testing.T) {
	b := newBlender(t)
	for _, confidence := range []int{-50, -1, 0, 10, 60, 80, 94, 95, 96, 100, 150} {
		for _, fcIncrease := range []float64{0, 21, 50} {
			res := b.Blend(assessment("high", confidence, "22%"), &models.Forecast{PredictedIncreasePct: fcIncrease})
			c := res.Prediction.ConfidenceScore
			assert.GreaterOrEqual(t, c, 0)
			if fcIncrease == 21 {
				assert.LessOrEqual(t, c, 95, "confidence %d with bonus", confidence)
			} else {
				assert.LessOrEqual(t, c, 100, "confidence %d without bonus", confidence)
			}
		}
	}
}

func TestBlend_ForecastIsCopied(t *testing.T) {
	fc := &models.Forecast{PredictedIncreasePct: 18}
	res := newBlender(t).Blend(assessment("high", 70, "22%"), fc)
	fc.PredictedIncreasePct = 99
	assert.Equal(t, 18.0, res.Prediction.StatisticalForecast.PredictedIncreasePct)
}

func TestBlend_ForecastPointsAreCopied(t *testing.T) {
	fc := &models.Forecast{
		PredictedIncreasePct: 18,
		Points:               []models.ForecastPoint{{Estimate: 120}, {Estimate: 130}},
	}
	for _, raw := range []string{assessment("high", 70, "22%"), "garbage"} {
		res := newBlender(t).Blend(raw, fc)
		fc.Points[0].Estimate = -1
		require.NotNil(t, res.Prediction.StatisticalForecast)
		assert.Equal(t, 120.0, res.Prediction.StatisticalForecast.Points[0].Estimate)
		fc.Points[0].Estimate = 120
	}
}

func TestParseIncrease(t *testing.T) {
	tests := map[string]float64{"22%": 22, "22": 22, " +22.5 % ": 22.5, "-3%": -3}
	for in, want := range tests {
		got, err := ParseIncrease(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"lots", "NaN%", "Inf", "+infinity", "-Inf %"} {
		_, err := ParseIncrease(in)
		assert.Error(t, err, in)
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{AgreementThreshold: 0, AgreementBonus: 15, ConfidenceCap: 95}.Validate())
	assert.Error(t, Config{AgreementThreshold: 10, AgreementBonus: -1, ConfidenceCap: 95}.Validate())
	assert.Error(t, Config{AgreementThreshold: 10, AgreementBonus: 15, ConfidenceCap: 101}.Validate())

	_, err := NewBlender(Config{}, nil)
	assert.Error(t, err)
}
