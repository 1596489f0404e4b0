package engine

import (
	"testing"
	"time"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/config"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 6, 20, 15, 0, 0, 0, time.UTC)

func saving(category activitydomain.Category, date time.Time, co2 float64) activitydomain.Activity {
	return activitydomain.Activity{
		Category:  category,
		Intent:    activitydomain.IntentReduction,
		Date:      date,
		CO2Amount: co2,
	}
}

// series places one electricity saving per month, oldest first, ending in
// asOf's month.
func series(values ...float64) []activitydomain.Activity {
	from, _ := Window(asOf, len(values))
	out := make([]activitydomain.Activity, 0, len(values))
	for i, v := range values {
		out = append(out, saving(activitydomain.CategoryElectricity, from.AddDate(0, i, 4), v))
	}
	return out
}

func TestWindow(t *testing.T) {
	from, to := Window(asOf, 6)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), to)
}

func TestFitLinearSeries(t *testing.T) {
	reg := Fit([]float64{10, 20, 30, 40, 50, 60})
	assert.InDelta(t, 10, reg.Slope, 1e-9)
	assert.InDelta(t, 10, reg.Intercept, 1e-9)
	assert.InDelta(t, 1, reg.RSquared, 1e-9)

	projection := Project(reg, 6, 2)
	require.Len(t, projection, 2)
	assert.InDelta(t, 70, projection[0], 1e-9)
	assert.InDelta(t, 80, projection[1], 1e-9)
}

func TestProjectClampsAtZero(t *testing.T) {
	reg := Fit([]float64{60, 40, 20, 0})
	assert.InDelta(t, -20, reg.Slope, 1e-9)
	assert.Equal(t, []float64{0, 0}, Project(reg, 4, 2))
}

func TestComputeRegressionScenario(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	got := Compute(Input{
		Scope:         forecastdomain.ScopeGlobal,
		Activities:    series(10, 20, 30, 40, 50, 60),
		AsOf:          asOf,
		HorizonMonths: 2,
	}, cfg)

	require.Equal(t, forecastdomain.StatusOK, got.Status)
	assert.Equal(t, 6, got.WindowMonths)
	assert.Equal(t, 6, got.MonthsWithData)
	require.NotNil(t, got.NextMonth)
	assert.InDelta(t, 70, *got.NextMonth, 1e-9)
	assert.InDelta(t, 80, got.Projection[1], 1e-9)
	assert.InDelta(t, 150, *got.ProjectedValue, 1e-9)
	assert.Equal(t, forecastdomain.TrendImproving, *got.Trend)
	assert.Greater(t, got.Confidence, 0.0)
	assert.Equal(t, 100.0, got.Confidence)
}

func TestComputeFlatSeriesIsStable(t *testing.T) {
	got := Compute(Input{
		Activities:    series(50, 50, 50, 50, 50, 50),
		AsOf:          asOf,
		HorizonMonths: 1,
	}, config.DefaultEngineConfig())

	require.Equal(t, forecastdomain.StatusOK, got.Status)
	assert.InDelta(t, 0, got.Regression.Slope, 1e-9)
	assert.Equal(t, forecastdomain.TrendStable, *got.Trend)
	assert.Equal(t, 1.0, got.Regression.RSquared)
	assert.InDelta(t, 50, *got.NextMonth, 1e-9)
}

func TestComputeClampsOversizedWindowAndHorizon(t *testing.T) {
	cfg := config.DefaultEngineConfig()

	tests := []struct {
		name        string
		in          Input
		unbounded   bool
		wantWindow  int
		wantHorizon int
	}{
		{
			name:        "huge horizon",
			in:          Input{Activities: series(10, 20, 30), AsOf: asOf, HorizonMonths: 1 << 62},
			wantWindow:  cfg.WindowMonths,
			wantHorizon: cfg.MaxHorizonMonths,
		},
		{
			name:        "huge window",
			in:          Input{Activities: series(10, 20, 30), AsOf: asOf, HorizonMonths: 1, WindowMonths: 1 << 62},
			wantWindow:  cfg.MaxWindowMonths,
			wantHorizon: 1,
		},
		{
			name:        "bounds missing from config",
			in:          Input{Activities: series(10, 20, 30), AsOf: asOf, HorizonMonths: 1 << 40, WindowMonths: 1 << 40},
			unbounded:   true,
			wantWindow:  defaultMaxWindowMonths,
			wantHorizon: defaultMaxHorizonMonths,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			if tt.unbounded {
				c.MaxWindowMonths = 0
				c.MaxHorizonMonths = 0
			}
			var got forecastdomain.Forecast
			require.NotPanics(t, func() { got = Compute(tt.in, c) })
			assert.Equal(t, tt.wantWindow, got.WindowMonths)
			assert.Len(t, got.Buckets, tt.wantWindow)
			assert.Equal(t, tt.wantHorizon, got.HorizonMonths)
			assert.Len(t, got.Projection, tt.wantHorizon)
		})
	}
}

func TestComputeSingleMonthIsInsufficient(t *testing.T) {
	got := Compute(Input{
		Activities: []activitydomain.Activity{
			saving(activitydomain.CategoryFuel, asOf, 12),
			saving(activitydomain.CategoryFuel, asOf.AddDate(0, 0, -3), 8),
		},
		AsOf:          asOf,
		HorizonMonths: 1,
	}, config.DefaultEngineConfig())

	assert.Equal(t, forecastdomain.StatusInsufficientData, got.Status)
	assert.Zero(t, got.Confidence)
	assert.Nil(t, got.Trend)
	assert.Nil(t, got.NextMonth)
	assert.Nil(t, got.ProjectedValue)
	assert.Equal(t, 1, got.MonthsWithData)
}

func TestComputeIgnoresEmissionsAndOutOfWindow(t *testing.T) {
	activities := series(10, 20)
	activities = append(activities,
		activitydomain.Activity{Category: activitydomain.CategoryFuel, Intent: activitydomain.IntentEmission, Date: asOf, CO2Amount: 500},
		saving(activitydomain.CategoryWater, asOf.AddDate(-1, 0, 0), 900),
		saving(activitydomain.CategoryWater, asOf.AddDate(0, 1, 0), 900),
	)

	got := Compute(Input{Activities: activities, AsOf: asOf, HorizonMonths: 1, WindowMonths: 2}, config.DefaultEngineConfig())

	require.Equal(t, forecastdomain.StatusOK, got.Status)
	require.Len(t, got.Buckets, 2)
	assert.Equal(t, 10.0, got.Buckets[0].TotalSaved)
	assert.Equal(t, 20.0, got.Buckets[1].TotalSaved)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, activitydomain.CategoryElectricity, got.Categories[0].Category)
}

func TestBuildBucketsFillsEmptyMonths(t *testing.T) {
	buckets := BuildBuckets([]activitydomain.Activity{
		saving(activitydomain.CategoryPaper, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 3),
		saving(activitydomain.CategoryPaper, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), 4),
		saving(activitydomain.CategoryPaper, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1),
	}, asOf, 6)

	require.Len(t, buckets, 6)
	want := []float64{0, 7, 0, 0, 0, 1}
	for i, b := range buckets {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, want[i], b.TotalSaved, "bucket %d", i)
	}
	assert.Equal(t, 2, buckets[1].ActivityCount)
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name  string
		slope float64
		mean  float64
		want  forecastdomain.Trend
	}{
		{"improving", 3, 50, forecastdomain.TrendImproving},
		{"within_epsilon", 2.5, 50, forecastdomain.TrendStable},
		{"declining", -3, 50, forecastdomain.TrendDeclining},
		{"zero_mean_flat", 0.005, 0, forecastdomain.TrendStable},
		{"zero_mean_rising", 0.5, 0, forecastdomain.TrendImproving},
		{"zero_mean_falling", -0.5, 0, forecastdomain.TrendDeclining},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTrend(tc.slope, tc.mean, 0.05, 0.01))
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 100.0, Confidence(1, 6))
	assert.Equal(t, 33.3, Confidence(1, 2))
	assert.Equal(t, 0.0, Confidence(-0.4, 6))
	assert.Equal(t, 100.0, Confidence(1.2, 12))
}

func TestTopContributorAndRecommendations(t *testing.T) {
	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	activities := []activitydomain.Activity{
		saving(activitydomain.CategoryPaper, march, 10),
		saving(activitydomain.CategoryFuel, march, 80),
		saving(activitydomain.CategoryElectricity, march, 70),
		saving(activitydomain.CategoryElectricity, march.AddDate(0, 1, 0), 50),
	}

	got := Compute(Input{Activities: activities, AsOf: asOf, HorizonMonths: 1}, config.DefaultEngineConfig())

	require.NotNil(t, got.TopCategory)
	assert.Equal(t, activitydomain.CategoryElectricity, *got.TopCategory)
	require.Len(t, got.Categories, 3)
	assert.Equal(t, 120.0, got.Categories[0].TotalSaved)
	assert.Equal(t, activitydomain.CategoryFuel, got.Categories[1].Category)
	assert.Equal(t, activitydomain.CategoryPaper, got.Categories[2].Category)
	assert.Equal(t, "Switch remaining lighting to LED", got.Recommendations[0])
	assert.Len(t, got.Recommendations, 8)
}

func TestRankCategoriesTieBreaks(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ranked := RankCategories([]activitydomain.Activity{
		saving(activitydomain.CategoryWater, d, 10),
		saving(activitydomain.CategoryWaste, d.AddDate(0, 0, 3), 10),
		saving(activitydomain.CategoryFuel, d, 10),
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, activitydomain.CategoryWaste, ranked[0].Category)
	assert.Equal(t, activitydomain.CategoryFuel, ranked[1].Category)
	assert.Equal(t, activitydomain.CategoryWater, ranked[2].Category)
}

func TestRecommendDeduplicatesAndLimits(t *testing.T) {
	table := map[string][]string{
		"fuel":   {"a", "b"},
		"travel": {"b", "c"},
		"paper":  {"d"},
		"water":  {"e"},
	}
	ranked := []forecastdomain.CategoryContribution{
		{Category: activitydomain.CategoryFuel},
		{Category: activitydomain.CategoryTravel},
		{Category: activitydomain.CategoryElectricity},
		{Category: activitydomain.CategoryWater},
	}

	assert.Equal(t, []string{"a", "b", "c"}, Recommend(ranked, table, 3))
	assert.Equal(t, []string{"a", "b"}, Recommend(ranked, table, 1))
}
