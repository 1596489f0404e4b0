package engine

import (
	"math"
	"slices"
	"strings"
	"time"

	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/config"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
)

const (
	minMonthsWithData = 2
	// fullConfidenceMonths is the sample size at which confidence is no
	// longer down-weighted.
	fullConfidenceMonths = 6

	// Upper bounds applied when the config carries none.
	defaultMaxWindowMonths  = 120
	defaultMaxHorizonMonths = 60
)

// Input is the raw material of one forecast. Activities outside the window
// or without reduction intent are ignored.
type Input struct {
	Scope         string
	Activities    []activitydomain.Activity
	AsOf          time.Time
	HorizonMonths int
	WindowMonths  int
}

// Window returns the first day of the oldest month and the last day of the
// current month for a trailing window ending at asOf.
func Window(asOf time.Time, months int) (time.Time, time.Time) {
	current := monthStart(asOf)
	from := current.AddDate(0, -(months - 1), 0)
	to := current.AddDate(0, 1, -1)
	return from, to
}

// Compute builds buckets from activities and derives the forecast. It
// never fails; sparse data yields an insufficient_data result. Window and
// horizon are clamped to the configured maximums.
func Compute(in Input, cfg config.EngineConfig) forecastdomain.Forecast {
	window := in.WindowMonths
	if window <= 0 {
		window = cfg.WindowMonths
	}
	window = min(window, boundOr(cfg.MaxWindowMonths, defaultMaxWindowMonths))
	horizon := min(max(in.HorizonMonths, 1), boundOr(cfg.MaxHorizonMonths, defaultMaxHorizonMonths))

	activities := inWindow(in.Activities, in.AsOf, window)
	buckets := BuildBuckets(activities, in.AsOf, window)
	categories := RankCategories(activities)

	out := forecastdomain.Forecast{
		Scope:           in.Scope,
		Status:          forecastdomain.StatusInsufficientData,
		WindowMonths:    window,
		HorizonMonths:   horizon,
		Buckets:         buckets,
		Categories:      categories,
		Recommendations: Recommend(categories, cfg.Recommendations, cfg.MaxCategories),
	}
	if len(categories) > 0 {
		top := categories[0].Category
		out.TopCategory = &top
	}

	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.TotalSaved
		if b.ActivityCount > 0 {
			out.MonthsWithData++
		}
	}
	if out.MonthsWithData < minMonthsWithData {
		return out
	}

	reg := Fit(values)
	projection := Project(reg, len(values), horizon)
	total := 0.0
	for _, v := range projection {
		total += v
	}
	trend := ClassifyTrend(reg.Slope, mean(values), cfg.Epsilon, cfg.FlatThreshold)
	next := projection[0]

	out.Status = forecastdomain.StatusOK
	out.Regression = &reg
	out.Trend = &trend
	out.Projection = projection
	out.NextMonth = &next
	out.ProjectedValue = &total
	out.Confidence = Confidence(reg.RSquared, out.MonthsWithData)
	return out
}

func boundOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}

// BuildBuckets groups reduction activities by calendar month over the
// window ending with asOf's month. Empty months are kept with zero totals.
func BuildBuckets(activities []activitydomain.Activity, asOf time.Time, window int) []forecastdomain.MonthlyBucket {
	if window <= 0 {
		return nil
	}
	from, _ := Window(asOf, window)

	buckets := make([]forecastdomain.MonthlyBucket, window)
	for i := range buckets {
		buckets[i] = forecastdomain.MonthlyBucket{Index: i, Month: from.AddDate(0, i, 0)}
	}
	for _, a := range activities {
		if a.Intent != activitydomain.IntentReduction {
			continue
		}
		idx := monthsBetween(from, a.Date)
		if idx < 0 || idx >= window {
			continue
		}
		buckets[idx].TotalSaved += a.CO2Saved()
		buckets[idx].ActivityCount++
	}
	return buckets
}

// Fit is an ordinary least squares fit of values on their index. R² is 1
// when the values have no variance.
func Fit(values []float64) forecastdomain.Regression {
	n := float64(len(values))
	if n == 0 {
		return forecastdomain.Regression{}
	}
	xMean := (n - 1) / 2
	yMean := mean(values)

	var sxx, sxy float64
	for i, y := range values {
		dx := float64(i) - xMean
		sxx += dx * dx
		sxy += dx * (y - yMean)
	}

	var slope float64
	if sxx > 0 {
		slope = sxy / sxx
	}
	intercept := yMean - slope*xMean

	var ssTot, ssRes float64
	for i, y := range values {
		fitted := intercept + slope*float64(i)
		ssTot += (y - yMean) * (y - yMean)
		ssRes += (y - fitted) * (y - fitted)
	}

	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return forecastdomain.Regression{Slope: slope, Intercept: intercept, RSquared: r2}
}

// Project returns the fitted value for indexes n..n+horizon-1, floored at 0.
func Project(reg forecastdomain.Regression, n, horizon int) []float64 {
	out := make([]float64, 0, horizon)
	for i := 0; i < horizon; i++ {
		v := reg.Intercept + reg.Slope*float64(n+i)
		out = append(out, math.Max(v, 0))
	}
	return out
}

// ClassifyTrend compares slope to a fraction of the mean. With a zero mean
// the absolute flat threshold is used.
func ClassifyTrend(slope, meanValue, epsilon, flatThreshold float64) forecastdomain.Trend {
	threshold := epsilon * math.Abs(meanValue)
	if meanValue == 0 {
		threshold = flatThreshold
	}
	switch {
	case slope > threshold:
		return forecastdomain.TrendImproving
	case slope < -threshold:
		return forecastdomain.TrendDeclining
	default:
		return forecastdomain.TrendStable
	}
}

// Confidence scales R² to 0..100 and down-weights small samples.
func Confidence(rSquared float64, monthsWithData int) float64 {
	score := math.Min(math.Max(rSquared*100, 0), 100)
	weight := math.Min(1, float64(monthsWithData)/fullConfidenceMonths)
	return math.Round(score*weight*10) / 10
}

// RankCategories orders categories by cumulative savings, then by most
// recent activity, then by name.
func RankCategories(activities []activitydomain.Activity) []forecastdomain.CategoryContribution {
	byCategory := map[activitydomain.Category]*forecastdomain.CategoryContribution{}
	for _, a := range activities {
		if a.Intent != activitydomain.IntentReduction {
			continue
		}
		c, ok := byCategory[a.Category]
		if !ok {
			c = &forecastdomain.CategoryContribution{Category: a.Category}
			byCategory[a.Category] = c
		}
		c.TotalSaved += a.CO2Saved()
		if a.Date.After(c.LastActivity) {
			c.LastActivity = a.Date
		}
	}

	out := make([]forecastdomain.CategoryContribution, 0, len(byCategory))
	for _, c := range byCategory {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b forecastdomain.CategoryContribution) int {
		switch {
		case a.TotalSaved != b.TotalSaved:
			if a.TotalSaved > b.TotalSaved {
				return -1
			}
			return 1
		case !a.LastActivity.Equal(b.LastActivity):
			return b.LastActivity.Compare(a.LastActivity)
		default:
			return strings.Compare(string(a.Category), string(b.Category))
		}
	})
	return out
}

// Recommend concatenates the interventions of the top ranked categories,
// keeping first occurrences only.
func Recommend(ranked []forecastdomain.CategoryContribution, table map[string][]string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	seen := map[string]struct{}{}
	out := []string{}
	for i, c := range ranked {
		if i >= limit {
			break
		}
		for _, rec := range table[string(c.Category)] {
			if _, dup := seen[rec]; dup {
				continue
			}
			seen[rec] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

func inWindow(activities []activitydomain.Activity, asOf time.Time, window int) []activitydomain.Activity {
	from, to := Window(asOf, window)
	out := make([]activitydomain.Activity, 0, len(activities))
	for _, a := range activities {
		d := activitydomain.CalendarDay(a.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, t time.Time) int {
	t = t.UTC()
	return (t.Year()-from.Year())*12 + int(t.Month()) - int(from.Month())
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
