package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWeekStartTime(t *testing.T) time.Time {
	t.Helper()
	ws, err := time.Parse("2006-01-02", testWeekStart)
	require.NoError(t, err)
	return ws
}

func floatPtr(v float64) *float64 { return &v }

// testWeekLogs builds a week with three logged days (Mon, Wed, Fri) summing to
// 450 g protein, two water-goal days, and a -0.8 kg weight trend.
func testWeekLogs() []dailyLog {
	logs := make([]dailyLog, 7)
	logs[0] = dailyLog{ // Monday
		Workouts: []workoutEntry{{ID: "1", Type: "Push Day (Chest, Shoulders, Triceps)", Exercise: "Bench Press", Sets: 4, Reps: 8, Weight: 60}},
		Meals:    []mealEntry{{ID: "2", Food: "Chicken Breast (100g)", Protein: 150, Carbs: 100, Fats: 40, Calories: 2000}},
		Water:    4000,
		Weight:   floatPtr(80.0),
	}
	logs[2] = dailyLog{ // Wednesday
		Meals: []mealEntry{{ID: "3", Food: "Salmon (100g)", Protein: 150, Carbs: 80, Fats: 50, Calories: 1800}},
		Water: 4500,
	}
	logs[4] = dailyLog{ // Friday
		Workouts: []workoutEntry{{ID: "4", Type: "Leg Day", Exercise: "Squats", Sets: 5, Reps: 5, Weight: 100}},
		Meals:    []mealEntry{{ID: "5", Food: "Greek Yogurt (100g)", Protein: 150, Carbs: 60, Fats: 20, Calories: 1500}},
		Weight:   floatPtr(79.2),
	}
	return logs
}

func TestAggregateWeek_ZeroFillsMissingDays(t *testing.T) {
	data := aggregateWeek(profile{}, testWeekStartTime(t), testWeekLogs())

	assert.Equal(t, testWeekStart, data.StartDate)
	assert.Equal(t, "2026-03-08", data.EndDate)
	// Every calendar day appears in the nutrition and water series, logged or not.
	require.Len(t, data.Nutrition, 7)
	require.Len(t, data.Water, 7)
	assert.Zero(t, data.Nutrition[1].Calories, "unlogged Tuesday should be zero-filled")
	assert.Zero(t, data.Water[6].Intake, "unlogged Sunday should be zero-filled")
	// Weights only carry days that were actually logged.
	require.Len(t, data.Weights, 2)
	assert.Equal(t, 80.0, data.Weights[0].Weight)
	assert.Equal(t, 79.2, data.Weights[1].Weight)
}

func TestAggregateWeek_WeightFallsBackToProfile(t *testing.T) {
	p := profile{CurrentWeight: floatPtr(82.5)}
	data := aggregateWeek(p, testWeekStartTime(t), make([]dailyLog, 7))

	require.Len(t, data.Weights, 1)
	assert.Equal(t, 82.5, data.Weights[0].Weight)
	assert.Equal(t, testWeekStart, data.Weights[0].Date)
}

func TestComputeWeeklyStats(t *testing.T) {
	data := aggregateWeek(profile{}, testWeekStartTime(t), testWeekLogs())
	stats := computeWeeklyStats(data)

	assert.Equal(t, 2, stats.TotalWorkouts)
	// 450 g over the week divides by 7 calendar days, not 3 logged days.
	assert.Equal(t, 64, stats.AvgProtein)
	assert.Equal(t, 757, stats.AvgCalories) // 5300 / 7
	assert.Equal(t, 1214, stats.AvgWater)   // 8500 / 7
	assert.Equal(t, 3, stats.ProteinGoalDays)
	assert.Equal(t, 2, stats.WaterGoalDays)
	assert.Equal(t, -0.8, stats.WeightChange)
	// 4·8·60 + 5·5·100
	assert.Equal(t, 4420.0, stats.TotalVolume)
	assert.Equal(t, []string{"Push Day (Chest, Shoulders, Triceps)", "Leg Day"}, stats.WorkoutTypes)
}

func TestComputeWeeklyStats_EmptyWeek(t *testing.T) {
	data := aggregateWeek(profile{}, testWeekStartTime(t), make([]dailyLog, 7))
	stats := computeWeeklyStats(data)

	assert.Zero(t, stats.TotalWorkouts)
	assert.Zero(t, stats.AvgProtein)
	assert.Zero(t, stats.WeightChange)
	assert.Empty(t, stats.WorkoutTypes)
}

func TestComputeWeeklyStats_GoalsFromProfile(t *testing.T) {
	logs := make([]dailyLog, 7)
	logs[0] = dailyLog{
		Meals: []mealEntry{{ID: "1", Food: "Eggs (1 large)", Protein: 120}},
		Water: 3000,
	}
	p := profile{ProteinGoalG: 110, WaterGoalML: 2500}
	data := aggregateWeek(p, testWeekStartTime(t), logs)
	stats := computeWeeklyStats(data)

	// 120 g beats the custom 110 g goal even though it misses the 150 g default.
	assert.Equal(t, 1, stats.ProteinGoalDays)
	assert.Equal(t, 1, stats.WaterGoalDays)
}
