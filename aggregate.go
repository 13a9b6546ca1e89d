package main

import (
	"math"
	"time"
)

// aggregateWeek reduces seven daily logs into the per-metric series the report
// generator consumes. logs is indexed by day offset from weekStart; a missing
// or empty day still contributes a zero-filled nutrition/water entry, so the
// averages below divide by calendar days, not days with data. A skipped day
// drags the average down.
func aggregateWeek(p profile, weekStart time.Time, logs []dailyLog) weekData {
	data := weekData{
		Profile:    p,
		Workouts:   []weekWorkout{},
		Nutrition:  []nutritionDay{},
		Water:      []waterDay{},
		Weights:    []weightDay{},
		StartDate:  weekStart.Format("2006-01-02"),
		EndDate:    weekStart.AddDate(0, 0, 6).Format("2006-01-02"),
		WeekNumber: weekNumber(weekStart),
	}

	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		var l dailyLog
		if i < len(logs) {
			l = logs[i]
		}

		for _, w := range l.Workouts {
			data.Workouts = append(data.Workouts, weekWorkout{workoutEntry: w, Date: date})
		}

		day := nutritionDay{Date: date, Meals: len(l.Meals)}
		for _, m := range l.Meals {
			day.Protein += m.Protein
			day.Carbs += m.Carbs
			day.Fats += m.Fats
			day.Calories += m.Calories
		}
		data.Nutrition = append(data.Nutrition, day)

		data.Water = append(data.Water, waterDay{Date: date, Intake: l.Water})

		if l.Weight != nil {
			data.Weights = append(data.Weights, weightDay{Date: date, Weight: *l.Weight})
		}
	}

	// A week with no weigh-ins still charts something: fall back to the
	// profile's current weight pinned to the week start.
	if len(data.Weights) == 0 && p.CurrentWeight != nil {
		data.Weights = append(data.Weights, weightDay{Date: data.StartDate, Weight: *p.CurrentWeight})
	}

	return data
}

// computeWeeklyStats derives the scalar summary from an aggregated week.
// Averages divide by the 7 calendar days in range.
func computeWeeklyStats(data weekData) weeklyStats {
	const daysInWeek = 7

	p := data.Profile
	applyProfileDefaults(&p)

	stats := weeklyStats{
		TotalWorkouts: len(data.Workouts),
		WorkoutTypes:  []string{},
	}

	var protein, carbs, fats, calories float64
	for _, day := range data.Nutrition {
		protein += day.Protein
		carbs += day.Carbs
		fats += day.Fats
		calories += day.Calories
		if day.Protein >= float64(p.ProteinGoalG) {
			stats.ProteinGoalDays++
		}
	}
	stats.AvgProtein = int(math.Round(protein / daysInWeek))
	stats.AvgCarbs = int(math.Round(carbs / daysInWeek))
	stats.AvgFats = int(math.Round(fats / daysInWeek))
	stats.AvgCalories = int(math.Round(calories / daysInWeek))

	var water int
	for _, day := range data.Water {
		water += day.Intake
		if day.Intake >= p.WaterGoalML {
			stats.WaterGoalDays++
		}
	}
	stats.AvgWater = int(math.Round(float64(water) / daysInWeek))

	if len(data.Weights) > 1 {
		delta := data.Weights[len(data.Weights)-1].Weight - data.Weights[0].Weight
		stats.WeightChange = math.Round(delta*10) / 10
	}

	seen := map[string]bool{}
	for _, w := range data.Workouts {
		stats.TotalVolume += float64(w.Sets) * float64(w.Reps) * w.Weight
		if w.Type != "" && !seen[w.Type] {
			seen[w.Type] = true
			stats.WorkoutTypes = append(stats.WorkoutTypes, w.Type)
		}
	}

	return stats
}
