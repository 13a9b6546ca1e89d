package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Users & profile ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// profile is the per-user profile document. Field names follow the document
// store's camelCase convention (the documents predate this API). Nullable
// numeric fields use pointers so absent values round-trip as absent.
type profile struct {
	DisplayName   string   `json:"displayName"`
	Age           *int     `json:"age,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	HeightCM      *float64 `json:"height,omitempty"`
	CurrentWeight *float64 `json:"currentWeight,omitempty"`
	TargetWeight  *float64 `json:"targetWeight,omitempty"`
	ActivityLevel string   `json:"activityLevel,omitempty"`
	WaterGoalML   int      `json:"waterGoal"`
	ProteinGoalG  int      `json:"proteinGoal"`
	CalorieGoal   *int     `json:"calorieGoal,omitempty"`
}

// applyProfileDefaults fills goal fields that older profile documents omit.
func applyProfileDefaults(p *profile) {
	if p.WaterGoalML <= 0 {
		p.WaterGoalML = defaultWaterGoalML
	}
	if p.ProteinGoalG <= 0 {
		p.ProteinGoalG = defaultProteinGoalG
	}
}

/* ─── Daily log ───────────────────────────────────────────────────────── */

// entrySourceSchedule tags log entries materialized from a manually authored
// schedule task. Entries created directly in the logger carry an empty source.
const entrySourceSchedule = "schedule"

// workoutEntry is one logged workout in a daily log document.
type workoutEntry struct {
	ID        string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Exercise  string  `json:"exercise"`
	Sets      int     `json:"sets"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Machine   string  `json:"machine,omitempty"`
	Duration  *int    `json:"duration,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	Completed bool    `json:"completed"`
	Source    string  `json:"source,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// mealEntry is one logged meal in a daily log document.
type mealEntry struct {
	ID        string  `json:"id"`
	Food      string  `json:"food"`
	MealType  string  `json:"mealType,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fats      float64 `json:"fats"`
	Calories  float64 `json:"calories"`
	Notes     string  `json:"notes,omitempty"`
	Completed bool    `json:"completed"`
	Source    string  `json:"source,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// dailyLog is one per-user-per-date document: what actually happened that day.
type dailyLog struct {
	Date      string         `json:"date"`
	Workouts  []workoutEntry `json:"workouts"`
	Meals     []mealEntry    `json:"meals"`
	Water     int            `json:"water"`
	Weight    *float64       `json:"weight,omitempty"`
	CreatedAt string         `json:"createdAt,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// normalizeDailyLog defaults the slice fields so handlers and the engine can
// range over them without nil checks, and JSON renders [] rather than null.
func normalizeDailyLog(l *dailyLog, date string) {
	if l.Date == "" {
		l.Date = date
	}
	if l.Workouts == nil {
		l.Workouts = []workoutEntry{}
	}
	if l.Meals == nil {
		l.Meals = []mealEntry{}
	}
}

/* ─── Weekly schedule ─────────────────────────────────────────────────── */

// taskOrigin records how a schedule task came to exist. It is the sole
// discriminator used by the reconciliation engine; id prefixes are kept for
// wire compatibility but never parsed for provenance decisions.
type taskOrigin string

const (
	originManual taskOrigin = "manual" // authored by the user in the planner
	originLog    taskOrigin = "log"    // auto-derived from a daily log entry
)

// workoutDetails carries the Workout-category task fields.
type workoutDetails struct {
	Exercise string  `json:"exercise,omitempty"`
	Type     string  `json:"type,omitempty"`
	Sets     int     `json:"sets,omitempty"`
	Reps     int     `json:"reps,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
	Machine  string  `json:"machine,omitempty"`
	Duration *int    `json:"duration,omitempty"`
}

// mealRef is the embedded back-reference from a derived Nutrition task to the
// meal log entry it was projected from.
type mealRef struct {
	ID string `json:"id"`
}

// nutritionDetails carries the Nutrition-category task fields.
type nutritionDetails struct {
	Food     string   `json:"food,omitempty"`
	Quantity float64  `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	MealType string   `json:"mealType,omitempty"`
	Protein  float64  `json:"protein,omitempty"`
	Carbs    float64  `json:"carbs,omitempty"`
	Fats     float64  `json:"fats,omitempty"`
	Calories float64  `json:"calories,omitempty"`
	MealData *mealRef `json:"mealData,omitempty"`
}

// task is one planned item on a weekday of a weekly schedule document.
// Category-specific fields live in the optional sub-structs; a task with
// neither is a basic task (Water, Sleep, Recovery, ...).
type task struct {
	ID          string            `json:"id"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Completed   bool              `json:"completed"`
	Origin      taskOrigin        `json:"origin"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	Workout     *workoutDetails   `json:"workout,omitempty"`
	Nutrition   *nutritionDetails `json:"nutrition,omitempty"`
}

// weekSchedule maps each weekday name to its ordered task list.
type weekSchedule map[string][]task

// normalizeSchedule ensures every weekday key exists and infers origin for
// tasks written by older clients that tagged provenance only via id prefix.
func normalizeSchedule(s weekSchedule) weekSchedule {
	if s == nil {
		s = weekSchedule{}
	}
	for _, day := range daysOfWeek {
		tasks := s[day]
		if tasks == nil {
			tasks = []task{}
		}
		for i := range tasks {
			if tasks[i].Origin == "" {
				tasks[i].Origin = inferOrigin(tasks[i].ID)
			}
		}
		s[day] = tasks
	}
	return s
}

/* ─── Weekly report ───────────────────────────────────────────────────── */

// weeklyStats are the scalar aggregates computed from a week of daily logs.
type weeklyStats struct {
	TotalWorkouts   int      `json:"totalWorkouts"`
	AvgProtein      int      `json:"avgProtein"`
	AvgCarbs        int      `json:"avgCarbs"`
	AvgFats         int      `json:"avgFats"`
	AvgCalories     int      `json:"avgCalories"`
	AvgWater        int      `json:"avgWater"`
	ProteinGoalDays int      `json:"proteinGoalDays"`
	WaterGoalDays   int      `json:"waterGoalDays"`
	WeightChange    float64  `json:"weightChange"`
	WorkoutTypes    []string `json:"workoutTypes"`
	TotalVolume     float64  `json:"totalVolume"`
}

// weeklyReport is the structured insight report, whether produced by the
// external model or by the deterministic local fallback (IsDemo=true).
type weeklyReport struct {
	ID              string      `json:"id,omitempty"`
	Summary         string      `json:"summary"`
	Strengths       []string    `json:"strengths"`
	Improvements    []string    `json:"improvements"`
	Recommendations []string    `json:"recommendations"`
	Insights        string      `json:"insights"`
	Trends          string      `json:"trends"`
	WeeklyStats     weeklyStats `json:"weeklyStats"`
	IsDemo          bool        `json:"isDemo,omitempty"`
	WeekStart       string      `json:"weekStart,omitempty"`
	WeekEnd         string      `json:"weekEnd,omitempty"`
	WeekNumber      int         `json:"weekNumber,omitempty"`
	Year            int         `json:"year,omitempty"`
	GeneratedAt     string      `json:"generatedAt,omitempty"`
}

/* ─── Weekly aggregation inputs ───────────────────────────────────────── */

// weekWorkout is a workout entry flattened out of its daily log with the date attached.
type weekWorkout struct {
	workoutEntry
	Date string `json:"date"`
}

// nutritionDay is one day's macro totals in the weekly aggregate.
type nutritionDay struct {
	Date     string  `json:"date"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Calories float64 `json:"calories"`
	Meals    int     `json:"meals"`
}

// waterDay is one day's water intake in the weekly aggregate.
type waterDay struct {
	Date   string `json:"date"`
	Intake int    `json:"intake"`
}

// weightDay is one day's logged body weight in the weekly aggregate.
type weightDay struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

// weekData is the full aggregated input handed to the report generator.
type weekData struct {
	Profile    profile        `json:"profile"`
	Workouts   []weekWorkout  `json:"workouts"`
	Nutrition  []nutritionDay `json:"nutrition"`
	Water      []waterDay     `json:"water"`
	Weights    []weightDay    `json:"weights"`
	StartDate  string         `json:"startDate"`
	EndDate    string         `json:"endDate"`
	WeekNumber int            `json:"weekNumber"`
}

/* ─── Request bodies ──────────────────────────────────────────────────── */

// createWorkoutRequest is the request body for POST /api/logs/:date/workouts.
type createWorkoutRequest struct {
	Type     string  `json:"type"`
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
	Machine  string  `json:"machine"`
	Duration *int    `json:"duration"`
	Notes    string  `json:"notes"`
}

// createMealRequest is the request body for POST /api/logs/:date/meals.
type createMealRequest struct {
	Food     string  `json:"food"`
	MealType string  `json:"mealType"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Calories float64 `json:"calories"`
	Notes    string  `json:"notes"`
}

// createTaskRequest is the request body for POST /api/schedule/:day/tasks.
// Workout/Nutrition sub-structs are optional; a bare title+category makes a
// basic task.
type createTaskRequest struct {
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Workout     *workoutDetails   `json:"workout"`
	Nutrition   *nutritionDetails `json:"nutrition"`
}

// patchProfileRequest is the request body for PATCH /api/profile.
// All fields are pointers — only non-nil fields get written.
type patchProfileRequest struct {
	DisplayName   *string  `json:"displayName"`
	Age           *int     `json:"age"`
	Gender        *string  `json:"gender"`
	HeightCM      *float64 `json:"height"`
	CurrentWeight *float64 `json:"currentWeight"`
	TargetWeight  *float64 `json:"targetWeight"`
	ActivityLevel *string  `json:"activityLevel"`
	WaterGoalML   *int     `json:"waterGoal"`
	ProteinGoalG  *int     `json:"proteinGoal"`
	CalorieGoal   *int     `json:"calorieGoal"`
}
