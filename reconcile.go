package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

/* ─── Provenance conventions ─────────────────────────────────────────── */

// Derived ids keep the historical prefix convention so existing documents and
// clients stay readable, and so a derived record's id names the record it was
// projected from. Provenance decisions use the origin/source fields, never
// these prefixes.
const (
	derivedWorkoutPrefix  = "workout_"
	derivedMealPrefix     = "meal_"
	scheduleWorkoutPrefix = "schedule_workout_"
	scheduleMealPrefix    = "schedule_meal_"
)

// inferOrigin classifies a task written by an older client that carried no
// origin field. Timestamp-style ids (and anything else unprefixed) are manual.
func inferOrigin(id string) taskOrigin {
	if strings.HasPrefix(id, derivedWorkoutPrefix) || strings.HasPrefix(id, derivedMealPrefix) {
		return originLog
	}
	return originManual
}

/* ─── Sync sessions ──────────────────────────────────────────────────── */

// errSyncBusy is returned when a reconciliation pass is already running for
// the same (user, day). The two projection directions are mutually exclusive
// in time; the caller retries or reports the conflict.
var errSyncBusy = errors.New("sync already in progress for this day")

// syncGuard tracks in-flight reconciliation passes per (user, day).
type syncGuard struct {
	mu       sync.Mutex
	inflight map[string]bool
}

func newSyncGuard() *syncGuard {
	return &syncGuard{inflight: make(map[string]bool)}
}

// syncSession scopes one reconciliation pass to a single (user, day). It is
// acquired before either projection direction runs and released in a defer,
// success or failure.
type syncSession struct {
	guard     *syncGuard
	key       string
	userID    int
	date      string // YYYY-MM-DD
	day       string // weekday name within the schedule document
	weekStart string // Monday-anchored week key
}

// begin acquires the per-(user, day) reconciliation slot and resolves the
// date's weekday and week-start keys. Returns errSyncBusy without blocking
// when a pass is already running.
func (g *syncGuard) begin(userID int, date string) (*syncSession, error) {
	day, err := weekdayName(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	weekStart, err := weekStartFor(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	key := fmt.Sprintf("%d/%s", userID, date)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[key] {
		return nil, errSyncBusy
	}
	g.inflight[key] = true
	return &syncSession{guard: g, key: key, userID: userID, date: date, day: day, weekStart: weekStart}, nil
}

// end releases the session's slot. Safe to call exactly once, from a defer.
func (s *syncSession) end() {
	s.guard.mu.Lock()
	delete(s.guard.inflight, s.key)
	s.guard.mu.Unlock()
}

/* ─── Reconciliation engine ──────────────────────────────────────────── */

// reconciler keeps auto-derived schedule tasks consistent with the daily log
// and schedule-originated log entries consistent with manually authored
// tasks. Each projection reads the current documents, rebuilds the subset it
// owns, and writes back only when the result differs.
type reconciler struct {
	store Store
}

func newReconciler(store Store) *reconciler {
	return &reconciler{store: store}
}

// projectLogToSchedule makes the day's auto-derived tasks a pure projection of
// the given workout and meal entries: every existing derived Workout/Nutrition
// task is dropped and one fresh task is derived per logger-created entry.
// Manual tasks are never touched except to mirror the completed flag of their
// schedule-originated log entry. Returns whether a schedule write happened.
func (r *reconciler) projectLogToSchedule(ctx context.Context, sess *syncSession, workouts []workoutEntry, meals []mealEntry) (bool, error) {
	sched, err := r.store.GetSchedule(ctx, sess.userID, sess.weekStart)
	if err != nil {
		return false, fmt.Errorf("read schedule: %w", err)
	}
	current := sched[sess.day]

	// Keep everything the log does not own: manual tasks and derived tasks of
	// unrelated categories (there are none today, but removal stays scoped).
	next := make([]task, 0, len(current))
	for _, t := range current {
		if t.Origin == originLog && (t.Category == "Workout" || t.Category == "Nutrition") {
			continue
		}
		next = append(next, t)
	}

	// Mirror completion back onto the manual tasks that authored
	// schedule-originated entries.
	for _, w := range workouts {
		if w.Source == entrySourceSchedule {
			setTaskCompleted(next, strings.TrimPrefix(w.ID, scheduleWorkoutPrefix), w.Completed)
		}
	}
	for _, m := range meals {
		if m.Source == entrySourceSchedule {
			setTaskCompleted(next, strings.TrimPrefix(m.ID, scheduleMealPrefix), m.Completed)
		}
	}

	// One derived task per logger-created entry. Schedule-originated entries
	// are translated copies already represented by their manual task; deriving
	// from them again is exactly the feedback loop this engine exists to stop.
	for _, w := range workouts {
		if w.Source == entrySourceSchedule {
			continue
		}
		next = append(next, deriveWorkoutTask(w))
	}
	for _, m := range meals {
		if m.Source == entrySourceSchedule {
			continue
		}
		next = append(next, deriveMealTask(m))
	}

	if reflect.DeepEqual(current, next) {
		return false, nil
	}
	sched[sess.day] = next
	if err := r.store.PutSchedule(ctx, sess.userID, sess.weekStart, sched); err != nil {
		return false, fmt.Errorf("write schedule: %w", err)
	}
	return true, nil
}

// projectScheduleToLog rebuilds the day's schedule-originated log entries from
// the manually authored tasks: the Source=="schedule" subset is replaced
// wholesale, logger-created entries are left untouched. Reentrant — an
// unchanged schedule produces zero writes. Returns whether a log write happened.
func (r *reconciler) projectScheduleToLog(ctx context.Context, sess *syncSession) (bool, error) {
	sched, err := r.store.GetSchedule(ctx, sess.userID, sess.weekStart)
	if err != nil {
		return false, fmt.Errorf("read schedule: %w", err)
	}
	logDoc, err := r.store.GetDailyLog(ctx, sess.userID, sess.date)
	if err != nil {
		return false, fmt.Errorf("read daily log: %w", err)
	}

	nextWorkouts := make([]workoutEntry, 0, len(logDoc.Workouts))
	for _, w := range logDoc.Workouts {
		if w.Source != entrySourceSchedule {
			nextWorkouts = append(nextWorkouts, w)
		}
	}
	nextMeals := make([]mealEntry, 0, len(logDoc.Meals))
	for _, m := range logDoc.Meals {
		if m.Source != entrySourceSchedule {
			nextMeals = append(nextMeals, m)
		}
	}

	for _, t := range sched[sess.day] {
		if t.Origin != originManual {
			continue
		}
		switch t.Category {
		case "Workout":
			nextWorkouts = append(nextWorkouts, materializeWorkout(t))
		case "Nutrition":
			nextMeals = append(nextMeals, materializeMeal(t))
		}
	}

	if reflect.DeepEqual(logDoc.Workouts, nextWorkouts) && reflect.DeepEqual(logDoc.Meals, nextMeals) {
		return false, nil
	}
	logDoc.Workouts = nextWorkouts
	logDoc.Meals = nextMeals
	logDoc.UpdatedAt = nowISO()
	if err := r.store.PutDailyLog(ctx, sess.userID, logDoc); err != nil {
		return false, fmt.Errorf("write daily log: %w", err)
	}
	return true, nil
}

/* ─── Projection helpers ─────────────────────────────────────────────── */

// deriveWorkoutTask projects one workout entry into its schedule task. The id
// is a pure function of the entry id, so re-projection is byte-identical.
func deriveWorkoutTask(w workoutEntry) task {
	return task{
		ID:          derivedWorkoutPrefix + w.ID,
		Category:    "Workout",
		Title:       w.Exercise,
		Description: fmt.Sprintf("%d sets × %d reps", w.Sets, w.Reps),
		Completed:   w.Completed,
		Origin:      originLog,
		CreatedAt:   w.CreatedAt,
		Workout: &workoutDetails{
			Exercise: w.Exercise,
			Type:     w.Type,
			Sets:     w.Sets,
			Reps:     w.Reps,
			Weight:   w.Weight,
			Machine:  w.Machine,
			Duration: w.Duration,
		},
	}
}

// deriveMealTask projects one meal entry into its schedule task, carrying the
// back-reference to the originating entry.
func deriveMealTask(m mealEntry) task {
	return task{
		ID:          derivedMealPrefix + m.ID,
		Category:    "Nutrition",
		Title:       m.Food,
		Description: fmt.Sprintf("%.0f cal", m.Calories),
		Completed:   m.Completed,
		Origin:      originLog,
		CreatedAt:   m.CreatedAt,
		Nutrition: &nutritionDetails{
			Food:     m.Food,
			Quantity: m.Quantity,
			Unit:     m.Unit,
			MealType: m.MealType,
			Protein:  m.Protein,
			Carbs:    m.Carbs,
			Fats:     m.Fats,
			Calories: m.Calories,
			MealData: &mealRef{ID: m.ID},
		},
	}
}

// materializeWorkout builds the schedule-originated log entry for a manual
// Workout task. A bare task (no details) gets the standing defaults.
func materializeWorkout(t task) workoutEntry {
	e := workoutEntry{
		ID:        scheduleWorkoutPrefix + t.ID,
		Exercise:  t.Title,
		Sets:      3,
		Reps:      10,
		Weight:    0,
		Completed: t.Completed,
		Source:    entrySourceSchedule,
		CreatedAt: t.CreatedAt,
	}
	if d := t.Workout; d != nil {
		if d.Exercise != "" {
			e.Exercise = d.Exercise
		}
		if d.Sets > 0 {
			e.Sets = d.Sets
		}
		if d.Reps > 0 {
			e.Reps = d.Reps
		}
		e.Weight = d.Weight
		e.Machine = d.Machine
		e.Type = d.Type
		e.Duration = d.Duration
	}
	return e
}

// materializeMeal builds the schedule-originated log entry for a manual
// Nutrition task. A bare task gets the standing macro defaults.
func materializeMeal(t task) mealEntry {
	e := mealEntry{
		ID:        scheduleMealPrefix + t.ID,
		Food:      t.Title,
		Calories:  300,
		Protein:   20,
		Carbs:     30,
		Fats:      10,
		Completed: t.Completed,
		Source:    entrySourceSchedule,
		CreatedAt: t.CreatedAt,
	}
	if d := t.Nutrition; d != nil {
		if d.Food != "" {
			e.Food = d.Food
		}
		if d.Calories > 0 {
			e.Calories = d.Calories
		}
		if d.Protein > 0 {
			e.Protein = d.Protein
		}
		if d.Carbs > 0 {
			e.Carbs = d.Carbs
		}
		if d.Fats > 0 {
			e.Fats = d.Fats
		}
		e.Quantity = d.Quantity
		e.Unit = d.Unit
		e.MealType = d.MealType
	}
	return e
}

// setTaskCompleted flips the completed flag on the task with the given id, if present.
func setTaskCompleted(tasks []task, id string, completed bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Completed = completed
			return
		}
	}
}
