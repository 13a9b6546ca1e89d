package main

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Fixed test day: 2026-03-04 is a Wednesday in the week starting Monday 2026-03-02.
const (
	testDate      = "2026-03-04"
	testDay       = "Wednesday"
	testWeekStart = "2026-03-02"
)

// beginTestSession acquires a session for the fixed test day.
func beginTestSession(t *testing.T, guard *syncGuard) *syncSession {
	t.Helper()
	sess, err := guard.begin(1, testDate)
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	return sess
}

func benchPressEntry() workoutEntry {
	return workoutEntry{
		ID:        "100",
		Type:      "Push Day (Chest, Shoulders, Triceps)",
		Exercise:  "Bench Press",
		Sets:      4,
		Reps:      8,
		Weight:    60,
		Completed: true,
		CreatedAt: "2026-03-04T08:00:00Z",
	}
}

func oatsEntry() mealEntry {
	return mealEntry{
		ID:        "200",
		Food:      "Oats (100g)",
		MealType:  "Breakfast",
		Protein:   17,
		Carbs:     66,
		Fats:      7,
		Calories:  389,
		Completed: true,
		CreatedAt: "2026-03-04T07:30:00Z",
	}
}

/* ─── Log → schedule ─────────────────────────────────────────────────── */

func TestProjectLogToSchedule_DerivesTasks(t *testing.T) {
	ms := newMemStore()
	r := newReconciler(ms)
	guard := newSyncGuard()
	sess := beginTestSession(t, guard)
	defer sess.end()

	changed, err := r.projectLogToSchedule(context.Background(), sess, []workoutEntry{benchPressEntry()}, []mealEntry{oatsEntry()})
	if err != nil {
		t.Fatalf("projectLogToSchedule: %v", err)
	}
	if !changed {
		t.Fatal("expected a schedule write")
	}

	sched, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	tasks := sched[testDay]
	if len(tasks) != 2 {
		t.Fatalf("expected 2 derived tasks, got %d", len(tasks))
	}

	w := tasks[0]
	if w.ID != "workout_100" {
		t.Errorf("expected id workout_100, got %q", w.ID)
	}
	if w.Title != "Bench Press" || w.Description != "4 sets × 8 reps" {
		t.Errorf("unexpected workout task %q / %q", w.Title, w.Description)
	}
	if w.Origin != originLog || !w.Completed || w.Category != "Workout" {
		t.Errorf("unexpected workout task metadata: %+v", w)
	}

	m := tasks[1]
	if m.ID != "meal_200" || m.Title != "Oats (100g)" || m.Description != "389 cal" {
		t.Errorf("unexpected meal task: %+v", m)
	}
	if m.Nutrition == nil || m.Nutrition.MealData == nil || m.Nutrition.MealData.ID != "200" {
		t.Errorf("meal task missing back-reference to its entry: %+v", m.Nutrition)
	}
}

func TestProjectLogToSchedule_Idempotent(t *testing.T) {
	ms := newMemStore()
	r := newReconciler(ms)
	guard := newSyncGuard()

	workouts := []workoutEntry{benchPressEntry()}
	meals := []mealEntry{oatsEntry()}

	sess := beginTestSession(t, guard)
	if _, err := r.projectLogToSchedule(context.Background(), sess, workouts, meals); err != nil {
		t.Fatalf("first projection: %v", err)
	}
	sess.end()

	before, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	writesBefore := ms.writeCount()

	sess = beginTestSession(t, guard)
	changed, err := r.projectLogToSchedule(context.Background(), sess, workouts, meals)
	sess.end()
	if err != nil {
		t.Fatalf("second projection: %v", err)
	}
	if changed {
		t.Error("second projection reported a change")
	}
	if got := ms.writeCount(); got != writesBefore {
		t.Errorf("second projection wrote to the store: %d -> %d writes", writesBefore, got)
	}

	after, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("schedule changed across identical projections (-before +after):\n%s", diff)
	}
}

func TestProjectLogToSchedule_PreservesManualTasks(t *testing.T) {
	ms := newMemStore()
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{
		{ID: "1", Category: "Workout", Title: "Morning run", Origin: originManual},
		{ID: "workout_999", Category: "Workout", Title: "Old derived", Origin: originLog},
		{ID: "2", Category: "Sleep", Title: "In bed by 22:30", Origin: originManual},
	}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()
	sess := beginTestSession(t, guard)
	defer sess.end()

	// Empty log: every derived task must go, every manual task must stay.
	if _, err := r.projectLogToSchedule(context.Background(), sess, nil, nil); err != nil {
		t.Fatalf("projectLogToSchedule: %v", err)
	}

	got, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	var ids []string
	for _, tk := range got[testDay] {
		ids = append(ids, tk.ID)
	}
	want := []string{"1", "2"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("surviving task ids (-want +got):\n%s", diff)
	}
}

/* ─── Schedule → log ─────────────────────────────────────────────────── */

func TestProjectScheduleToLog_Materializes(t *testing.T) {
	ms := newMemStore()
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{
		{
			ID: "10", Category: "Nutrition", Title: "Oats (100g)", Origin: originManual,
			Nutrition: &nutritionDetails{Food: "Oats (100g)", Protein: 17, Carbs: 66, Fats: 7, Calories: 389},
		},
		{ID: "11", Category: "Workout", Title: "Shoulder press", Origin: originManual},
		{ID: "12", Category: "Water", Title: "4L water", Origin: originManual},
	}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()
	sess := beginTestSession(t, guard)
	defer sess.end()

	changed, err := r.projectScheduleToLog(context.Background(), sess)
	if err != nil {
		t.Fatalf("projectScheduleToLog: %v", err)
	}
	if !changed {
		t.Fatal("expected a log write")
	}

	l, _ := ms.GetDailyLog(context.Background(), 1, testDate)

	if len(l.Meals) != 1 {
		t.Fatalf("expected 1 materialized meal, got %d", len(l.Meals))
	}
	m := l.Meals[0]
	if m.ID != "schedule_meal_10" || m.Source != entrySourceSchedule {
		t.Errorf("unexpected meal identity: %+v", m)
	}
	if m.Calories != 389 || m.Protein != 17 || m.Carbs != 66 || m.Fats != 7 {
		t.Errorf("task details not carried onto entry: %+v", m)
	}

	if len(l.Workouts) != 1 {
		t.Fatalf("expected 1 materialized workout, got %d", len(l.Workouts))
	}
	w := l.Workouts[0]
	if w.ID != "schedule_workout_11" {
		t.Errorf("unexpected workout id %q", w.ID)
	}
	// A bare task gets the standing defaults.
	if w.Sets != 3 || w.Reps != 10 || w.Weight != 0 {
		t.Errorf("expected default 3x10@0, got %dx%d@%.0f", w.Sets, w.Reps, w.Weight)
	}
}

func TestProjectScheduleToLog_BareMealDefaults(t *testing.T) {
	ms := newMemStore()
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{
		{ID: "20", Category: "Nutrition", Title: "Protein shake", Origin: originManual},
	}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()
	sess := beginTestSession(t, guard)
	defer sess.end()

	if _, err := r.projectScheduleToLog(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	l, _ := ms.GetDailyLog(context.Background(), 1, testDate)
	if len(l.Meals) != 1 {
		t.Fatalf("expected 1 meal, got %d", len(l.Meals))
	}
	m := l.Meals[0]
	if m.Calories != 300 || m.Protein != 20 || m.Carbs != 30 || m.Fats != 10 {
		t.Errorf("expected macro defaults 300/20/30/10, got %+v", m)
	}
}

func TestProjectScheduleToLog_Reentrant(t *testing.T) {
	ms := newMemStore()
	logDoc := dailyLog{Date: testDate, Workouts: []workoutEntry{benchPressEntry()}}
	if err := ms.PutDailyLog(context.Background(), 1, logDoc); err != nil {
		t.Fatal(err)
	}
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{{ID: "30", Category: "Workout", Title: "Squats", Origin: originManual}}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()

	sess := beginTestSession(t, guard)
	if _, err := r.projectScheduleToLog(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	sess.end()

	writesBefore := ms.writeCount()
	sess = beginTestSession(t, guard)
	changed, err := r.projectScheduleToLog(context.Background(), sess)
	sess.end()
	if err != nil {
		t.Fatal(err)
	}
	if changed || ms.writeCount() != writesBefore {
		t.Errorf("reentrant projection wrote: changed=%v writes %d -> %d", changed, writesBefore, ms.writeCount())
	}

	// The logger-created entry must survive untouched next to the materialized one.
	l, _ := ms.GetDailyLog(context.Background(), 1, testDate)
	if len(l.Workouts) != 2 {
		t.Fatalf("expected logger entry + materialized entry, got %d workouts", len(l.Workouts))
	}
	if diff := cmp.Diff(benchPressEntry(), l.Workouts[0]); diff != "" {
		t.Errorf("logger-created entry was modified (-want +got):\n%s", diff)
	}
}

/* ─── Round trips ────────────────────────────────────────────────────── */

// TestRoundTrip_NoFeedbackLoop runs both directions twice over a day holding
// one logged workout and one planned workout. The second full cycle must be a
// no-op: no duplicate tasks, no duplicate entries, no writes.
func TestRoundTrip_NoFeedbackLoop(t *testing.T) {
	ms := newMemStore()
	if err := ms.PutDailyLog(context.Background(), 1, dailyLog{Date: testDate, Workouts: []workoutEntry{benchPressEntry()}}); err != nil {
		t.Fatal(err)
	}
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{{ID: "40", Category: "Workout", Title: "Deadlifts", Origin: originManual}}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()

	cycle := func() {
		t.Helper()
		sess := beginTestSession(t, guard)
		defer sess.end()
		l, _ := ms.GetDailyLog(context.Background(), 1, testDate)
		if _, err := r.projectLogToSchedule(context.Background(), sess, l.Workouts, l.Meals); err != nil {
			t.Fatal(err)
		}
		if _, err := r.projectScheduleToLog(context.Background(), sess); err != nil {
			t.Fatal(err)
		}
	}

	cycle()
	cycle() // settle: the first cycle's materialized entry now feeds log→schedule

	writesBefore := ms.writeCount()
	cycle()
	if got := ms.writeCount(); got != writesBefore {
		t.Errorf("settled cycle still wrote: %d -> %d", writesBefore, got)
	}

	finalSched, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	if n := len(finalSched[testDay]); n != 2 {
		t.Errorf("expected manual task + derived task, got %d tasks", n)
	}
	l, _ := ms.GetDailyLog(context.Background(), 1, testDate)
	if n := len(l.Workouts); n != 2 {
		t.Errorf("expected logger entry + materialized entry, got %d workouts", n)
	}
}

// TestCompletionSync_EntryToManualTask checks the log→schedule half of
// completion sync: ticking off a materialized entry marks the planner task done.
func TestCompletionSync_EntryToManualTask(t *testing.T) {
	ms := newMemStore()
	sched := normalizeSchedule(nil)
	sched[testDay] = []task{{ID: "50", Category: "Workout", Title: "Rows", Origin: originManual}}
	if err := ms.PutSchedule(context.Background(), 1, testWeekStart, sched); err != nil {
		t.Fatal(err)
	}

	r := newReconciler(ms)
	guard := newSyncGuard()

	sess := beginTestSession(t, guard)
	if _, err := r.projectScheduleToLog(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	sess.end()

	// Complete the materialized entry, as the workout logger would.
	l, _ := ms.GetDailyLog(context.Background(), 1, testDate)
	l.Workouts[0].Completed = true
	if err := ms.PutDailyLog(context.Background(), 1, l); err != nil {
		t.Fatal(err)
	}

	sess = beginTestSession(t, guard)
	defer sess.end()
	if _, err := r.projectLogToSchedule(context.Background(), sess, l.Workouts, l.Meals); err != nil {
		t.Fatal(err)
	}

	got, _ := ms.GetSchedule(context.Background(), 1, testWeekStart)
	if !got[testDay][0].Completed {
		t.Error("manual task not marked completed after its entry was completed")
	}
}

/* ─── Sessions & provenance ──────────────────────────────────────────── */

func TestSyncGuard_MutualExclusion(t *testing.T) {
	guard := newSyncGuard()

	sess, err := guard.begin(1, testDate)
	if err != nil {
		t.Fatalf("first begin: %v", err)
	}

	if _, err := guard.begin(1, testDate); err != errSyncBusy {
		t.Errorf("expected errSyncBusy for same user+day, got %v", err)
	}
	// A different day or user is unrelated work.
	other, err := guard.begin(1, "2026-03-05")
	if err != nil {
		t.Errorf("different day blocked: %v", err)
	} else {
		other.end()
	}
	other, err = guard.begin(2, testDate)
	if err != nil {
		t.Errorf("different user blocked: %v", err)
	} else {
		other.end()
	}

	sess.end()
	sess, err = guard.begin(1, testDate)
	if err != nil {
		t.Errorf("begin after end: %v", err)
	} else {
		sess.end()
	}
}

func TestSyncGuard_RejectsInvalidDate(t *testing.T) {
	guard := newSyncGuard()
	if _, err := guard.begin(1, "03/04/2026"); err == nil {
		t.Error("expected error for invalid date format")
	}
}

func TestInferOrigin(t *testing.T) {
	cases := []struct {
		id   string
		want taskOrigin
	}{
		{"workout_1700000000000", originLog},
		{"meal_1700000000000", originLog},
		{"1700000000000", originManual},
		{"custom-task", originManual},
	}
	for _, tc := range cases {
		if got := inferOrigin(tc.id); got != tc.want {
			t.Errorf("inferOrigin(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
