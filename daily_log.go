package main

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	entryIDMu   sync.Mutex
	lastEntryID int64
)

// newEntryID returns a fresh log entry id. Millisecond timestamps match the
// ids already present in stored documents; the counter bumps past the last
// issued id so two writes in the same millisecond stay distinct.
func newEntryID() string {
	entryIDMu.Lock()
	defer entryIDMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= lastEntryID {
		id = lastEntryID + 1
	}
	lastEntryID = id
	return strconv.FormatInt(id, 10)
}

// dateParam validates the :date path segment.
func dateParam(c *gin.Context) (string, bool) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return "", false
	}
	return date, true
}

// getDailyLog returns the day's log. A day never logged comes back as the
// empty document; a failed read degrades to the same empty document rather
// than erroring.
// GET /api/logs/:date
func (h *Handler) getDailyLog(c *gin.Context) {
	userID := c.GetInt("user_id")
	date, ok := dateParam(c)
	if !ok {
		return
	}

	l, err := h.store.GetDailyLog(c, userID, date)
	if err != nil {
		logReadDegraded("daily log", userID, date, err)
		l = dailyLog{}
		normalizeDailyLog(&l, date)
	}
	c.JSON(http.StatusOK, l)
}

func logReadDegraded(what string, userID int, key string, err error) {
	log.Printf("[store] %s read degraded to empty for user %d key %s: %v", what, userID, key, err)
}

// mutateDailyLog runs one log mutation under the day's sync session: load,
// apply, save, then synchronously re-project the log onto the schedule.
// The mutation's edits are visible to the projection in the same pass.
func (h *Handler) mutateDailyLog(c *gin.Context, date string, mutate func(*dailyLog) bool) (dailyLog, bool) {
	userID := c.GetInt("user_id")

	sess, err := h.guard.begin(userID, date)
	if err == errSyncBusy {
		apiError(c, http.StatusConflict, "sync already in progress for this day, retry shortly")
		return dailyLog{}, false
	}
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return dailyLog{}, false
	}
	defer sess.end()

	l, err := h.store.GetDailyLog(c, userID, date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch daily log")
		return dailyLog{}, false
	}
	if l.CreatedAt == "" {
		l.CreatedAt = nowISO()
	}

	if !mutate(&l) {
		// mutate already wrote the response (e.g. entry not found)
		return dailyLog{}, false
	}
	l.UpdatedAt = nowISO()

	if err := h.store.PutDailyLog(c, userID, l); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save daily log")
		return dailyLog{}, false
	}

	if _, err := h.recon.projectLogToSchedule(c, sess, l.Workouts, l.Meals); err != nil {
		apiError(c, http.StatusInternalServerError, "log saved but schedule sync failed")
		return dailyLog{}, false
	}
	return l, true
}

/* ─── Water & weight ──────────────────────────────────────────────────── */

// putWater sets the day's water total in ml. Water has no schedule
// projection; the trailing reconcile pass is a no-op for it.
// PUT /api/logs/:date/water
func (h *Handler) putWater(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	var body struct {
		Water *int `json:"water"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Water == nil {
		apiError(c, http.StatusBadRequest, "water (ml) is required")
		return
	}
	if *body.Water < 0 {
		apiError(c, http.StatusBadRequest, "water cannot be negative")
		return
	}

	l, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		l.Water = *body.Water
		return true
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l)
}

// putWeight sets the day's body weight in kg.
// PUT /api/logs/:date/weight
func (h *Handler) putWeight(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	var body struct {
		Weight *float64 `json:"weight"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Weight == nil {
		apiError(c, http.StatusBadRequest, "weight (kg) is required")
		return
	}
	if *body.Weight <= 0 {
		apiError(c, http.StatusBadRequest, "weight must be positive")
		return
	}

	l, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		l.Weight = body.Weight
		return true
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l)
}

/* ─── Workouts ────────────────────────────────────────────────────────── */

// createWorkout appends a workout entry to the day's log and derives its
// schedule task in the same request.
// POST /api/logs/:date/workouts
func (h *Handler) createWorkout(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	var body createWorkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Exercise == "" {
		apiError(c, http.StatusBadRequest, "exercise is required")
		return
	}
	if body.Sets < 0 || body.Reps < 0 || body.Weight < 0 {
		apiError(c, http.StatusBadRequest, "sets, reps and weight cannot be negative")
		return
	}

	entry := workoutEntry{
		ID:        newEntryID(),
		Type:      body.Type,
		Exercise:  body.Exercise,
		Sets:      body.Sets,
		Reps:      body.Reps,
		Weight:    body.Weight,
		Machine:   body.Machine,
		Duration:  body.Duration,
		Notes:     body.Notes,
		Completed: true, // logging a workout means it happened
		CreatedAt: nowISO(),
	}

	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		l.Workouts = append(l.Workouts, entry)
		return true
	}); !ok {
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// patchWorkoutRequest updates only the fields present in the body.
type patchWorkoutRequest struct {
	Type      *string  `json:"type"`
	Exercise  *string  `json:"exercise"`
	Sets      *int     `json:"sets"`
	Reps      *int     `json:"reps"`
	Weight    *float64 `json:"weight"`
	Machine   *string  `json:"machine"`
	Duration  *int     `json:"duration"`
	Notes     *string  `json:"notes"`
	Completed *bool    `json:"completed"`
}

// patchWorkout partially updates one workout entry. Toggling completed on a
// schedule-originated entry flows back onto its planner task in the same pass.
// PATCH /api/logs/:date/workouts/:id
func (h *Handler) patchWorkout(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	id := c.Param("id")
	var body patchWorkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var updated workoutEntry
	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		for i := range l.Workouts {
			if l.Workouts[i].ID != id {
				continue
			}
			w := &l.Workouts[i]
			if body.Type != nil {
				w.Type = *body.Type
			}
			if body.Exercise != nil {
				w.Exercise = *body.Exercise
			}
			if body.Sets != nil {
				w.Sets = *body.Sets
			}
			if body.Reps != nil {
				w.Reps = *body.Reps
			}
			if body.Weight != nil {
				w.Weight = *body.Weight
			}
			if body.Machine != nil {
				w.Machine = *body.Machine
			}
			if body.Duration != nil {
				w.Duration = body.Duration
			}
			if body.Notes != nil {
				w.Notes = *body.Notes
			}
			if body.Completed != nil {
				w.Completed = *body.Completed
			}
			updated = *w
			return true
		}
		apiError(c, http.StatusNotFound, "workout entry not found")
		return false
	}); !ok {
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteWorkout removes one workout entry; its derived planner task disappears
// with it. Deleting a schedule-originated entry removes only the log copy —
// the manual task stays, and the next schedule sync will materialize it again.
// DELETE /api/logs/:date/workouts/:id
func (h *Handler) deleteWorkout(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		for i := range l.Workouts {
			if l.Workouts[i].ID == id {
				l.Workouts = append(l.Workouts[:i], l.Workouts[i+1:]...)
				return true
			}
		}
		apiError(c, http.StatusNotFound, "workout entry not found")
		return false
	}); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

/* ─── Meals ───────────────────────────────────────────────────────────── */

// createMeal appends a meal entry. Known foods can be logged by name alone:
// macros left at zero are filled from the food database, scaled by quantity.
// POST /api/logs/:date/meals
func (h *Handler) createMeal(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	var body createMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Food == "" {
		apiError(c, http.StatusBadRequest, "food is required")
		return
	}
	if body.Protein < 0 || body.Carbs < 0 || body.Fats < 0 || body.Calories < 0 {
		apiError(c, http.StatusBadRequest, "macros cannot be negative")
		return
	}

	if body.Protein == 0 && body.Carbs == 0 && body.Fats == 0 && body.Calories == 0 {
		if m, found := lookupFood(body.Food); found {
			qty := body.Quantity
			if qty <= 0 {
				qty = 1
			}
			body.Protein = m.Protein * qty
			body.Carbs = m.Carbs * qty
			body.Fats = m.Fats * qty
			body.Calories = m.Calories * qty
		}
	}

	entry := mealEntry{
		ID:        newEntryID(),
		Food:      body.Food,
		MealType:  body.MealType,
		Quantity:  body.Quantity,
		Unit:      body.Unit,
		Protein:   body.Protein,
		Carbs:     body.Carbs,
		Fats:      body.Fats,
		Calories:  body.Calories,
		Notes:     body.Notes,
		Completed: true,
		CreatedAt: nowISO(),
	}

	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		l.Meals = append(l.Meals, entry)
		return true
	}); !ok {
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// patchMealRequest updates only the fields present in the body.
type patchMealRequest struct {
	Food      *string  `json:"food"`
	MealType  *string  `json:"mealType"`
	Quantity  *float64 `json:"quantity"`
	Unit      *string  `json:"unit"`
	Protein   *float64 `json:"protein"`
	Carbs     *float64 `json:"carbs"`
	Fats      *float64 `json:"fats"`
	Calories  *float64 `json:"calories"`
	Notes     *string  `json:"notes"`
	Completed *bool    `json:"completed"`
}

// patchMeal partially updates one meal entry.
// PATCH /api/logs/:date/meals/:id
func (h *Handler) patchMeal(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	id := c.Param("id")
	var body patchMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var updated mealEntry
	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		for i := range l.Meals {
			if l.Meals[i].ID != id {
				continue
			}
			m := &l.Meals[i]
			if body.Food != nil {
				m.Food = *body.Food
			}
			if body.MealType != nil {
				m.MealType = *body.MealType
			}
			if body.Quantity != nil {
				m.Quantity = *body.Quantity
			}
			if body.Unit != nil {
				m.Unit = *body.Unit
			}
			if body.Protein != nil {
				m.Protein = *body.Protein
			}
			if body.Carbs != nil {
				m.Carbs = *body.Carbs
			}
			if body.Fats != nil {
				m.Fats = *body.Fats
			}
			if body.Calories != nil {
				m.Calories = *body.Calories
			}
			if body.Notes != nil {
				m.Notes = *body.Notes
			}
			if body.Completed != nil {
				m.Completed = *body.Completed
			}
			updated = *m
			return true
		}
		apiError(c, http.StatusNotFound, "meal entry not found")
		return false
	}); !ok {
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteMeal removes one meal entry.
// DELETE /api/logs/:date/meals/:id
func (h *Handler) deleteMeal(c *gin.Context) {
	date, ok := dateParam(c)
	if !ok {
		return
	}
	id := c.Param("id")

	if _, ok := h.mutateDailyLog(c, date, func(l *dailyLog) bool {
		for i := range l.Meals {
			if l.Meals[i].ID == id {
				l.Meals = append(l.Meals[:i], l.Meals[i+1:]...)
				return true
			}
		}
		apiError(c, http.StatusNotFound, "meal entry not found")
		return false
	}); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
