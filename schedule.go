package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// weekStartParam resolves the week_start query param to a Monday-anchored
// YYYY-MM-DD key, defaulting to the current week. Any date within the week is
// accepted and snapped to its Monday.
func weekStartParam(c *gin.Context) (string, bool) {
	s := c.Query("week_start")
	if s == "" {
		return currentMonday().Format("2006-01-02"), true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
		return "", false
	}
	return mondayOf(t).Format("2006-01-02"), true
}

// getSchedule returns the week's schedule with every weekday present.
// GET /api/schedule?week_start=
func (h *Handler) getSchedule(c *gin.Context) {
	userID := c.GetInt("user_id")
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		logReadDegraded("schedule", userID, weekStart, err)
		sched = normalizeSchedule(nil)
	}
	c.JSON(http.StatusOK, gin.H{"weekStart": weekStart, "days": sched})
}

/* ─── Task CRUD ───────────────────────────────────────────────────────── */

// createTask adds a manually authored task to a weekday. Workout and
// Nutrition tasks are materialized into the day's log in the same request.
// POST /api/schedule/:day/tasks?week_start=
func (h *Handler) createTask(c *gin.Context) {
	userID := c.GetInt("user_id")
	day := c.Param("day")
	if !validWeekday(day) {
		apiError(c, http.StatusBadRequest, "invalid day, expected Monday..Sunday")
		return
	}
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	var body createTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Title == "" {
		apiError(c, http.StatusBadRequest, "title is required")
		return
	}
	if !taskCategories[body.Category] {
		apiError(c, http.StatusBadRequest, "unknown category")
		return
	}

	t := task{
		ID:          newEntryID(),
		Category:    body.Category,
		Title:       body.Title,
		Description: body.Description,
		Origin:      originManual,
		CreatedAt:   nowISO(),
		Workout:     body.Workout,
		Nutrition:   body.Nutrition,
	}

	date := dateForDay(weekStart, day)
	sess, err := h.guard.begin(userID, date)
	if err == errSyncBusy {
		apiError(c, http.StatusConflict, "sync already in progress for this day, retry shortly")
		return
	}
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer sess.end()

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}
	sched[day] = append(sched[day], t)
	if err := h.store.PutSchedule(c, userID, weekStart, sched); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	if t.Category == "Workout" || t.Category == "Nutrition" {
		if _, err := h.recon.projectScheduleToLog(c, sess); err != nil {
			apiError(c, http.StatusInternalServerError, "task saved but log sync failed")
			return
		}
	}
	c.JSON(http.StatusCreated, t)
}

// patchTaskRequest updates only the fields present in the body.
type patchTaskRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Completed   *bool             `json:"completed"`
	Workout     *workoutDetails   `json:"workout"`
	Nutrition   *nutritionDetails `json:"nutrition"`
}

// patchTask edits one task. Completing a log-derived task writes the flag
// through to its source log entry; edits to a manual schedule-linked task
// re-materialize its log entry in the same request.
// PATCH /api/schedule/:day/tasks/:id?week_start=
func (h *Handler) patchTask(c *gin.Context) {
	userID := c.GetInt("user_id")
	day := c.Param("day")
	id := c.Param("id")
	if !validWeekday(day) {
		apiError(c, http.StatusBadRequest, "invalid day, expected Monday..Sunday")
		return
	}
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	var body patchTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	date := dateForDay(weekStart, day)
	sess, err := h.guard.begin(userID, date)
	if err == errSyncBusy {
		apiError(c, http.StatusConflict, "sync already in progress for this day, retry shortly")
		return
	}
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer sess.end()

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	idx := -1
	for i, t := range sched[day] {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		apiError(c, http.StatusNotFound, "task not found")
		return
	}

	t := &sched[day][idx]
	if body.Title != nil {
		t.Title = *body.Title
	}
	if body.Description != nil {
		t.Description = *body.Description
	}
	if body.Completed != nil {
		t.Completed = *body.Completed
	}
	if body.Workout != nil {
		t.Workout = body.Workout
	}
	if body.Nutrition != nil {
		t.Nutrition = body.Nutrition
	}

	if err := h.store.PutSchedule(c, userID, weekStart, sched); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	switch {
	case t.Origin == originLog && body.Completed != nil:
		// Completion of a derived task belongs to its source entry; write it
		// through so the next projection agrees with what we just saved.
		if err := h.setLogEntryCompleted(c, sess, *t, *body.Completed); err != nil {
			apiError(c, http.StatusInternalServerError, "task saved but log sync failed")
			return
		}
	case t.Origin == originManual && (t.Category == "Workout" || t.Category == "Nutrition"):
		if _, err := h.recon.projectScheduleToLog(c, sess); err != nil {
			apiError(c, http.StatusInternalServerError, "task saved but log sync failed")
			return
		}
	}
	c.JSON(http.StatusOK, *t)
}

// setLogEntryCompleted writes a derived task's completed flag through to the
// log entry it was projected from.
func (h *Handler) setLogEntryCompleted(c *gin.Context, sess *syncSession, t task, completed bool) error {
	l, err := h.store.GetDailyLog(c, sess.userID, sess.date)
	if err != nil {
		return err
	}
	changed := false
	switch t.Category {
	case "Workout":
		entryID := strings.TrimPrefix(t.ID, derivedWorkoutPrefix)
		for i := range l.Workouts {
			if l.Workouts[i].ID == entryID && l.Workouts[i].Completed != completed {
				l.Workouts[i].Completed = completed
				changed = true
			}
		}
	case "Nutrition":
		entryID := strings.TrimPrefix(t.ID, derivedMealPrefix)
		for i := range l.Meals {
			if l.Meals[i].ID == entryID && l.Meals[i].Completed != completed {
				l.Meals[i].Completed = completed
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	l.UpdatedAt = nowISO()
	return h.store.PutDailyLog(c, sess.userID, l)
}

// deleteTask removes one task. Deleting a manual schedule-linked task also
// removes its materialized log entry via the projection; deleting a derived
// task cascades to the log entry it mirrors, otherwise the next projection
// would just bring it back.
// DELETE /api/schedule/:day/tasks/:id?week_start=
func (h *Handler) deleteTask(c *gin.Context) {
	userID := c.GetInt("user_id")
	day := c.Param("day")
	id := c.Param("id")
	if !validWeekday(day) {
		apiError(c, http.StatusBadRequest, "invalid day, expected Monday..Sunday")
		return
	}
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	date := dateForDay(weekStart, day)
	sess, err := h.guard.begin(userID, date)
	if err == errSyncBusy {
		apiError(c, http.StatusConflict, "sync already in progress for this day, retry shortly")
		return
	}
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer sess.end()

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	var removed *task
	for i, t := range sched[day] {
		if t.ID == id {
			removed = &t
			sched[day] = append(sched[day][:i], sched[day][i+1:]...)
			break
		}
	}
	if removed == nil {
		apiError(c, http.StatusNotFound, "task not found")
		return
	}

	if err := h.store.PutSchedule(c, userID, weekStart, sched); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	switch {
	case removed.Origin == originLog:
		if err := h.deleteSourceLogEntry(c, sess, *removed); err != nil {
			apiError(c, http.StatusInternalServerError, "task deleted but log sync failed")
			return
		}
	case removed.Origin == originManual && (removed.Category == "Workout" || removed.Category == "Nutrition"):
		if _, err := h.recon.projectScheduleToLog(c, sess); err != nil {
			apiError(c, http.StatusInternalServerError, "task deleted but log sync failed")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// deleteSourceLogEntry removes the log entry a derived task was projected from.
func (h *Handler) deleteSourceLogEntry(c *gin.Context, sess *syncSession, t task) error {
	l, err := h.store.GetDailyLog(c, sess.userID, sess.date)
	if err != nil {
		return err
	}
	changed := false
	switch t.Category {
	case "Workout":
		entryID := strings.TrimPrefix(t.ID, derivedWorkoutPrefix)
		for i := range l.Workouts {
			if l.Workouts[i].ID == entryID {
				l.Workouts = append(l.Workouts[:i], l.Workouts[i+1:]...)
				changed = true
				break
			}
		}
	case "Nutrition":
		entryID := strings.TrimPrefix(t.ID, derivedMealPrefix)
		for i := range l.Meals {
			if l.Meals[i].ID == entryID {
				l.Meals = append(l.Meals[:i], l.Meals[i+1:]...)
				changed = true
				break
			}
		}
	}
	if !changed {
		return nil
	}
	l.UpdatedAt = nowISO()
	return h.store.PutDailyLog(c, sess.userID, l)
}

/* ─── Move, copy, stats ───────────────────────────────────────────────── */

// moveTask moves a manual task to another weekday (or position within the
// same day). Log-derived tasks follow their log entry and cannot be moved.
// POST /api/schedule/:day/tasks/:id/move?week_start=  {"toDay": ..., "position": N}
func (h *Handler) moveTask(c *gin.Context) {
	userID := c.GetInt("user_id")
	fromDay := c.Param("day")
	id := c.Param("id")
	if !validWeekday(fromDay) {
		apiError(c, http.StatusBadRequest, "invalid day, expected Monday..Sunday")
		return
	}
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	var body struct {
		ToDay    string `json:"toDay"`
		Position *int   `json:"position"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validWeekday(body.ToDay) {
		apiError(c, http.StatusBadRequest, "invalid toDay, expected Monday..Sunday")
		return
	}

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	var moved *task
	for i, t := range sched[fromDay] {
		if t.ID == id {
			moved = &t
			sched[fromDay] = append(sched[fromDay][:i], sched[fromDay][i+1:]...)
			break
		}
	}
	if moved == nil {
		apiError(c, http.StatusNotFound, "task not found")
		return
	}
	if moved.Origin == originLog {
		apiError(c, http.StatusBadRequest, "log-derived tasks follow their log entry and cannot be moved")
		return
	}

	dest := sched[body.ToDay]
	pos := len(dest)
	if body.Position != nil && *body.Position >= 0 && *body.Position < len(dest) {
		pos = *body.Position
	}
	dest = append(dest[:pos], append([]task{*moved}, dest[pos:]...)...)
	sched[body.ToDay] = dest

	if err := h.store.PutSchedule(c, userID, weekStart, sched); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	// A schedule-linked task changes which day's log carries its materialized
	// entry, so both ends get re-projected.
	if moved.Category == "Workout" || moved.Category == "Nutrition" {
		days := []string{fromDay}
		if body.ToDay != fromDay {
			days = append(days, body.ToDay)
		}
		for _, day := range days {
			if err := h.projectDay(c, userID, dateForDay(weekStart, day)); err != nil {
				apiError(c, http.StatusInternalServerError, "task moved but log sync failed")
				return
			}
		}
	}
	c.JSON(http.StatusOK, *moved)
}

// projectDay runs a schedule→log projection for one date under its own session.
func (h *Handler) projectDay(c *gin.Context, userID int, date string) error {
	sess, err := h.guard.begin(userID, date)
	if err != nil {
		return err
	}
	defer sess.end()
	_, err = h.recon.projectScheduleToLog(c, sess)
	return err
}

// copyScheduleWeek copies a week's manually authored tasks onto another week
// with fresh ids and completion reset. Derived tasks are projections of that
// week's logs and do not travel.
// POST /api/schedule/copy  {"fromWeekStart": ..., "toWeekStart": ...}
func (h *Handler) copyScheduleWeek(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		FromWeekStart string `json:"fromWeekStart"`
		ToWeekStart   string `json:"toWeekStart"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	from, err := time.Parse("2006-01-02", body.FromWeekStart)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid fromWeekStart, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", body.ToWeekStart)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid toWeekStart, expected YYYY-MM-DD")
		return
	}
	fromKey := mondayOf(from).Format("2006-01-02")
	toKey := mondayOf(to).Format("2006-01-02")
	if fromKey == toKey {
		apiError(c, http.StatusBadRequest, "source and target week are the same")
		return
	}

	src, err := h.store.GetSchedule(c, userID, fromKey)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch source schedule")
		return
	}
	dst, err := h.store.GetSchedule(c, userID, toKey)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch target schedule")
		return
	}

	copied := 0
	for _, day := range daysOfWeek {
		for _, t := range src[day] {
			if t.Origin != originManual {
				continue
			}
			t.ID = uuid.NewString()
			t.Completed = false
			t.CreatedAt = nowISO()
			dst[day] = append(dst[day], t)
			copied++
		}
	}

	if err := h.store.PutSchedule(c, userID, toKey, dst); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save target schedule")
		return
	}

	// Materialize the copied Workout/Nutrition tasks into the target week's logs.
	for _, day := range daysOfWeek {
		if err := h.projectDay(c, userID, dateForDay(toKey, day)); err != nil {
			apiError(c, http.StatusInternalServerError, "week copied but log sync failed")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"weekStart": toKey, "copied": copied})
}

// dayStats is one weekday's completion summary.
type dayStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// getScheduleStats returns per-day and whole-week completion percentages.
// GET /api/schedule/stats?week_start=
func (h *Handler) getScheduleStats(c *gin.Context) {
	userID := c.GetInt("user_id")
	weekStart, ok := weekStartParam(c)
	if !ok {
		return
	}

	sched, err := h.store.GetSchedule(c, userID, weekStart)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	days := map[string]dayStats{}
	var total, completed int
	for _, day := range daysOfWeek {
		s := dayStats{Total: len(sched[day])}
		for _, t := range sched[day] {
			if t.Completed {
				s.Completed++
			}
		}
		if s.Total > 0 {
			s.Percent = s.Completed * 100 / s.Total
		}
		days[day] = s
		total += s.Total
		completed += s.Completed
	}

	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}
	c.JSON(http.StatusOK, gin.H{
		"weekStart": weekStart,
		"days":      days,
		"total":     total,
		"completed": completed,
		"percent":   percent,
	})
}

/* ─── Manual sync ─────────────────────────────────────────────────────── */

// syncDay re-runs both projection directions for one date: the log settles
// onto the schedule first, then manual tasks materialize back into the log.
// POST /api/sync?date=  (defaults to today)
func (h *Handler) syncDay(c *gin.Context) {
	userID := c.GetInt("user_id")

	date := c.Query("date")
	if date == "" {
		date = todayStr()
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	sess, err := h.guard.begin(userID, date)
	if err == errSyncBusy {
		apiError(c, http.StatusConflict, "sync already in progress for this day, retry shortly")
		return
	}
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer sess.end()

	l, err := h.store.GetDailyLog(c, userID, date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch daily log")
		return
	}

	scheduleChanged, err := h.recon.projectLogToSchedule(c, sess, l.Workouts, l.Meals)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "log to schedule sync failed")
		return
	}
	logChanged, err := h.recon.projectScheduleToLog(c, sess)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "schedule to log sync failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":            date,
		"scheduleChanged": scheduleChanged,
		"logChanged":      logChanged,
	})
}
