package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// memStore is an in-memory Store for tests. It deep-copies documents on both
// reads and writes so tests can't accidentally mutate stored state through
// shared slices, and it counts writes so reentrancy can be asserted as
// "zero writes", not just "equal output".
type memStore struct {
	mu       sync.Mutex
	logs     map[string]dailyLog
	scheds   map[string]weekSchedule
	profiles map[int]profile
	reports  map[string]weeklyReport

	writes     int
	failWrites bool
}

func newMemStore() *memStore {
	return &memStore{
		logs:     map[string]dailyLog{},
		scheds:   map[string]weekSchedule{},
		profiles: map[int]profile{},
		reports:  map[string]weeklyReport{},
	}
}

// deepCopy round-trips src through JSON into dst. Documents are
// JSON-serializable by construction, so this is a faithful clone.
func deepCopy(src, dst interface{}) {
	b, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		panic(err)
	}
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memStore) GetDailyLog(_ context.Context, userID int, date string) (dailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var l dailyLog
	if stored, ok := s.logs[fmt.Sprintf("%d/%s", userID, date)]; ok {
		deepCopy(stored, &l)
	}
	normalizeDailyLog(&l, date)
	return l, nil
}

func (s *memStore) PutDailyLog(_ context.Context, userID int, log dailyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("write refused")
	}
	var stored dailyLog
	deepCopy(log, &stored)
	s.logs[fmt.Sprintf("%d/%s", userID, log.Date)] = stored
	s.writes++
	return nil
}

func (s *memStore) GetSchedule(_ context.Context, userID int, weekStart string) (weekSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sched weekSchedule
	if stored, ok := s.scheds[fmt.Sprintf("%d/%s", userID, weekStart)]; ok {
		deepCopy(stored, &sched)
	}
	return normalizeSchedule(sched), nil
}

func (s *memStore) PutSchedule(_ context.Context, userID int, weekStart string, sched weekSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("write refused")
	}
	var stored weekSchedule
	deepCopy(sched, &stored)
	s.scheds[fmt.Sprintf("%d/%s", userID, weekStart)] = stored
	s.writes++
	return nil
}

func (s *memStore) GetProfile(_ context.Context, userID int) (profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p profile
	if stored, ok := s.profiles[userID]; ok {
		deepCopy(stored, &p)
	}
	applyProfileDefaults(&p)
	return p, nil
}

func (s *memStore) PutProfile(_ context.Context, userID int, p profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("write refused")
	}
	var stored profile
	deepCopy(p, &stored)
	s.profiles[userID] = stored
	s.writes++
	return nil
}

func (s *memStore) SaveReport(_ context.Context, userID int, report weeklyReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return "", fmt.Errorf("write refused")
	}
	id := fmt.Sprintf("%d-W%d", report.Year, report.WeekNumber)
	report.ID = id
	var stored weeklyReport
	deepCopy(report, &stored)
	s.reports[fmt.Sprintf("%d/%s", userID, id)] = stored
	s.writes++
	return id, nil
}

func (s *memStore) ListReports(_ context.Context, userID, limit int) ([]weeklyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []weeklyReport{}
	for key, stored := range s.reports {
		if !strings.HasPrefix(key, fmt.Sprintf("%d/", userID)) {
			continue
		}
		var r weeklyReport
		deepCopy(stored, &r)
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

/* ─── HTTP test harness ──────────────────────────────────────────────── */

// setupAPITest builds a router over a fresh in-memory store, with the auth
// middleware replaced by a stub that pins user_id=1.
func setupAPITest(aiBaseURL string) (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	ms := newMemStore()
	h := newHandler(nil, ms, aiBaseURL)

	router := gin.New()
	api := router.Group("/api", func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Next()
	})
	api.GET("/lookups", h.getLookups)
	api.GET("/profile", h.getProfile)
	api.PATCH("/profile", h.patchProfile)
	api.GET("/logs/:date", h.getDailyLog)
	api.PUT("/logs/:date/water", h.putWater)
	api.PUT("/logs/:date/weight", h.putWeight)
	api.POST("/logs/:date/workouts", h.createWorkout)
	api.PATCH("/logs/:date/workouts/:id", h.patchWorkout)
	api.DELETE("/logs/:date/workouts/:id", h.deleteWorkout)
	api.POST("/logs/:date/meals", h.createMeal)
	api.PATCH("/logs/:date/meals/:id", h.patchMeal)
	api.DELETE("/logs/:date/meals/:id", h.deleteMeal)
	api.GET("/schedule", h.getSchedule)
	api.GET("/schedule/stats", h.getScheduleStats)
	api.POST("/schedule/copy", h.copyScheduleWeek)
	api.POST("/schedule/:day/tasks", h.createTask)
	api.PATCH("/schedule/:day/tasks/:id", h.patchTask)
	api.DELETE("/schedule/:day/tasks/:id", h.deleteTask)
	api.POST("/schedule/:day/tasks/:id/move", h.moveTask)
	api.POST("/sync", h.syncDay)
	api.POST("/reports/weekly", h.createWeeklyReportHandler)
	api.GET("/reports", h.listReportsHandler)

	return router, ms
}

// doRequest sends a JSON request and returns the recorder.
func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
