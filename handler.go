package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler holds shared dependencies (db pool, document store, sync engine,
// config) for all route handlers.
type Handler struct {
	db        *pgxpool.Pool
	store     Store
	recon     *reconciler
	guard     *syncGuard
	aiBaseURL string // Base URL for the DeepSeek API (overridable for tests)
}

func newHandler(db *pgxpool.Pool, store Store, aiBaseURL string) *Handler {
	return &Handler{
		db:        db,
		store:     store,
		recon:     newReconciler(store),
		guard:     newSyncGuard(),
		aiBaseURL: aiBaseURL,
	}
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](pool *pgxpool.Pool, c *gin.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(c, sql, args)
	if err != nil {
		log.Printf("[queryOne] Query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryOne] Scan error: %v", err)
	}
	return result, err
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// Neon closes idle connections after ~5 minutes.
func getDBPool() *pgxpool.Pool {
	config, err := pgxpool.ParseConfig(os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse DB URL: %v\n", err)
		os.Exit(1)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from Neon's server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("DB pool ready!")
	return pool
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
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
}
