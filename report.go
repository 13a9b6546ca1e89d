package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

/* ─── DeepSeek prompt ────────────────────────────────────────────────── */

const reportSystemPrompt = `You are FitTrack AI, an expert fitness and nutrition coach specializing in muscle building and physique development. You analyze user data to provide actionable insights for achieving defined abs, strong shoulders, and arms. Be specific, motivational, and data-driven in your recommendations.`

// buildReportPrompt renders the aggregated week into the analysis prompt.
func buildReportPrompt(data weekData) string {
	p := data.Profile
	applyProfileDefaults(&p)
	stats := computeWeeklyStats(data)

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this week's fitness data for a %s, %s individual aiming for a muscular physique:\n\n",
		formatHeight(p.HeightCM), formatWeight(p.CurrentWeight))

	fmt.Fprintf(&b, "USER PROFILE:\n- Height: %s\n- Current Weight: %s\n- Goal: Defined abs, strong shoulders, arms\n- Target: Lean muscle gain\n\n",
		formatHeight(p.HeightCM), formatWeight(p.CurrentWeight))

	fmt.Fprintf(&b, "WEEKLY DATA (%s to %s):\n\n", data.StartDate, data.EndDate)

	fmt.Fprintf(&b, "WORKOUTS COMPLETED: %d sessions\n", len(data.Workouts))
	for _, w := range data.Workouts {
		fmt.Fprintf(&b, "- %s: %dx%d @ %.0fkg (%s)\n", w.Exercise, w.Sets, w.Reps, w.Weight, w.Type)
	}

	fmt.Fprintf(&b, "\nNUTRITION SUMMARY:\n- Daily Avg Protein: %dg (Goal: %d-%dg)\n- Daily Avg Carbs: %dg\n- Daily Avg Fats: %dg\n- Daily Avg Calories: %d\n",
		stats.AvgProtein, p.ProteinGoalG, p.ProteinGoalG+10, stats.AvgCarbs, stats.AvgFats, stats.AvgCalories)

	fmt.Fprintf(&b, "\nHYDRATION:\n- Daily Avg Water: %dml (Goal: %dml)\n- Days Goal Met: %d/7\n",
		stats.AvgWater, p.WaterGoalML, stats.WaterGoalDays)

	b.WriteString("\nWEIGHT TREND:\n")
	for _, w := range data.Weights {
		fmt.Fprintf(&b, "%s: %.1fkg\n", w.Date, w.Weight)
	}

	b.WriteString(`
Please provide:
1. WEEKLY PERFORMANCE SUMMARY (2-3 sentences)
2. KEY STRENGTHS (what's going well)
3. AREAS FOR IMPROVEMENT (specific actionable items)
4. NEXT WEEK RECOMMENDATIONS (3-4 specific suggestions)
5. MUSCLE BUILDING INSIGHTS (protein timing, workout progression)
6. TREND ANALYSIS (weight, strength, consistency patterns)

Keep response concise, motivational, and focused on physique goals.
`)
	return b.String()
}

func formatHeight(cm *float64) string {
	if cm == nil {
		return "unknown height"
	}
	return fmt.Sprintf("%.0fcm", *cm)
}

func formatWeight(kg *float64) string {
	if kg == nil {
		return "unknown weight"
	}
	return fmt.Sprintf("%.0fkg", *kg)
}

/* ─── DeepSeek HTTP client ───────────────────────────────────────────── */

// chatMessage is a single message in the chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the DeepSeek chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// callDeepSeek sends a chat completions request and returns the raw content
// string from the first choice. Uses raw net/http to avoid pulling in an SDK.
func callDeepSeek(ctx context.Context, messages []chatMessage, baseURL string) (string, error) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("DEEPSEEK_API_KEY not set")
	}

	reqBody := chatRequest{
		Model:       "deepseek-chat",
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.7,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

/* ─── Report generation ──────────────────────────────────────────────── */

// generateWeeklyReport produces the week's insight report. Any failure along
// the external path — key unset, transport error, unparseable reply — falls
// back to the deterministic local report; callers never see an error, only
// IsDemo=true on the fallback.
func generateWeeklyReport(ctx context.Context, data weekData, baseURL string) weeklyReport {
	content, err := callDeepSeek(ctx, []chatMessage{
		{Role: "system", Content: reportSystemPrompt},
		{Role: "user", Content: buildReportPrompt(data)},
	}, baseURL)
	if err != nil {
		log.Printf("[report] model call failed, using local report: %v", err)
		return demoReport(data)
	}

	report, ok := parseReportResponse(content)
	if !ok {
		log.Printf("[report] could not parse model response, using local report")
		return demoReport(data)
	}
	report.WeeklyStats = computeWeeklyStats(data)
	report.GeneratedAt = nowISO()
	return report
}

// parseReportResponse splits the model's sectioned free text into the
// structured report. Section headings are matched loosely by keyword; bullet
// lines feed the list sections, prose feeds the text sections. ok=false when
// nothing usable was found.
func parseReportResponse(content string) (weeklyReport, bool) {
	report := weeklyReport{
		Strengths:       []string{},
		Improvements:    []string{},
		Recommendations: []string{},
	}

	section := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "performance summary") || strings.Contains(lower, "summary"):
			section = "summary"
			continue
		case strings.Contains(lower, "strengths") || strings.Contains(lower, "going well"):
			section = "strengths"
			continue
		case strings.Contains(lower, "improvement") || strings.Contains(lower, "areas for"):
			section = "improvements"
			continue
		case strings.Contains(lower, "recommendation") || strings.Contains(lower, "next week"):
			section = "recommendations"
			continue
		case strings.Contains(lower, "muscle building") || strings.Contains(lower, "insights"):
			section = "insights"
			continue
		case strings.Contains(lower, "trend") || strings.Contains(lower, "analysis"):
			section = "trends"
			continue
		}

		if item, isBullet := strings.CutPrefix(line, "- "); isBullet || strings.HasPrefix(line, "• ") {
			if !isBullet {
				item = strings.TrimPrefix(line, "• ")
			}
			switch section {
			case "strengths":
				report.Strengths = append(report.Strengths, item)
			case "improvements":
				report.Improvements = append(report.Improvements, item)
			case "recommendations":
				report.Recommendations = append(report.Recommendations, item)
			}
			continue
		}

		switch section {
		case "summary":
			report.Summary += line + " "
		case "insights":
			report.Insights += line + " "
		case "trends":
			report.Trends += line + " "
		}
	}

	report.Summary = strings.TrimSpace(report.Summary)
	report.Insights = strings.TrimSpace(report.Insights)
	report.Trends = strings.TrimSpace(report.Trends)

	if report.Summary == "" && len(report.Strengths) == 0 && len(report.Recommendations) == 0 {
		return weeklyReport{}, false
	}
	return report, true
}

// demoReport computes the deterministic local report from the aggregates.
// Same shape as the model path; IsDemo marks the degraded origin.
func demoReport(data weekData) weeklyReport {
	stats := computeWeeklyStats(data)
	p := data.Profile
	applyProfileDefaults(&p)

	weightNote := "Weight stability suggests good body composition maintenance."
	if stats.WeightChange > 0 {
		weightNote = "Positive weight trend indicates muscle gain progress."
	}

	strengths := []string{
		fmt.Sprintf("Completed %d workout sessions this week", stats.TotalWorkouts),
		fmt.Sprintf("Averaged %dg protein daily (%d/7 days hit %dg+ goal)", stats.AvgProtein, stats.ProteinGoalDays, p.ProteinGoalG),
		fmt.Sprintf("Maintained %dml daily water intake", stats.AvgWater),
	}
	if len(stats.WorkoutTypes) > 0 {
		strengths = append(strengths, fmt.Sprintf("Diverse training with %s workouts", strings.Join(stats.WorkoutTypes, ", ")))
	}

	improvements := []string{}
	if stats.AvgProtein < p.ProteinGoalG {
		improvements = append(improvements, fmt.Sprintf("Increase protein intake to %d-%dg daily for optimal muscle protein synthesis", p.ProteinGoalG, p.ProteinGoalG+10))
	}
	if stats.AvgWater < p.WaterGoalML-500 {
		improvements = append(improvements, fmt.Sprintf("Boost daily water intake to %.0fL, especially on workout days", float64(p.WaterGoalML)/1000))
	}
	if stats.TotalWorkouts < 4 {
		improvements = append(improvements, "Aim for 4-5 workout sessions per week for consistent progress")
	}
	improvements = append(improvements, "Consider tracking progressive overload by gradually increasing weights")

	progressKind := "body recomposition"
	if stats.WeightChange > 0 {
		progressKind = "lean muscle gain"
	}
	consistency := "needs improvement"
	if stats.TotalWorkouts >= 4 {
		consistency = "excellent"
	}

	return weeklyReport{
		Summary: fmt.Sprintf("Strong week with %d workouts completed! Your average protein intake of %dg shows dedication to muscle building goals. %s",
			stats.TotalWorkouts, stats.AvgProtein, weightNote),
		Strengths:    strengths,
		Improvements: improvements,
		Recommendations: []string{
			"Focus on compound movements: bench press, squats, deadlifts for maximum muscle activation",
			"Time protein intake around workouts: 25-30g within 2 hours post-workout",
			"Ensure 7-9 hours sleep for optimal recovery and muscle growth",
			"Track measurements (chest, shoulders, arms) for physique progress beyond weight",
		},
		Insights: fmt.Sprintf("Your %.0fkg total training volume shows serious commitment. For defined abs and strong shoulders, maintain current protein levels while ensuring progressive overload in key lifts. Weight trend of %.1fkg suggests %s progress.",
			stats.TotalVolume, stats.WeightChange, progressKind),
		Trends: fmt.Sprintf("Training consistency is %s. Nutrition adherence at %d%% for protein goals. Hydration compliance at %d%%. Focus on consistency for maximum physique development.",
			consistency, int(math.Round(float64(stats.ProteinGoalDays)/7*100)), int(math.Round(float64(stats.WaterGoalDays)/7*100))),
		WeeklyStats: stats,
		GeneratedAt: nowISO(),
		IsDemo:      true,
	}
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// createWeeklyReportHandler aggregates the week's daily logs, generates the
// insight report, and saves it under its year-week id.
// POST /api/reports/weekly?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) createWeeklyReportHandler(c *gin.Context) {
	userID := c.GetInt("user_id")

	weekStart := currentMonday()
	if s := c.Query("week_start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = mondayOf(t)
	}

	// Read failures degrade to empty data; a report over a blank week is
	// still a report. Only write failures are surfaced.
	prof, err := h.store.GetProfile(c, userID)
	if err != nil {
		log.Printf("[report] profile read failed for user %d: %v", userID, err)
		prof = profile{}
		applyProfileDefaults(&prof)
	}

	logs := make([]dailyLog, 7)
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		l, err := h.store.GetDailyLog(c, userID, date)
		if err != nil {
			log.Printf("[report] daily log read failed for user %d %s: %v", userID, date, err)
			l = dailyLog{}
			normalizeDailyLog(&l, date)
		}
		logs[i] = l
	}

	data := aggregateWeek(prof, weekStart, logs)
	report := generateWeeklyReport(c.Request.Context(), data, h.aiBaseURL)
	report.WeekStart = data.StartDate
	report.WeekEnd = data.EndDate
	report.WeekNumber = data.WeekNumber
	report.Year = weekStart.Year()

	// The report is the payload; a failed save is logged but does not void it.
	if id, err := h.store.SaveReport(c, userID, report); err != nil {
		log.Printf("[report] save failed for user %d: %v", userID, err)
	} else {
		report.ID = id
	}

	c.JSON(http.StatusOK, report)
}

// listReportsHandler returns previously generated reports, newest first.
// GET /api/reports?limit=N (default 5, max 20).
func (h *Handler) listReportsHandler(c *gin.Context) {
	userID := c.GetInt("user_id")

	limit := 5
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			apiError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 20 {
		limit = 20
	}

	reports, err := h.store.ListReports(c, userID, limit)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}
