package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getProfile returns the user's profile document with goal defaults applied.
// GET /api/profile
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := h.store.GetProfile(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

// patchProfile partially updates the profile: only fields present in the body
// are written, the rest keep their stored values.
// PATCH /api/profile
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.store.GetProfile(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	if body.DisplayName != nil {
		p.DisplayName = *body.DisplayName
	}
	if body.Age != nil {
		p.Age = body.Age
	}
	if body.Gender != nil {
		p.Gender = *body.Gender
	}
	if body.HeightCM != nil {
		p.HeightCM = body.HeightCM
	}
	if body.CurrentWeight != nil {
		p.CurrentWeight = body.CurrentWeight
	}
	if body.TargetWeight != nil {
		p.TargetWeight = body.TargetWeight
	}
	if body.ActivityLevel != nil {
		p.ActivityLevel = *body.ActivityLevel
	}
	if body.WaterGoalML != nil {
		if *body.WaterGoalML < 0 {
			apiError(c, http.StatusBadRequest, "waterGoal cannot be negative")
			return
		}
		p.WaterGoalML = *body.WaterGoalML
	}
	if body.ProteinGoalG != nil {
		if *body.ProteinGoalG < 0 {
			apiError(c, http.StatusBadRequest, "proteinGoal cannot be negative")
			return
		}
		p.ProteinGoalG = *body.ProteinGoalG
	}
	if body.CalorieGoal != nil {
		p.CalorieGoal = body.CalorieGoal
	}
	applyProfileDefaults(&p)

	if err := h.store.PutProfile(c, userID, p); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save profile")
		return
	}
	c.JSON(http.StatusOK, p)
}
