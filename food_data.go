package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// macros is one food's nutrition per listed serving.
type macros struct {
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Calories float64 `json:"calories"`
}

// commonFoods is the built-in food macro table, grouped for the food picker.
// Values are per the serving named in the key.
var commonFoods = map[string]map[string]macros{
	"Protein Sources": {
		"Chicken Breast (100g)":    {Protein: 31, Carbs: 0, Fats: 3.6, Calories: 165},
		"Eggs (1 large)":           {Protein: 6, Carbs: 0.6, Fats: 5, Calories: 70},
		"Greek Yogurt (100g)":      {Protein: 10, Carbs: 4, Fats: 0, Calories: 59},
		"Tuna (100g)":              {Protein: 30, Carbs: 0, Fats: 1, Calories: 132},
		"Salmon (100g)":            {Protein: 25, Carbs: 0, Fats: 12, Calories: 208},
		"Protein Powder (1 scoop)": {Protein: 24, Carbs: 3, Fats: 1, Calories: 120},
		"Cottage Cheese (100g)":    {Protein: 11, Carbs: 3.4, Fats: 4.3, Calories: 98},
	},
	"Carbohydrates": {
		"Oats (100g)":               {Protein: 17, Carbs: 66, Fats: 7, Calories: 389},
		"Brown Rice (100g cooked)":  {Protein: 2.6, Carbs: 23, Fats: 0.9, Calories: 111},
		"Sweet Potato (100g)":       {Protein: 2, Carbs: 20, Fats: 0.1, Calories: 86},
		"Banana (1 medium)":         {Protein: 1.3, Carbs: 27, Fats: 0.3, Calories: 105},
		"White Rice (100g cooked)":  {Protein: 2.7, Carbs: 28, Fats: 0.3, Calories: 130},
		"Pasta (100g cooked)":       {Protein: 5, Carbs: 25, Fats: 0.9, Calories: 131},
	},
	"Healthy Fats": {
		"Almonds (28g)":         {Protein: 6, Carbs: 6, Fats: 14, Calories: 164},
		"Avocado (100g)":        {Protein: 2, Carbs: 9, Fats: 15, Calories: 160},
		"Olive Oil (1 tbsp)":    {Protein: 0, Carbs: 0, Fats: 14, Calories: 119},
		"Peanut Butter (2 tbsp)": {Protein: 8, Carbs: 6, Fats: 16, Calories: 188},
		"Walnuts (28g)":         {Protein: 4, Carbs: 4, Fats: 18, Calories: 185},
	},
	"Supplements": {
		"Creatine (5g)":            {Protein: 0, Carbs: 0, Fats: 0, Calories: 0},
		"Whey Protein (1 scoop)":   {Protein: 24, Carbs: 3, Fats: 1, Calories: 120},
		"Casein Protein (1 scoop)": {Protein: 24, Carbs: 3, Fats: 1, Calories: 120},
		"BCAA (1 serving)":         {Protein: 5, Carbs: 0, Fats: 0, Calories: 20},
	},
	"Dairy": {
		"Milk (250ml)":         {Protein: 8, Carbs: 12, Fats: 8, Calories: 150},
		"Low-fat Milk (250ml)": {Protein: 8, Carbs: 12, Fats: 2.5, Calories: 102},
		"Cheese (28g)":         {Protein: 7, Carbs: 1, Fats: 9, Calories: 113},
	},
}

// lookupFood finds a food's macros by name, case-insensitively, across all
// groups. The serving-size suffix in the key is part of the name.
func lookupFood(name string) (macros, bool) {
	for _, group := range commonFoods {
		for key, m := range group {
			if strings.EqualFold(key, name) {
				return m, true
			}
		}
	}
	return macros{}, false
}

var mealTypes = []string{
	"Breakfast",
	"Mid-Morning Snack",
	"Lunch",
	"Afternoon Snack",
	"Pre-Workout",
	"Post-Workout",
	"Dinner",
	"Evening Snack",
}

var workoutTypes = []string{
	"Push Day (Chest, Shoulders, Triceps)",
	"Pull Day (Back, Biceps)",
	"Leg Day",
	"Upper Body",
	"Lower Body",
	"Full Body",
	"Cardio",
	"Swimming",
	"Recovery/Stretching",
}

var machines = []string{
	"Barbell",
	"Dumbbell",
	"Cable Machine",
	"Smith Machine",
	"Leg Press Machine",
	"Lat Pulldown Machine",
	"Seated Row Machine",
	"Chest Press Machine",
	"Shoulder Press Machine",
	"Leg Curl Machine",
	"Leg Extension Machine",
	"Calf Raise Machine",
	"Free Weights",
	"Bodyweight",
}

// taskCategories is the set of allowed schedule task categories. Reject
// unknown values with 400 rather than persisting junk into the documents.
var taskCategories = map[string]bool{
	"Workout":     true,
	"Meal Prep":   true,
	"Nutrition":   true,
	"Water":       true,
	"Supplements": true,
	"Sleep":       true,
	"Recovery":    true,
	"Other":       true,
}

// daysOfWeek is the canonical weekday ordering of a schedule document,
// Monday-anchored to match the week-start key.
var daysOfWeek = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// validWeekday reports whether name is one of the schedule's weekday keys.
func validWeekday(name string) bool {
	for _, d := range daysOfWeek {
		if d == name {
			return true
		}
	}
	return false
}

// Profile goal defaults applied when the stored document omits them.
const (
	defaultWaterGoalML  = 4000
	defaultProteinGoalG = 150
)

// getLookups returns the static lookup tables the frontend builds its pickers from.
// GET /api/lookups.
func (h *Handler) getLookups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"foods":          commonFoods,
		"mealTypes":      mealTypes,
		"workoutTypes":   workoutTypes,
		"machines":       machines,
		"taskCategories": taskCategoryList(),
		"daysOfWeek":     daysOfWeek,
	})
}

// taskCategoryList returns the categories in their display order.
func taskCategoryList() []string {
	return []string{"Workout", "Meal Prep", "Nutrition", "Water", "Supplements", "Sleep", "Recovery", "Other"}
}
