// Package model defines the domain types shared across the app.
package model

import "time"

// MealType is the kind of meal a log entry records.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
	MealLate      MealType = "late"
)

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack, MealLate:
		return true
	}
	return false
}

// LogItem is one food item inside a saved log entry.
type LogItem struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// LogEntry is one saved, user-confirmed meal record. Timestamp is
// milliseconds since the Unix epoch, matching the stored JSON format.
// Total is computed once at creation and equals the sum of item calories.
type LogEntry struct {
	Timestamp int64     `json:"t"`
	Meal      MealType  `json:"meal"`
	Items     []LogItem `json:"items"`
	Total     int       `json:"total"`
}

// Time returns the entry timestamp as a time.Time in the local zone.
func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// NewLogEntry builds an entry from confirmed predictions at time now.
// Predictions with no calorie estimate count as zero.
func NewLogEntry(now time.Time, meal MealType, preds []Prediction) LogEntry {
	items := make([]LogItem, 0, len(preds))
	total := 0
	for _, p := range preds {
		cal := 0
		if p.Calories != nil && *p.Calories > 0 {
			cal = int(*p.Calories)
		}
		items = append(items, LogItem{Name: p.Name, Calories: cal})
		total += cal
	}
	return LogEntry{Timestamp: now.UnixMilli(), Meal: meal, Items: items, Total: total}
}

// Stats summarizes the active user's log.
type Stats struct {
	TodayTotal int `json:"todayTotal"`
	// TodayMeals counts distinct meal types logged today, not entries.
	TodayMeals int `json:"todayCount"`
	TotalCount int `json:"totalCount"`
}
