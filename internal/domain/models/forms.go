package models

import (
	"fmt"
	"strings"
)

// FormCategories maps every front-end form identifier to the category its
// submissions are stored in.
var FormCategories = map[string]Category{
	"expense-form":    CategoryExpenses,
	"feed-form":       CategoryFeedConsumption,
	"attendance-form": CategoryAttendance,
	"employee-form":   CategoryEmployees,
	"egg-form":        CategoryEggRecords,
	"medicine-form":   CategoryMedicine,
	"mortality-form":  CategoryMortality,
	"feedorder-form":  CategoryFeedOrders,
	"task-form":       CategoryTasks,
	"settings-form":   CategorySettings,
}

// ResolveForm returns the category bound to formID.
func ResolveForm(formID string) (Category, error) {
	c, ok := FormCategories[strings.ToLower(strings.TrimSpace(formID))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	return c, nil
}

// ValidateFormTable checks that every form targets a known category and that
// every category can be reached from at least one form.
func ValidateFormTable(table map[string]Category) error {
	reached := make(map[Category]bool, len(AllCategories))
	for formID, c := range table {
		if formID != strings.ToLower(strings.TrimSpace(formID)) {
			return fmt.Errorf("form id %q must be lower case without surrounding spaces", formID)
		}
		if !c.Valid() {
			return fmt.Errorf("form %q: %w: %q", formID, ErrUnknownCategory, c)
		}
		reached[c] = true
	}

	for _, c := range AllCategories {
		if !reached[c] {
			return fmt.Errorf("category %s has no form bound to it", c)
		}
	}
	return nil
}
