package models

import (
	"fmt"
	"strings"
)

// Category names one independent collection of records.
type Category string

const (
	CategoryExpenses        Category = "expenses"
	CategoryFeedConsumption Category = "feedConsumption"
	CategoryAttendance      Category = "attendance"
	CategoryEmployees       Category = "employees"
	CategoryEggRecords      Category = "eggRecords"
	CategoryMedicine        Category = "medicine"
	CategoryMortality       Category = "mortality"
	CategoryFeedOrders      Category = "feedOrders"
	CategoryTasks           Category = "tasks"
	CategorySettings        Category = "settings"
)

type categorySpec struct {
	sheet   string
	columns []string
	indexes []string
}

var categorySpecs = map[Category]categorySpec{
	CategoryExpenses: {
		sheet:   "Expenses",
		columns: []string{"date", "category", "description", "amount", "paymentMethod"},
		indexes: []string{"date", "category"},
	},
	CategoryFeedConsumption: {
		sheet:   "FeedConsumption",
		columns: []string{"date", "shed", "feedType", "quantity", "bags", "notes"},
	},
	CategoryAttendance: {
		sheet:   "Attendance",
		columns: []string{"date", "employeeId", "status", "checkIn", "checkOut", "notes"},
		indexes: []string{"date", "employeeId"},
	},
	CategoryEmployees: {
		sheet:   "Employees",
		columns: []string{"employeeId", "firstName", "lastName", "position", "department", "salary", "phone", "status"},
	},
	CategoryEggRecords: {
		sheet:   "EggRecords",
		columns: []string{"date", "shed", "quantity", "grade", "defective", "price", "notes"},
		indexes: []string{"date", "shed"},
	},
	CategoryMedicine: {
		sheet:   "Medicine",
		columns: []string{"date", "shed", "medicine", "dosage", "quantity", "price", "notes"},
	},
	CategoryMortality: {
		sheet:   "Mortality",
		columns: []string{"date", "shed", "quantity", "cause", "notes"},
	},
	CategoryFeedOrders: {
		sheet:   "FeedOrders",
		columns: []string{"date", "supplier", "feedType", "quantity", "price", "status", "notes"},
	},
	CategoryTasks: {
		columns: []string{"title", "assignee", "dueDate", "status", "notes"},
	},
	CategorySettings: {
		columns: []string{"key", "value"},
	},
}

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryExpenses,
	CategoryFeedConsumption,
	CategoryAttendance,
	CategoryEmployees,
	CategoryEggRecords,
	CategoryMedicine,
	CategoryMortality,
	CategoryFeedOrders,
	CategoryTasks,
	CategorySettings,
}

// ParseCategory resolves a category name, matching case-insensitively.
func ParseCategory(name string) (Category, error) {
	trimmed := strings.TrimSpace(name)
	for _, c := range AllCategories {
		if strings.EqualFold(string(c), trimmed) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categorySpecs[c]
	return ok
}

// SheetName returns the remote sheet mirroring the category, or "" for local-only categories.
func (c Category) SheetName() string {
	return categorySpecs[c].sheet
}

// Synced reports whether the category is mirrored to the spreadsheet.
func (c Category) Synced() bool {
	return c.SheetName() != ""
}

// Columns returns the declared column order of the category.
func (c Category) Columns() []string {
	cols := categorySpecs[c].columns
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Indexed reports whether field has a secondary index in the category.
func (c Category) Indexed(field string) bool {
	for _, idx := range categorySpecs[c].indexes {
		if idx == field {
			return true
		}
	}
	return false
}

// IndexedFields returns the fields carrying a secondary index.
func (c Category) IndexedFields() []string {
	idx := categorySpecs[c].indexes
	out := make([]string, len(idx))
	copy(out, idx)
	return out
}

// SyncedCategories returns the categories mirrored to the spreadsheet.
func SyncedCategories() []Category {
	var out []Category
	for _, c := range AllCategories {
		if c.Synced() {
			out = append(out, c)
		}
	}
	return out
}

// CanonicalColumn maps a case-folded header back to the declared column
// name of the category when one matches, otherwise returns the header as is.
func (c Category) CanonicalColumn(header string) string {
	for _, col := range categorySpecs[c].columns {
		if strings.EqualFold(col, header) {
			return col
		}
	}
	return header
}
