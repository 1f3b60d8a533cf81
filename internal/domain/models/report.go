package models

import "time"

// DashboardSummary holds the same-day counters shown on the dashboard. It is
// also the document archived to MongoDB by the daily job.
type DashboardSummary struct {
	Date            string    `bson:"date" json:"date"`
	TodaysExpenses  float64   `bson:"todays_expenses" json:"todaysExpenses"`
	TodaysEggs      float64   `bson:"todays_eggs" json:"todaysEggs"`
	TodaysMortality float64   `bson:"todays_mortality" json:"todaysMortality"`
	StaffPresent    int       `bson:"staff_present" json:"staffPresent"`
	TotalEmployees  int       `bson:"total_employees" json:"totalEmployees"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// RangeSummary aggregates the records of a range report.
type RangeSummary struct {
	Total  int     `json:"total"`
	Amount float64 `json:"amount"`
}

// RangeReport lists the records of one category dated within [Start, End].
type RangeReport struct {
	Category Category     `json:"category"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Records  []Record     `json:"data"`
	Summary  RangeSummary `json:"summary"`
}

// SyncResult reports how many records each category received during a sync.
type SyncResult struct {
	Counts     map[Category]int `json:"counts"`
	FinishedAt time.Time        `json:"finishedAt"`
}
