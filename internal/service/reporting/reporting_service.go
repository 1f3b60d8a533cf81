package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

const statusPresent = "present"

// RecordReader is the read side of the record store used for aggregation.
type RecordReader interface {
	GetAll(ctx context.Context, category models.Category) ([]models.Record, error)
}

// Service derives dashboard counters and range reports from the record
// store. Nothing is cached: every call rescans the categories it needs.
type Service struct {
	store    RecordReader
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance. loc decides what
// "today" means; nil means UTC.
func NewService(store RecordReader, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, location: loc, logger: logger, now: time.Now}
}

// Today returns the current date in the configured timezone.
func (s *Service) Today() time.Time {
	return s.now().In(s.location)
}

// Dashboard computes the same-day counters for date.
func (s *Service) Dashboard(ctx context.Context, date time.Time) (models.DashboardSummary, error) {
	day := date.Format(models.DateLayout)
	summary := models.DashboardSummary{Date: day, CreatedAt: s.now().UTC()}

	expenses, err := s.store.GetAll(ctx, models.CategoryExpenses)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("load expenses: %w", err)
	}
	summary.TodaysExpenses = sumOn(expenses, day, "amount")

	eggs, err := s.store.GetAll(ctx, models.CategoryEggRecords)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("load egg records: %w", err)
	}
	summary.TodaysEggs = sumOn(eggs, day, "quantity")

	mortality, err := s.store.GetAll(ctx, models.CategoryMortality)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("load mortality: %w", err)
	}
	summary.TodaysMortality = sumOn(mortality, day, "quantity")

	attendance, err := s.store.GetAll(ctx, models.CategoryAttendance)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("load attendance: %w", err)
	}
	for _, record := range attendance {
		if record.Fields.Date("date") == day && record.Fields.String("status") == statusPresent {
			summary.StaffPresent++
		}
	}

	employees, err := s.store.GetAll(ctx, models.CategoryEmployees)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("load employees: %w", err)
	}
	summary.TotalEmployees = len(employees)

	s.logger.Debug("dashboard computed", zap.String("date", day), zap.Any("summary", summary))
	return summary, nil
}

// RangeReport lists the records of category dated within [start, end] and
// totals their amount.
func (s *Service) RangeReport(ctx context.Context, category models.Category, start, end time.Time) (models.RangeReport, error) {
	if !category.Valid() {
		return models.RangeReport{}, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	startDay := truncateDay(start)
	endDay := truncateDay(end)
	if endDay.Before(startDay) {
		return models.RangeReport{}, fmt.Errorf("end %s is before start %s", endDay.Format(models.DateLayout), startDay.Format(models.DateLayout))
	}

	records, err := s.store.GetAll(ctx, category)
	if err != nil {
		return models.RangeReport{}, fmt.Errorf("load %s: %w", category, err)
	}

	report := models.RangeReport{
		Category: category,
		Start:    startDay.Format(models.DateLayout),
		End:      endDay.Format(models.DateLayout),
		Records:  make([]models.Record, 0),
	}

	for _, record := range records {
		dateValue, err := parseDate(record.Fields.Date("date"))
		if err != nil {
			s.logger.Debug("skip record with invalid date", zap.String("category", string(category)), zap.String("id", record.ID), zap.Error(err))
			continue
		}
		if dateValue.Before(startDay) || dateValue.After(endDay) {
			continue
		}

		report.Records = append(report.Records, record)
		report.Summary.Amount += record.Fields.Number("amount")
	}
	report.Summary.Total = len(report.Records)

	return report, nil
}

func sumOn(records []models.Record, day, field string) float64 {
	var total float64
	for _, record := range records {
		if record.Fields.Date("date") != day {
			continue
		}
		total += record.Fields.Number(field)
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.Parse(models.DateLayout, value)
}

// ParseDay parses a YYYY-MM-DD query value.
func ParseDay(value string) (time.Time, error) {
	return parseDate(value)
}
