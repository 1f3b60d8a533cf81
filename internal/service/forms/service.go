package forms

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

// numericFields are converted to numbers on intake when they parse.
var numericFields = []string{"amount", "quantity", "price"}

// RecordWriter is the write side of the record store used by form intake.
type RecordWriter interface {
	Add(ctx context.Context, category models.Category, fields map[string]any) (string, error)
	Update(ctx context.Context, category models.Category, id string, fields map[string]any) error
}

// Service turns front-end form submissions into stored records.
type Service struct {
	store  RecordWriter
	logger *zap.Logger
}

// NewService constructs the form intake service.
func NewService(store RecordWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Submit stores a new record for the form and returns its identifier.
func (s *Service) Submit(ctx context.Context, formID string, values map[string]string) (string, error) {
	category, err := models.ResolveForm(formID)
	if err != nil {
		return "", err
	}

	id, err := s.store.Add(ctx, category, convert(values))
	if err != nil {
		return "", err
	}

	s.logger.Info("form submitted", zap.String("form", formID), zap.String("category", string(category)), zap.String("id", id))
	return id, nil
}

// Resubmit replaces the record id with the form's values (edit mode).
func (s *Service) Resubmit(ctx context.Context, formID, id string, values map[string]string) error {
	category, err := models.ResolveForm(formID)
	if err != nil {
		return err
	}

	if err := s.store.Update(ctx, category, id, convert(values)); err != nil {
		return err
	}

	s.logger.Info("form resubmitted", zap.String("form", formID), zap.String("category", string(category)), zap.String("id", id))
	return nil
}

func convert(values map[string]string) map[string]any {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}
	for _, name := range numericFields {
		raw, ok := values[name]
		if !ok {
			continue
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			fields[name] = n
		}
	}
	return fields
}
