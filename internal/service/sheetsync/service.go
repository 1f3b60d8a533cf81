package sheetsync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/farmbook/internal/domain/models"
	repo "github.com/mamadbah2/farmbook/internal/repository/sheets"
)

const createdAtHeader = "createdat"

// LocalStore is the subset of the record store the bridge writes to.
type LocalStore interface {
	ReplaceAll(ctx context.Context, snapshot map[models.Category][]models.Record) error
}

// Service mirrors categories between the local store and the spreadsheet.
// Pull replaces, push appends; nothing is merged or diffed.
type Service struct {
	repo    repo.Repository
	store   LocalStore
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a sync bridge. timeout bounds every remote call.
func NewService(repository repo.Repository, store LocalStore, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		repo:    repository,
		store:   store,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Pull reads the category's sheet and converts every data row into a record.
// Failures are logged and yield an empty result.
func (s *Service) Pull(ctx context.Context, category models.Category) []models.Record {
	records, err := s.fetch(ctx, category)
	if err != nil {
		s.logger.Warn("pull failed, continuing with empty result",
			zap.String("category", string(category)), zap.Error(err))
		return []models.Record{}
	}
	return records
}

// Push appends every record as a new row of the category's sheet in one
// append call. Cells follow the sheet's existing header row; an empty sheet
// first receives DefaultHeader. Fields with no matching header are not sent.
func (s *Service) Push(ctx context.Context, category models.Category, records []models.Record) error {
	if !category.Synced() {
		return fmt.Errorf("%w: %s", models.ErrNotSynced, category)
	}
	if len(records) == 0 {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.repo.ReadRange(callCtx, category.SheetName())
	if err != nil {
		return fmt.Errorf("%w: read %s header: %v", models.ErrTransportFailure, category, err)
	}

	rows := make([][]interface{}, 0, len(records)+1)
	header := headerRow(existing)
	if header == nil {
		header = DefaultHeader(category)
		cells := make([]interface{}, len(header))
		for i, h := range header {
			cells[i] = h
		}
		rows = append(rows, cells)
	}

	for _, record := range records {
		rows = append(rows, RowFor(category, header, record))
	}
	if dropped := unmappedFields(header, records); len(dropped) > 0 {
		s.logger.Warn("fields without a sheet column were not pushed",
			zap.String("category", string(category)), zap.Strings("fields", dropped))
	}

	if err := s.repo.AppendRows(callCtx, category.SheetName(), rows); err != nil {
		return fmt.Errorf("%w: push %s: %v", models.ErrTransportFailure, category, err)
	}

	s.logger.Info("records pushed", zap.String("category", string(category)), zap.Int("rows", len(rows)))
	return nil
}

// SyncAll pulls every synced category in parallel and, only if all of them
// succeed, replaces the local copies wholesale. Local edits made since the
// last push are overwritten.
func (s *Service) SyncAll(ctx context.Context) (models.SyncResult, error) {
	categories := models.SyncedCategories()

	var mu sync.Mutex
	snapshot := make(map[models.Category][]models.Record, len(categories))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, category := range categories {
		category := category
		eg.Go(func() error {
			records, err := s.fetch(egCtx, category)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot[category] = records
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		s.logger.Error("sync aborted, local state untouched", zap.Error(err))
		return models.SyncResult{}, err
	}

	if err := s.store.ReplaceAll(ctx, snapshot); err != nil {
		return models.SyncResult{}, fmt.Errorf("persist synced snapshot: %w", err)
	}

	result := models.SyncResult{Counts: make(map[models.Category]int, len(snapshot)), FinishedAt: s.now().UTC()}
	for category, records := range snapshot {
		result.Counts[category] = len(records)
	}

	s.logger.Info("sync completed", zap.Any("counts", result.Counts))
	return result, nil
}

func (s *Service) fetch(ctx context.Context, category models.Category) ([]models.Record, error) {
	if !category.Synced() {
		return nil, fmt.Errorf("%w: %s", models.ErrNotSynced, category)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := s.repo.ReadRange(callCtx, category.SheetName())
	if err != nil {
		return nil, fmt.Errorf("%w: pull %s: %v", models.ErrTransportFailure, category, err)
	}

	return RecordsFromRows(category, values), nil
}

// RecordsFromRows converts a sheet into records. Row 0 holds the headers,
// which are case-folded and mapped back to declared column names. Cells
// past the end of a short row read as "". When an id repeats, as happens
// after pushing the same records twice, the last row wins.
func RecordsFromRows(category models.Category, values [][]interface{}) []models.Record {
	records := make([]models.Record, 0)
	if len(values) == 0 {
		return records
	}

	headers := make([]string, len(values[0]))
	for i, cell := range values[0] {
		headers[i] = normalizeHeader(cell)
	}

	for _, row := range values[1:] {
		record := models.Record{Category: category, Fields: models.Fields{}}
		for i, header := range headers {
			if header == "" {
				continue
			}
			cell := ""
			if i < len(row) && row[i] != nil {
				cell = fmt.Sprint(row[i])
			}

			switch header {
			case models.FieldID:
				record.ID = cell
			case createdAtHeader:
				// unparsable timestamps are restamped by the store
				if ts, err := time.Parse(time.RFC3339Nano, cell); err == nil {
					record.CreatedAt = ts
				}
			default:
				record.Fields[category.CanonicalColumn(header)] = cell
			}
		}
		records = append(records, record)
	}

	return dedupeByID(records)
}

func dedupeByID(records []models.Record) []models.Record {
	last := make(map[string]int, len(records))
	for i, record := range records {
		if record.ID != "" {
			last[record.ID] = i
		}
	}
	if len(last) == len(records) {
		return records
	}

	out := make([]models.Record, 0, len(last))
	for i, record := range records {
		if record.ID != "" && last[record.ID] != i {
			continue
		}
		out = append(out, record)
	}
	return out
}

// DefaultHeader is the header row written to an empty sheet: id, createdAt
// and the declared columns of the category.
func DefaultHeader(category models.Category) []string {
	return append([]string{models.FieldID, models.FieldCreatedAt}, category.Columns()...)
}

// RowFor serialises a record in the order of header, matching header cells
// the same way RecordsFromRows reads them back. Unknown columns are empty.
func RowFor(category models.Category, header []string, record models.Record) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		switch key := normalizeHeader(h); key {
		case "":
			row[i] = ""
		case models.FieldID:
			row[i] = record.ID
		case createdAtHeader:
			if record.CreatedAt.IsZero() {
				row[i] = ""
			} else {
				row[i] = record.CreatedAt.UTC().Format(time.RFC3339Nano)
			}
		default:
			row[i] = cellValue(record.Fields[fieldForHeader(category, key, record.Fields)])
		}
	}
	return row
}

func normalizeHeader(cell interface{}) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))
}

// headerRow returns the first row of a sheet as strings, or nil when the
// sheet has no non-blank header.
func headerRow(values [][]interface{}) []string {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	blank := true
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
		if header[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return header
}

// fieldForHeader resolves a case-folded header to the field name it reads
// back into: the declared column when one matches, otherwise a field whose
// name folds to the same header.
func fieldForHeader(category models.Category, key string, fields models.Fields) string {
	name := category.CanonicalColumn(key)
	if _, ok := fields[name]; ok {
		return name
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return name
}

func unmappedFields(header []string, records []models.Record) []string {
	covered := make(map[string]bool, len(header))
	for _, h := range header {
		covered[normalizeHeader(h)] = true
	}

	seen := make(map[string]bool)
	var dropped []string
	for _, record := range records {
		for name := range record.Fields {
			key := strings.ToLower(name)
			if covered[key] || seen[key] {
				continue
			}
			seen[key] = true
			dropped = append(dropped, name)
		}
	}
	sort.Strings(dropped)
	return dropped
}

func cellValue(v any) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case float64, bool:
		return val
	default:
		return models.FormatValue(val)
	}
}
