package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "farmbook.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddThenGetAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	existing, err := store.Add(ctx, models.CategoryExpenses, map[string]any{"date": "2024-01-01", "amount": 50.0})
	require.NoError(t, err)

	fields := map[string]any{"date": "2024-01-02", "amount": 100.0, "category": "feed", "description": "layer mash"}
	id, err := store.Add(ctx, models.CategoryExpenses, fields)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, existing, id)

	records, err := store.GetAll(ctx, models.CategoryExpenses)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, existing, records[0].ID)
	assert.Equal(t, models.Fields{"date": "2024-01-01", "amount": 50.0}, records[0].Fields)

	assert.Equal(t, id, records[1].ID)
	assert.Equal(t, models.Fields(fields), records[1].Fields)
	assert.False(t, records[1].CreatedAt.IsZero())
	assert.Equal(t, models.CategoryExpenses, records[1].Category)
}

func TestGetAllEmptyCategory(t *testing.T) {
	store := newTestStore(t)

	records, err := store.GetAll(context.Background(), models.CategoryTasks)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAddDoesNotCrossCategories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Add(ctx, models.CategoryMortality, map[string]any{"date": "2024-01-01", "quantity": 2.0})
	require.NoError(t, err)

	eggs, err := store.GetAll(ctx, models.CategoryEggRecords)
	require.NoError(t, err)
	assert.Empty(t, eggs)
}

func TestAddNormalizesFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Add(ctx, models.CategoryEggRecords, map[string]any{
		"id":        "ignored",
		"createdAt": "ignored",
		"quantity":  120,
		"shed":      "A",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", id)

	record, err := store.Get(ctx, models.CategoryEggRecords, id)
	require.NoError(t, err)
	assert.Equal(t, models.Fields{"quantity": 120.0, "shed": "A"}, record.Fields)
}

func TestAddRejectsNestedValues(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Add(context.Background(), models.CategoryTasks, map[string]any{"title": []string{"a"}})
	assert.ErrorIs(t, err, models.ErrInvalidField)
}

func TestUnknownCategory(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Add(context.Background(), models.Category("sales"), map[string]any{"a": "b"})
	assert.ErrorIs(t, err, models.ErrUnknownCategory)

	_, err = store.GetAll(context.Background(), models.Category("sales"))
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
}

func TestUpdatePreservesIdentifier(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fixed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	id, err := store.Add(ctx, models.CategoryAttendance, map[string]any{"date": "2024-01-01", "employeeId": "e1", "status": "absent"})
	require.NoError(t, err)
	_, err = store.Add(ctx, models.CategoryAttendance, map[string]any{"date": "2024-01-01", "employeeId": "e2", "status": "present"})
	require.NoError(t, err)

	store.now = func() time.Time { return fixed.Add(time.Hour) }
	updated := map[string]any{"date": "2024-01-02", "employeeId": "e1", "status": "present"}
	require.NoError(t, store.Update(ctx, models.CategoryAttendance, id, updated))

	records, err := store.GetAll(ctx, models.CategoryAttendance)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, models.Fields(updated), records[0].Fields)
	assert.True(t, fixed.Equal(records[0].CreatedAt))
}

func TestUpdateMissingRecord(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), models.CategoryExpenses, "missing", map[string]any{"amount": 1.0})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateIsScopedToCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Add(ctx, models.CategoryExpenses, map[string]any{"amount": 1.0})
	require.NoError(t, err)

	err = store.Update(ctx, models.CategoryMedicine, id, map[string]any{"amount": 2.0})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	keep, err := store.Add(ctx, models.CategoryEmployees, map[string]any{"firstName": "Awa"})
	require.NoError(t, err)
	id, err := store.Add(ctx, models.CategoryEmployees, map[string]any{"firstName": "Moussa"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, models.CategoryEmployees, id))

	records, err := store.GetAll(ctx, models.CategoryEmployees)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep, records[0].ID)

	err = store.Delete(ctx, models.CategoryEmployees, id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Get(ctx, models.CategoryEmployees, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestQueryMatchesFilteredGetAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seed := map[models.Category][]map[string]any{
		models.CategoryExpenses: {
			{"date": "2024-01-01", "category": "feed", "amount": 10.0},
			{"date": "2024-01-02", "category": "feed", "amount": 20.0},
			{"date": "2024-01-01", "category": "labour", "amount": 30.0},
		},
		models.CategoryAttendance: {
			{"date": "2024-01-01", "employeeId": "e1", "status": "present"},
			{"date": "2024-01-01", "employeeId": "e2", "status": "absent"},
			{"date": "2024-01-02", "employeeId": "e1", "status": "present"},
		},
		models.CategoryEggRecords: {
			{"date": "2024-01-01", "shed": 1.0, "quantity": 100.0},
			{"date": "2024-01-01", "shed": 2.0, "quantity": 90.0},
			{"date": "2024-01-03", "shed": 1.0, "quantity": 80.0},
		},
	}
	for category, rows := range seed {
		for _, row := range rows {
			_, err := store.Add(ctx, category, row)
			require.NoError(t, err)
		}
	}

	cases := []struct {
		category models.Category
		field    string
		value    any
		want     int
	}{
		{models.CategoryExpenses, "date", "2024-01-01", 2},
		{models.CategoryExpenses, "category", "feed", 2},
		{models.CategoryAttendance, "date", "2024-01-02", 1},
		{models.CategoryAttendance, "employeeId", "e1", 2},
		{models.CategoryEggRecords, "date", "2024-01-01", 2},
		{models.CategoryEggRecords, "shed", 1, 2},
		{models.CategoryEggRecords, "shed", "2", 1},
	}

	for _, tc := range cases {
		t.Run(string(tc.category)+"/"+tc.field, func(t *testing.T) {
			got, err := store.Query(ctx, tc.category, tc.field, tc.value)
			require.NoError(t, err)
			assert.Len(t, got, tc.want)

			all, err := store.GetAll(ctx, tc.category)
			require.NoError(t, err)
			var expected []models.Record
			for _, r := range all {
				if r.Fields.String(tc.field) == models.FormatValue(tc.value) {
					expected = append(expected, r)
				}
			}
			assert.Equal(t, expected, got)
		})
	}
}

func TestQueryFollowsUpdatesAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Add(ctx, models.CategoryExpenses, map[string]any{"date": "2024-01-01"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, models.CategoryExpenses, id, map[string]any{"date": "2024-02-01"}))
	old, err := store.Query(ctx, models.CategoryExpenses, "date", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := store.Query(ctx, models.CategoryExpenses, "date", "2024-02-01")
	require.NoError(t, err)
	assert.Len(t, moved, 1)

	require.NoError(t, store.Delete(ctx, models.CategoryExpenses, id))
	gone, err := store.Query(ctx, models.CategoryExpenses, "date", "2024-02-01")
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestQueryUnindexedField(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Query(context.Background(), models.CategoryMortality, "date", "2024-01-01")
	assert.ErrorIs(t, err, models.ErrNotIndexed)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Add(ctx, models.CategoryExpenses, map[string]any{"date": "2024-01-01", "amount": 1.0})
	require.NoError(t, err)
	taskID, err := store.Add(ctx, models.CategoryTasks, map[string]any{"title": "clean shed"})
	require.NoError(t, err)

	created := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	err = store.ReplaceAll(ctx, map[models.Category][]models.Record{
		models.CategoryExpenses: {
			{ID: "remote-1", CreatedAt: created, Fields: models.Fields{"date": "2024-01-05", "amount": "100"}},
			{Fields: models.Fields{"date": "2024-01-05", "amount": "5"}},
		},
		models.CategoryMortality: {},
	})
	require.NoError(t, err)

	expenses, err := store.GetAll(ctx, models.CategoryExpenses)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "remote-1", expenses[0].ID)
	assert.True(t, created.Equal(expenses[0].CreatedAt))
	assert.NotEmpty(t, expenses[1].ID)

	byDate, err := store.Query(ctx, models.CategoryExpenses, "date", "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	tasks, err := store.GetAll(ctx, models.CategoryTasks)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, taskID, tasks[0].ID)
}

func TestReplaceAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Add(ctx, models.CategoryExpenses, map[string]any{"amount": 1.0})
	require.NoError(t, err)

	err = store.ReplaceAll(ctx, map[models.Category][]models.Record{
		models.CategoryExpenses: {
			{ID: "dup", Fields: models.Fields{"amount": 1.0}},
			{ID: "dup", Fields: models.Fields{"amount": 2.0}},
		},
	})
	require.Error(t, err)

	expenses, err := store.GetAll(ctx, models.CategoryExpenses)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, id, expenses[0].ID)
}

func TestSnapshotCoversEveryCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Add(ctx, models.CategorySettings, map[string]any{"key": "currency", "value": "GNF"})
	require.NoError(t, err)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, len(models.AllCategories))
	assert.Len(t, snapshot[models.CategorySettings], 1)
	assert.Empty(t, snapshot[models.CategoryExpenses])
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "farmbook.db")

	store, err := Open(ctx, path, nil)
	require.NoError(t, err)
	id, err := store.Add(ctx, models.CategoryFeedOrders, map[string]any{"supplier": "Sanoh"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	record, err := reopened.Get(ctx, models.CategoryFeedOrders, id)
	require.NoError(t, err)
	assert.Equal(t, "Sanoh", record.Fields.String("supplier"))
}

func TestOpenUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := Open(context.Background(), filepath.Join(blocker, "farmbook.db"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))

	_, err = Open(context.Background(), "", nil)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
