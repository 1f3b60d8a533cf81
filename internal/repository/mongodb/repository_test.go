package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

func TestSaveDailySummary(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upserts by date", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		repo := newRepository(mt.Client, "farmbook")

		summary := models.DashboardSummary{Date: "2024-01-01", TodaysEggs: 42, CreatedAt: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
		require.NoError(mt, repo.SaveDailySummary(context.Background(), summary))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)

		updates, err := evt.Command.Lookup("updates").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, updates, 1)
		stmt := updates[0].Document()
		assert.Equal(mt, "2024-01-01", stmt.Lookup("q", "date").StringValue())
		assert.True(mt, stmt.Lookup("upsert").Boolean())
		assert.Equal(mt, 42.0, stmt.Lookup("u", "$set", "todays_eggs").Double())
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "duplicate key",
			Name:    "DuplicateKey",
		}))
		repo := newRepository(mt.Client, "farmbook")

		err := repo.SaveDailySummary(context.Background(), models.DashboardSummary{Date: "2024-01-01"})
		assert.ErrorContains(mt, err, "2024-01-01")
	})

	mt.Run("missing date", func(mt *mtest.T) {
		repo := newRepository(mt.Client, "farmbook")

		assert.Error(mt, repo.SaveDailySummary(context.Background(), models.DashboardSummary{}))
	})
}
