package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

const summariesCollection = "daily_summaries"

// Repository defines the interface for dashboard archive storage.
type Repository interface {
	SaveDailySummary(ctx context.Context, summary models.DashboardSummary) error
}

// MongoDBRepository keeps one archived dashboard summary per date.
type MongoDBRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBRepository connects, pings and ensures the unique date index.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := newRepository(client, dbName)
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

func newRepository(client *mongo.Client, dbName string) *MongoDBRepository {
	return &MongoDBRepository{
		client:     client,
		collection: client.Database(dbName).Collection(summariesCollection),
	}
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("date_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create daily summary index: %w", err)
	}
	return nil
}

// SaveDailySummary upserts the summary of summary.Date, so re-running the
// daily job overwrites that day's document instead of adding another.
func (r *MongoDBRepository) SaveDailySummary(ctx context.Context, summary models.DashboardSummary) error {
	if summary.Date == "" {
		return fmt.Errorf("daily summary without date")
	}

	filter := bson.D{{Key: "date", Value: summary.Date}}
	update := bson.D{{Key: "$set", Value: summary}}
	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert daily summary %s: %w", summary.Date, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
