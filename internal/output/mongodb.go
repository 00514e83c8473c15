// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// MongoSink stores one document per record
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type productDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	URL       string             `bson:"url"`
	XPath     string             `bson:"xpath"`
	Price     *float64           `bson:"price"`
	CreatedAt time.Time          `bson:"created_at"`
}

// NewMongoSink connects to MongoDB and selects database.collection
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("MongoDB collection name is required")
	}

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(5)
	clientOptions.SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoSink{client: client, collection: coll}, nil
}

// Save implements Sink
func (m *MongoSink) Save(ctx context.Context, rec Record) error {
	doc := productDocument{
		Title:     rec.Title,
		URL:       rec.URL,
		XPath:     rec.XPath,
		Price:     rec.Price,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return errors.New(errors.KindSink, "insert document", err)
	}
	return nil
}

// Recent implements Sink
func (m *MongoSink) Recent(ctx context.Context, limit int) ([]StoredProduct, error) {
	if limit <= 0 {
		limit = 20
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, errors.New(errors.KindSink, "find documents", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.New(errors.KindSink, "decode documents", err)
	}

	products := make([]StoredProduct, 0, len(docs))
	for _, d := range docs {
		products = append(products, StoredProduct{
			ID:        d.ID.Hex(),
			Title:     d.Title,
			URL:       d.URL,
			XPath:     d.XPath,
			Price:     d.Price,
			CreatedAt: d.CreatedAt,
		})
	}
	return products, nil
}

// Ping checks the deployment is reachable
func (m *MongoSink) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.New(errors.KindSink, "ping mongodb", err)
	}
	return nil
}

// Close disconnects the client
func (m *MongoSink) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
