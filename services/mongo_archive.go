package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stockwatch_backend/services/signalpage"
)

// MongoDB database and collection names
const (
	MongoDBName               = "stockwatch"
	MongoSnapshotCollection   = "signal_snapshots"
	MongoValidationCollection = "symbol_validations"
)

// MongoSignalSnapshot represents an archived signal record document.
type MongoSignalSnapshot struct {
	Symbol     string                  `bson:"symbol"`
	Suggestion string                  `bson:"suggestion,omitempty"`
	Record     signalpage.SignalRecord `bson:"record"`
	FetchedAt  time.Time               `bson:"fetched_at"`
}

// MongoArchive mirrors signal snapshots to MongoDB Atlas when configured.
// When MONGODB_URI is unset the archive is disabled and all operations are
// no-ops.
type MongoArchive struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool
	lastError   string
}

// Global Mongo archive instance
var GlobalMongoArchive *MongoArchive

// InitMongoArchive initializes the Mongo archive if MONGODB_URI is set.
func InitMongoArchive() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, MongoDB archive disabled")
		GlobalMongoArchive = &MongoArchive{
			uriSet:    false,
			lastError: "MONGODB_URI environment variable not set",
		}
		return nil
	}

	GlobalMongoArchive = &MongoArchive{uriSet: true}
	return GlobalMongoArchive.Connect()
}

// Connect establishes the MongoDB connection.
func (m *MongoArchive) Connect() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		m.lastError = "MONGODB_URI environment variable not set"
		return fmt.Errorf("%s", m.lastError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.lastError = fmt.Sprintf("Failed to connect: %v", err)
		log.Printf("Failed to connect to MongoDB: %v", err)
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		m.lastError = fmt.Sprintf("Ping failed: %v", err)
		log.Printf("MongoDB ping failed: %v", err)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	log.Println("MongoDB archive connected")
	return nil
}

// IsEnabled reports whether the archive is configured and connected.
func (m *MongoArchive) IsEnabled() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uriSet && m.isConnected
}

// SaveSignalSnapshot mirrors one fetched record to MongoDB.
func (m *MongoArchive) SaveSignalSnapshot(record signalpage.SignalRecord) error {
	if !m.IsEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := MongoSignalSnapshot{
		Symbol:     record.Symbol,
		Suggestion: record.Suggestion,
		Record:     record,
		FetchedAt:  time.Now().UTC(),
	}

	_, err := m.database.Collection(MongoSnapshotCollection).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns the newest archived records for a symbol.
func (m *MongoArchive) RecentSnapshots(symbol string, limit int64) ([]MongoSignalSnapshot, error) {
	if !m.IsEnabled() {
		return nil, fmt.Errorf("mongodb archive not enabled")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "fetched_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.database.Collection(MongoSnapshotCollection).
		Find(ctx, bson.M{"symbol": symbol}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []MongoSignalSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}
	return snapshots, nil
}

// Close disconnects from MongoDB.
func (m *MongoArchive) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting MongoDB: %v", err)
		}
		m.isConnected = false
	}
}
