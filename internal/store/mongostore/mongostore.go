// Package mongostore implements store.Gateway on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"
	timersCollection   = "timers"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type sessionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"sessionId"`
	UserID    string             `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	ExpiresAt *time.Time         `bson:"expiresAt,omitempty"`
}

type timerDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Description string             `bson:"description"`
	Start       int64              `bson:"start"`
	End         int64              `bson:"end"`
	Duration    *int64             `bson:"duration,omitempty"`
	IsActive    bool               `bson:"isActive"`
}

// Store is a MongoDB-backed gateway.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Gateway = (*Store)(nil)

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Migrate creates the collections' indexes, which also creates the
// collections themselves.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		usersCollection: {
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		sessionsCollection: {
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		timersCollection: {
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "isActive", Value: 1}},
		},
	}
	for name, model := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if user.ID != "" {
		id, err := primitive.ObjectIDFromHex(user.ID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", user.ID, err)
		}
		doc.ID = id
	}

	res, err := s.db.Collection(usersCollection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = insertedHex(res)
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "failed to get user by username")
	}
	return doc.model(), nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var doc userDoc
	if err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, "failed to get user by ID")
	}
	return doc.model(), nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	doc := sessionDoc{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if _, err := s.db.Collection(sessionsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var doc sessionDoc
	err := s.db.Collection(sessionsCollection).FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "failed to get session")
	}
	return &models.Session{
		SessionID: doc.SessionID,
		UserID:    doc.UserID,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.Collection(sessionsCollection).DeleteOne(ctx, bson.M{"sessionId": sessionID}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) CreateTimer(ctx context.Context, timer *models.Timer) error {
	doc := timerDoc{
		UserID:      timer.UserID,
		Description: timer.Description,
		Start:       timer.Start,
		End:         timer.End,
		Duration:    timer.Duration,
		IsActive:    timer.IsActive,
	}
	res, err := s.db.Collection(timersCollection).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create timer: %w", err)
	}
	timer.ID = insertedHex(res)
	return nil
}

func (s *Store) FindTimer(ctx context.Context, id string) (*models.Timer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var doc timerDoc
	if err := s.db.Collection(timersCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, "failed to get timer")
	}
	return doc.model(), nil
}

func (s *Store) StopTimer(ctx context.Context, id string, end, duration int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(timersCollection).UpdateOne(ctx,
		bson.M{"_id": oid, "isActive": true},
		bson.M{"$set": bson.M{"end": end, "duration": duration, "isActive": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to stop timer: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListTimers(ctx context.Context, userID string, active bool) ([]models.Timer, error) {
	cur, err := s.db.Collection(timersCollection).Find(ctx, bson.M{"user_id": userID, "isActive": active})
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	var docs []timerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode timers: %w", err)
	}

	timers := make([]models.Timer, 0, len(docs))
	for _, doc := range docs {
		timers = append(timers, *doc.model())
	}
	return timers, nil
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func (d timerDoc) model() *models.Timer {
	return &models.Timer{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
		Duration:    d.Duration,
		IsActive:    d.IsActive,
	}
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(res.InsertedID)
}

func notFound(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
