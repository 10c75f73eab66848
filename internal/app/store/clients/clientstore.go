// internal/app/store/clients/clientstore.go
package clientstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/softmanager/internal/app/system/normalize"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no client matches.
var ErrNotFound = errors.New("client not found")

var errNameRequired = errors.New("client name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("clients")}
}

// Create inserts a client. Name is required; email and company are optional.
func (s *Store) Create(ctx context.Context, c models.Client) (models.Client, error) {
	c.ID = primitive.NewObjectID()
	c.Name = normalize.Name(c.Name)
	c.Email = normalize.Email(c.Email)
	c.Company = normalize.Name(c.Company)
	if c.Name == "" {
		return models.Client{}, errNameRequired
	}
	c.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Client{}, err
	}
	return c, nil
}

// GetByID loads one client.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Client, error) {
	var c models.Client
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Client{}, ErrNotFound
		}
		return models.Client{}, err
	}
	return c, nil
}

// GetByIDs returns the clients with the given ids, keyed by id.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Client, error) {
	out := make(map[primitive.ObjectID]models.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var c models.Client
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, cur.Err()
}

// List returns every client, newest first.
func (s *Store) List(ctx context.Context) ([]models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Client
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a client. Callers check for referencing projects first.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of clients.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
