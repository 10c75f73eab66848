// internal/app/store/projects/projectstore.go
package projectstore

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

// ErrNotFound is returned when no project matches.
var ErrNotFound = errors.New("project not found")

var errNameRequired = errors.New("project name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Create inserts a project. A blank status becomes models.DefaultProjectStatus.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.Status = normalize.Status(p.Status)
	if p.Name == "" {
		return models.Project{}, errNameRequired
	}
	if p.ClientID != nil && p.ClientID.IsZero() {
		p.ClientID = nil
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads one project.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// List returns every project, newest first.
func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	return s.find(ctx, bson.M{}, 0)
}

// Recent returns the n newest projects.
func (s *Store) Recent(ctx context.Context, n int64) ([]models.Project, error) {
	return s.find(ctx, bson.M{}, n)
}

func (s *Store) find(ctx context.Context, filter bson.M, limit int64) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountActive counts projects whose status is not one of models.ClosedStatuses.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": bson.M{"$nin": models.ClosedStatuses}})
}

// CountByClient counts projects referencing clientID.
func (s *Store) CountByClient(ctx context.Context, clientID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"client_id": clientID})
}

// UpdateStatus sets a project's status label.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     normalize.Status(status),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the project document only; dependent rows are handled by
// the lifecycle service.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
