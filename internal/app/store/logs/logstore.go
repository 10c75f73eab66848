// internal/app/store/logs/logstore.go
package logstore

import (
	"context"
	"time"

	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RecentLimit is how many entries a project page shows.
const RecentLimit = 50

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_logs")}
}

// EntryView is a log entry with the acting user's display name, empty when
// the user reference is absent or the user was deleted.
type EntryView struct {
	models.LogEntry `bson:",inline"`
	UserName        string `bson:"user_name"`
}

// Append inserts a new entry. Entries are never updated.
func (s *Store) Append(ctx context.Context, e models.LogEntry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Recent returns up to limit entries for a project, newest first.
func (s *Store) Recent(ctx context.Context, projectID primitive.ObjectID, limit int64) ([]EntryView, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project_id": projectID}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{"user_name": "$user.full_name"}}},
		{{Key: "$project", Value: bson.M{"user": 0}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []EntryView
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByProject removes a project's entries. Only the project cascade
// calls this.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
