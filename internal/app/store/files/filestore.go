// internal/app/store/files/filestore.go
package filestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no file record matches.
var ErrNotFound = errors.New("file not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("files")}
}

// FileView is a file record joined with its uploader's display name.
type FileView struct {
	models.FileRecord `bson:",inline"`
	UploaderName      string `bson:"uploader_name"`
}

// Create persists a file record. ID and UploadedAt are filled when unset.
func (s *Store) Create(ctx context.Context, rec models.FileRecord) (models.FileRecord, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.FileRecord{}, err
	}
	return rec, nil
}

// GetByID loads one file record.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.FileRecord, error) {
	var rec models.FileRecord
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.FileRecord{}, ErrNotFound
		}
		return models.FileRecord{}, err
	}
	return rec, nil
}

// ListByProject returns a project's files, newest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]FileView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project_id": projectID}}},
		{{Key: "$sort", Value: bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "uploader_id",
			"foreignField": "_id",
			"as":           "uploader",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$uploader", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{"uploader_name": "$uploader.full_name"}}},
		{{Key: "$project", Value: bson.M{"uploader": 0}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []FileView
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes one file record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TouchSize records a new size after an in-place edit.
func (s *Store) TouchSize(ctx context.Context, id primitive.ObjectID, size int64) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"size": size}})
	return err
}

// DeleteByProject removes every file record of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
