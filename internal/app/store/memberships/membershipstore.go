// internal/app/store/memberships/membershipstore.go
package membershipstore

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

// ErrNotFound is returned when no membership matches.
var ErrNotFound = errors.New("membership not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_members")}
}

// TeamMember is a membership joined with the member's user record. User
// fields are empty when the user no longer exists.
type TeamMember struct {
	ID        primitive.ObjectID `bson:"_id"`
	ProjectID primitive.ObjectID `bson:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Role      string             `bson:"role"`
	UserName  string             `bson:"user_name"`
	UserTitle string             `bson:"user_title"`
	UserEmail string             `bson:"user_email"`
}

// Add puts userID on projectID's team with a free-text role label. The
// same pair may be added more than once.
func (s *Store) Add(ctx context.Context, projectID, userID primitive.ObjectID, role string) (models.Membership, error) {
	m := models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      normalize.Name(role),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// GetByID loads one membership.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Remove deletes a membership by id.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UpdateRole changes the role label of one membership.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": normalize.Name(role)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember reports whether any membership exists for (projectID, userID).
func (s *Store) IsMember(ctx context.Context, projectID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx,
		bson.M{"project_id": projectID, "user_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProjectIDsForUser returns the distinct projects userID belongs to.
func (s *Store) ProjectIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "project_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}

// ListByProject returns the project's team in insertion order.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]TeamMember, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project_id": projectID}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"project_id": 1,
			"user_id":    1,
			"role":       1,
			"user_name":  "$user.full_name",
			"user_title": "$user.title",
			"user_email": "$user.email",
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []TeamMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByProject removes every membership of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
