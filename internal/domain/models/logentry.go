package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions recorded against a project.
const (
	ActionUpload   = "Upload"
	ActionDeletion = "Deletion"
	ActionEdit     = "Edit"
	ActionStatus   = "Status"
	ActionTeam     = "Team"
)

// LogEntry is one append-only audit record. Both references are optional:
// entries outlive the users that created them.
type LogEntry struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Action    string              `bson:"action" json:"action"`
	Detail    string              `bson:"detail" json:"detail"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
