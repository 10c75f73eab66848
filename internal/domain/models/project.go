package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultProjectStatus is applied when a project is created without a status.
const DefaultProjectStatus = "Pending"

// ClosedStatuses are the status labels that no longer count as active work.
// Both the Portuguese labels used by the seed data and their English forms are recognised.
var ClosedStatuses = []string{"Concluído", "Cancelado", "Completed", "Cancelled"}

// Project is a unit of work for an (optional) client. Its on-disk folder is
// derived from Name; see projectfs.Folder.
type Project struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string              `bson:"name" json:"name"`
	Status    string              `bson:"status" json:"status"`
	ClientID  *primitive.ObjectID `bson:"client_id,omitempty" json:"client_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
