package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord is the metadata for one uploaded artifact. Path is captured at
// upload time and always lies inside the project's folder under the uploads root.
type FileRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID    primitive.ObjectID `bson:"project_id" json:"project_id"`
	UploaderID   primitive.ObjectID `bson:"uploader_id" json:"uploader_id"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	StoredName   string             `bson:"stored_name" json:"stored_name"`
	Path         string             `bson:"path" json:"path"`
	Size         int64              `bson:"size" json:"size"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}
