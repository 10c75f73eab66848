// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold across the whole application.
const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"
)

// User is anyone who can sign in: admins manage clients, projects and teams;
// collaborators work inside the projects they are members of.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Role         string             `bson:"role" json:"role"` // admin | collaborator
	FullName     string             `bson:"full_name" json:"full_name"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"` // folded, unique
	PasswordHash string             `bson:"password_hash" json:"-"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
