package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is a customer that projects are delivered to.
type Client struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Company   string             `bson:"company" json:"company"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
