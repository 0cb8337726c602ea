package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Note holds the structure for the notes collection in mongo
type Note struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	ProjectID string             `json:"projectID" bson:"projectID"`
	AuthorID  string             `json:"authorID" bson:"authorID"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
