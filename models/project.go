package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Project holds the structure for the projects collection in mongo.
// The project ID doubles as the chat room key.
type Project struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	ClientID  string             `json:"clientID" bson:"clientID"`
	Name      string             `json:"name" bson:"name"`
	Status    string             `json:"status" bson:"status"` // "active", "paused", "archived"
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
