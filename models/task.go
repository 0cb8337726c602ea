package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Task holds the structure for the tasks collection in mongo
type Task struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	ProjectID  string             `json:"projectID" bson:"projectID"`
	Title      string             `json:"title" bson:"title"`
	AssigneeID string             `json:"assigneeID" bson:"assigneeID"`
	Status     string             `json:"status" bson:"status"` // "open", "in-progress", "done"
	DueDate    primitive.DateTime `json:"dueDate" bson:"dueDate"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt  primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
