package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Invoice holds the structure for the invoices collection in mongo
type Invoice struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	ProjectID   string             `json:"projectID" bson:"projectID"`
	ClientEmail string             `json:"clientEmail" bson:"clientEmail"`
	Description string             `json:"description" bson:"description"`
	AmountCents int64              `json:"amountCents" bson:"amountCents"`
	Currency    string             `json:"currency" bson:"currency"`
	Status      string             `json:"status" bson:"status"` // "draft", "sent", "paid", "overdue"
	DueDate     primitive.DateTime `json:"dueDate" bson:"dueDate"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
