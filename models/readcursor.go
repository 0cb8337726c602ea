package models

import "time"

// ReadCursor holds the structure for the readcursors collection in mongo.
// One document per (projectId, userId); lastSeenId is a high-water mark and
// never decreases.
type ReadCursor struct {
	ProjectID  string    `json:"projectId" bson:"projectId"`
	UserID     string    `json:"userId" bson:"userId"`
	LastSeenID int64     `json:"lastSeenId" bson:"lastSeenId"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
