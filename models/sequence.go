package models

// Sequence holds the structure for the sequences collection in mongo.
// One document per project, incremented atomically to assign message ids.
type Sequence struct {
	ID  string `json:"_id" bson:"_id"` // project ID
	Seq int64  `json:"seq" bson:"seq"`
}
