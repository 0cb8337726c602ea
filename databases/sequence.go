package databases

// go generate: mockery --name SequenceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightdesk/agency-api/models"
)

const sequenceName = "sequences"

// SequenceDatabase hands out durable, per-project monotone counters. The
// counter lives in mongo so message id assignment survives room restarts.
type SequenceDatabase interface {
	Next(ctx context.Context, projectID string) (int64, error)
}

type sequenceDatabase struct {
	db DatabaseHelper
}

// NewSequenceDatabase initializes a new instance of sequence database with the provided db connection
func NewSequenceDatabase(db DatabaseHelper) SequenceDatabase {
	return &sequenceDatabase{
		db: db,
	}
}

// Next atomically increments and returns the sequence for the given project,
// creating it at 1 on first use.
func (s *sequenceDatabase) Next(ctx context.Context, projectID string) (int64, error) {
	seq := &models.Sequence{}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := s.db.Collection(sequenceName).FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Seq, nil
}
