package databases

// go generate: mockery --name ReadCursorDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightdesk/agency-api/models"
)

const readCursorName = "readcursors"

// ReadCursorDatabase contains the methods to use with the read cursor database
type ReadCursorDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ReadCursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
}

type readCursorDatabase struct {
	db DatabaseHelper
}

// NewReadCursorDatabase initializes a new instance of read cursor database with the provided db connection
func NewReadCursorDatabase(db DatabaseHelper) ReadCursorDatabase {
	return &readCursorDatabase{
		db: db,
	}
}

func (c *readCursorDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ReadCursor, error) {
	cursor := &models.ReadCursor{}
	err := c.db.Collection(readCursorName).FindOne(ctx, filter, opts...).Decode(&cursor)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (c *readCursorDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	return c.db.Collection(readCursorName).UpdateOne(ctx, filter, update, opts...)
}
