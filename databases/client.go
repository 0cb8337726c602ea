package databases

// go generate: mockery --name ClientDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightdesk/agency-api/models"
)

const clientName = "clients"

// ClientDatabase contains the methods to use with the client database
type ClientDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Client, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Client, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type clientDatabase struct {
	db DatabaseHelper
}

// NewClientDatabase initializes a new instance of client database with the provided db connection
func NewClientDatabase(db DatabaseHelper) ClientDatabase {
	return &clientDatabase{
		db: db,
	}
}

func (c *clientDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Client, error) {
	client := &models.Client{}
	err := c.db.Collection(clientName).FindOne(ctx, filter, opts...).Decode(&client)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *clientDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Client, error) {
	var clients []models.Client
	curr, err := c.db.Collection(clientName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &clients)
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *clientDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(clientName).InsertOne(ctx, document, opts...)
}

func (c *clientDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	return c.db.Collection(clientName).UpdateOne(ctx, filter, update, opts...)
}

func (c *clientDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(clientName).DeleteOne(ctx, filter, opts...)
}
