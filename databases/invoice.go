package databases

// go generate: mockery --name InvoiceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightdesk/agency-api/models"
)

const invoiceName = "invoices"

// InvoiceDatabase contains the methods to use with the invoice database
type InvoiceDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Invoice, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Invoice, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
}

type invoiceDatabase struct {
	db DatabaseHelper
}

// NewInvoiceDatabase initializes a new instance of invoice database with the provided db connection
func NewInvoiceDatabase(db DatabaseHelper) InvoiceDatabase {
	return &invoiceDatabase{
		db: db,
	}
}

func (i *invoiceDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := i.db.Collection(invoiceName).FindOne(ctx, filter, opts...).Decode(&invoice)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (i *invoiceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Invoice, error) {
	var invoices []models.Invoice
	curr, err := i.db.Collection(invoiceName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &invoices)
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (i *invoiceDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return i.db.Collection(invoiceName).InsertOne(ctx, document, opts...)
}

func (i *invoiceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	return i.db.Collection(invoiceName).UpdateOne(ctx, filter, update, opts...)
}
