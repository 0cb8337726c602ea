package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/config"
	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// Invoice exported for testing purposes
type Invoice struct {
	DB     databases.InvoiceDatabase
	Config config.Config
}

// InvoiceByIDHandler returns an invoice by ID
func (i Invoice) InvoiceByIDHandler(w http.ResponseWriter, r *http.Request) {
	invoiceID := mux.Vars(r)["invoice_id"]

	zap.S().Debugf("invoice_id: %v", invoiceID)

	iID, err := primitive.ObjectIDFromHex(invoiceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get invoice by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// InvoicesByProjectIDHandler returns all invoices for a project
func (i Invoice) InvoicesByProjectIDHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	status := r.URL.Query().Get("status")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{
		"projectID": projectID,
	}
	if status != "" {
		filter["status"] = status
	}

	dbResp, err := i.DB.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": -1}))
	if err != nil {
		config.ErrorStatus("failed to get invoices", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Invoice{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateInvoiceHandler creates a new invoice in draft status
func (i Invoice) CreateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	var invoice models.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if invoice.ProjectID == "" || invoice.AmountCents <= 0 {
		config.ErrorStatus("invoice projectID and a positive amount are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	invoice.ID = primitive.NewObjectID()
	if invoice.Currency == "" {
		invoice.Currency = "usd"
	}
	if invoice.Status == "" {
		invoice.Status = "draft"
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := i.DB.InsertOne(ctx, invoice)
	if err != nil {
		config.ErrorStatus("failed to create invoice", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Invoice created successfully",
		"id":      invoice.ID.Hex(),
		"invoice": invoice,
	})
}

// UpdateInvoiceHandler updates an invoice's details
func (i Invoice) UpdateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	invoiceID := mux.Vars(r)["invoice_id"]

	iID, err := primitive.ObjectIDFromHex(invoiceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updateData map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	delete(updateData, "_id")
	updateData["updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = i.DB.UpdateOne(ctx, bson.M{"_id": iID}, bson.M{"$set": updateData})
	if err != nil {
		config.ErrorStatus("failed to update invoice", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Invoice updated successfully",
	})
}

// CreateCheckoutSessionHandler creates a stripe checkout session so the
// client can pay an invoice online
func (i Invoice) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	invoiceID := mux.Vars(r)["invoice_id"]

	iID, err := primitive.ObjectIDFromHex(invoiceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if stripe.Key == "" {
		config.ErrorStatus("payments are not configured", http.StatusServiceUnavailable, w, fmt.Errorf("stripe key not set"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	invoice, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get invoice by ID", http.StatusNotFound, w, err)
		return
	}

	if invoice.Status == "paid" {
		config.ErrorStatus("invoice is already paid", http.StatusBadRequest, w, fmt.Errorf("invoice status is '%s'", invoice.Status))
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(invoice.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Invoice " + invoice.ID.Hex()),
						Description: stripe.String(invoice.Description),
					},
					UnitAmount: stripe.Int64(invoice.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(invoice.ClientEmail),
		SuccessURL:    stripe.String(i.Config.BaseURL + "/invoices/success"),
		CancelURL:     stripe.String(i.Config.BaseURL + "/invoices/cancel"),
	}

	sess, err := session.New(params)
	if err != nil {
		config.ErrorStatus("failed to create checkout session", http.StatusInternalServerError, w, err)
		return
	}

	// mark the invoice as sent once a payment link exists
	err = i.DB.UpdateOne(ctx, bson.M{"_id": iID, "status": "draft"}, bson.M{"$set": bson.M{
		"status":    "sent",
		"updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		zap.S().Warnw("failed to mark invoice as sent", "error", err, "invoiceId", iID.Hex())
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessionId": sess.ID,
		"url":       sess.URL,
	})
}
