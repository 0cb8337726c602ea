package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/chat"
	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// roomMaxIdle is how long an empty chat room may linger before the sweep
// reclaims it
const roomMaxIdle = 30 * time.Minute

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron      *cron.Cron
	InvoiceDB databases.InvoiceDatabase
	Rooms     *chat.Registry
}

// NewScheduler creates a new scheduler instance
func NewScheduler(invoiceDB databases.InvoiceDatabase, rooms *chat.Registry) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		InvoiceDB: invoiceDB,
		Rooms:     rooms,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Reclaim chat rooms nobody is using
	_, err := s.cron.AddFunc("@every 10m", s.sweepIdleRooms)
	if err != nil {
		zap.S().Errorw("failed to register room sweep job", "error", err)
	}

	// Flag unpaid invoices past their due date daily at 9 AM UTC
	_, err = s.cron.AddFunc("0 9 * * *", s.markOverdueInvoices)
	if err != nil {
		zap.S().Errorw("failed to register overdue invoice job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Background scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Background scheduler stopped")
}

// sweepIdleRooms shuts down chat rooms with no sessions
func (s *Scheduler) sweepIdleRooms() {
	stopped := s.Rooms.SweepIdle(roomMaxIdle)
	if stopped > 0 {
		zap.S().Infow("Idle chat room sweep complete", "stopped", stopped)
	}
}

// markOverdueInvoices flags sent invoices past their due date and emails the
// client a payment reminder
func (s *Scheduler) markOverdueInvoices() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	zap.S().Infow("Running overdue invoice job")

	filter := bson.M{
		"status":  "sent",
		"dueDate": bson.M{"$lt": primitive.NewDateTimeFromTime(now)},
	}

	invoices, err := s.InvoiceDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find overdue invoices", "error", err)
		return
	}

	for _, invoice := range invoices {
		update := bson.M{
			"$set": bson.M{
				"status":    "overdue",
				"updatedAt": primitive.NewDateTimeFromTime(now),
			},
		}
		err := s.InvoiceDB.UpdateOne(ctx, bson.M{"_id": invoice.ID}, update)
		if err != nil {
			zap.S().Errorw("failed to mark invoice overdue", "error", err, "invoiceId", invoice.ID.Hex())
			continue
		}

		go s.sendReminderEmail(invoice)

		zap.S().Infow("Invoice marked overdue",
			"invoiceId", invoice.ID.Hex(),
			"clientEmail", invoice.ClientEmail,
		)
	}

	zap.S().Infow("Overdue invoice job complete", "overdueProcessed", len(invoices))
}

func (s *Scheduler) sendReminderEmail(invoice models.Invoice) {
	if invoice.ClientEmail == "" {
		return
	}
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		zap.S().Debug("SENDGRID_API_KEY not set, skipping reminder email")
		return
	}

	from := mail.NewEmail("Bright Desk", "billing@brightdesk.io")
	to := mail.NewEmail(invoice.ClientEmail, invoice.ClientEmail)
	subject := "Payment Reminder: Invoice Overdue"
	plainText := fmt.Sprintf("Invoice %s for %.2f %s is now overdue. Please arrange payment at your earliest convenience.",
		invoice.ID.Hex(), float64(invoice.AmountCents)/100, invoice.Currency)
	htmlContent := fmt.Sprintf("<p>Invoice <strong>%s</strong> for %.2f %s is now overdue.</p><p>Please arrange payment at your earliest convenience.</p>",
		invoice.ID.Hex(), float64(invoice.AmountCents)/100, invoice.Currency)

	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send overdue reminder email", "error", err, "invoiceId", invoice.ID.Hex())
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
}
