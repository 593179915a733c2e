package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// Email template names, one per NotificationKind.
const (
	EmailTemplateReservationBooked    = "reservation_booked"
	EmailTemplateReservationCancelled = "reservation_cancelled"
)

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ReservationEmailData holds data for the reservation booked/cancelled emails.
type ReservationEmailData struct {
	Email         string
	Name          string
	EventName     string
	EventStart    string
	Venue         string
	Quantity      int
	ReservationID string
}
