package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticketinventory/internal/domain"
)

const emailDateLayout = "Mon, 02 Jan 2006 15:04 MST"

type emailNotifier struct {
	mailer    domain.Mailer
	renderer  domain.EmailTemplateRenderer
	directory domain.UserDirectory
	logger    *slog.Logger
}

// NewEmailNotifier returns a Notifier that emails the reservation owner using the
// "reservation_booked" and "reservation_cancelled" templates.
func NewEmailNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, directory domain.UserDirectory, logger *slog.Logger) domain.Notifier {
	return &emailNotifier{mailer: mailer, renderer: renderer, directory: directory, logger: orDefaultLogger(logger)}
}

func (s *emailNotifier) Notify(ctx context.Context, n *domain.ReservationNotification) error {
	if n == nil || n.Reservation == nil || n.Event == nil {
		return fmt.Errorf("reservation notification is incomplete")
	}
	template, err := templateFor(n.Kind)
	if err != nil {
		return err
	}
	contact, err := s.directory.ContactFor(ctx, n.Reservation.UserID)
	if err != nil {
		return fmt.Errorf("resolve contact for %s: %w", n.Reservation.UserID, err)
	}
	if contact == nil || contact.Email == "" {
		s.logger.Debug("no email on file, skipping", "user_id", n.Reservation.UserID)
		return nil
	}

	data := &domain.ReservationEmailData{
		Email:         contact.Email,
		Name:          contact.Name,
		EventName:     n.Event.Name,
		EventStart:    n.Event.StartDate.In(time.UTC).Format(emailDateLayout),
		Venue:         n.Event.Venue,
		Quantity:      n.Reservation.Quantity,
		ReservationID: n.Reservation.ID,
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	s.logger.Info("reservation email sent", "template", template, "reservation_id", data.ReservationID)
	return nil
}

func templateFor(kind domain.NotificationKind) (string, error) {
	switch kind {
	case domain.NotificationReservationBooked:
		return domain.EmailTemplateReservationBooked, nil
	case domain.NotificationReservationCancelled:
		return domain.EmailTemplateReservationCancelled, nil
	}
	return "", fmt.Errorf("no email template for %q", kind)
}
