package services

import (
	"context"
	"fmt"

	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/infrastructure/observability"
)

// MailSender sends a plain-text message to one recipient
type MailSender interface {
	Send(to, subject, body string) error
}

// NotificationService sends transactional email. Delivery failures are logged
// and never fail the calling operation.
type NotificationService struct {
	sender MailSender
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender MailSender) *NotificationService {
	return &NotificationService{sender: sender}
}

// SendWelcome greets a newly signed-up user
func (n *NotificationService) SendWelcome(ctx context.Context, user *entities.User) {
	if n.sender == nil {
		return
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Tourbase! We're glad to have you on board.\n\nThe Tourbase Team",
		user.Name,
	)

	if err := n.sender.Send(user.Email, "Welcome to Tourbase!", body); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("user_id", user.ID).
			Msg("failed to send welcome email")
	}
}

// SendPasswordReset mails the reset link. The URL embeds the plaintext token;
// only its hash is stored.
func (n *NotificationService) SendPasswordReset(ctx context.Context, user *entities.User, resetURL string) {
	if n.sender == nil {
		return
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a request with your new password to:\n\n%s\n\nThis link is valid for 10 minutes. If you didn't request a reset, please ignore this email.",
		user.Name, resetURL,
	)

	if err := n.sender.Send(user.Email, "Your password reset token (valid for 10 minutes)", body); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("user_id", user.ID).
			Msg("failed to send password reset email")
	}
}

// SendBookingConfirmation confirms a settled booking
func (n *NotificationService) SendBookingConfirmation(ctx context.Context, email, tourName string, amount float64) {
	if n.sender == nil {
		return
	}

	body := fmt.Sprintf(
		"Your booking for %s is confirmed. We received your payment of %.2f.\n\nSee you on the trail!",
		tourName, amount,
	)

	if err := n.sender.Send(email, fmt.Sprintf("Booking confirmed: %s", tourName), body); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("email", email).
			Msg("failed to send booking confirmation email")
	}
}
