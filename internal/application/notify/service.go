// Package notify delivers messages to a contact channel. Delivery is
// fire-and-forget: failures are logged, never surfaced to the caller, and
// issuance paths never wait on a provider round-trip.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/citizen-services/auth-api/internal/infrastructure/smtp"
	"github.com/citizen-services/auth-api/internal/infrastructure/sns"
	"github.com/citizen-services/auth-api/internal/pkg/mask"
)

// deliveryTimeout bounds a single provider call.
const deliveryTimeout = 10 * time.Second

// Sink accepts a message for a contact address.
type Sink interface {
	Send(contact, subject, message string)
}

// Dispatcher routes messages to SMS or email based on the contact's shape.
// Either provider may be nil (e.g. SNS unavailable in dev); the message is
// then only logged.
type Dispatcher struct {
	sms    sns.SMSSender
	mailer smtp.Mailer
}

func NewDispatcher(sms sns.SMSSender, mailer smtp.Mailer) *Dispatcher {
	return &Dispatcher{sms: sms, mailer: mailer}
}

// Send dispatches asynchronously and returns immediately.
func (d *Dispatcher) Send(contact, subject, message string) {
	go d.deliver(contact, subject, message)
}

func (d *Dispatcher) deliver(contact, subject, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if domain.IsMobileNumber(contact) {
		if d.sms == nil {
			slog.Warn("sms sender unavailable, message dropped", "to", mask.Contact(contact))
			return
		}
		if err := d.sms.SendSMS(ctx, contact, message); err != nil {
			slog.Warn("sms delivery failed", "to", mask.Contact(contact), "err", err)
		}
		return
	}

	if d.mailer == nil {
		slog.Warn("mailer unavailable, message dropped", "to", mask.Email(contact))
		return
	}
	if err := d.mailer.SendEmail(contact, subject, message); err != nil {
		slog.Warn("email delivery failed", "to", mask.Email(contact), "err", err)
	}
}
