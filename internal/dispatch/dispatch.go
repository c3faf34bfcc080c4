// Package dispatch routes an agent's reply to the channel the original
// message arrived on. Dispatch never touches persistence: recording the
// reply on the message is the aggregator's job and happens regardless of
// delivery outcome.
package dispatch

import (
	"context"
	"log"

	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"
)

// Senders abstracts the outbound channel integrations.
type Senders interface {
	SendEmail(ctx context.Context, to, subject, htmlContent string) bool
	SendWhatsApp(ctx context.Context, to, content string) bool
}

type Dispatcher struct {
	senders Senders
}

func NewDispatcher(senders Senders) *Dispatcher {
	return &Dispatcher{senders: senders}
}

const defaultReplySubject = "Your inquiry"

// DispatchReply sends content to the message's customer over the
// message's originating channel. Channels with no sender integration
// (instagram, facebook) are a logged no-op, not an error — the reply is
// still recorded locally.
func (d *Dispatcher) DispatchReply(ctx context.Context, message models.Message, customer models.Customer, content string) error {
	switch message.Channel {
	case models.ChannelEmail:
		subject := message.Subject
		if subject == "" {
			subject = defaultReplySubject
		}
		if !d.senders.SendEmail(ctx, customer.Email, "Re: "+subject, content) {
			return apperrors.New(apperrors.ErrCodeTransport, "email delivery failed for message "+message.ID)
		}
		return nil

	case models.ChannelWhatsApp:
		if customer.Phone == "" {
			return apperrors.New(apperrors.ErrCodeMissingContactInfo,
				"customer "+customer.ID+" has no phone number on file")
		}
		if !d.senders.SendWhatsApp(ctx, customer.Phone, content) {
			return apperrors.New(apperrors.ErrCodeTransport, "whatsapp delivery failed for message "+message.ID)
		}
		return nil

	default:
		log.Printf("No sender integration for channel %s; reply to message %s recorded locally only",
			message.Channel, message.ID)
		return nil
	}
}
