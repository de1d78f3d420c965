package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/registry"
)

// ConsumerName scopes idempotency keys for this worker.
const ConsumerName = "vendor-notifications"

type claimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, eventID uuid.UUID) error
}

// ConsumerParams groups the notification consumer dependencies. Mailer may be
// nil, in which case only in-app notifications are written.
type ConsumerParams struct {
	Repo         Repository
	Subscription *pubsub.Subscriber
	Idempotency  claimer
	Mailer       Mailer
	OpsEmail     string
	Logger       *logger.Logger
}

// Consumer turns payout and balance events into vendor notifications and
// email.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  claimer
	decoders     *registry.DecoderRegistry
	mailer       Mailer
	opsEmail     string
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	return newConsumer(params)
}

func newConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     newDecoders(),
		mailer:       params.Mailer,
		opsEmail:     strings.TrimSpace(params.OpsEmail),
		logg:         params.Logger,
	}, nil
}

func newDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventPayoutRequested,
		enums.EventPayoutApproved,
		enums.EventPayoutRejected,
		enums.EventPayoutPaid,
		enums.EventPayoutCancelled,
	} {
		registry.Register[payloads.PayoutEvent](reg, eventType, 1)
	}
	registry.Register[payloads.PayoutStaleEvent](reg, enums.EventPayoutStale, 1)
	registry.Register[payloads.OrderItemDeliveredEvent](reg, enums.EventOrderItemDelivered, 1)
	registry.Register[payloads.VendorBalanceDebitedEvent](reg, enums.EventVendorBalanceDebit, 1)
	return reg
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": eventType,
		})
		if err := c.Process(logCtx, eventType, msg.Data); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// errRetry marks failures that should be redelivered.
var errRetry = errors.New("retry")

// Process handles one delivered envelope. A non-nil error asks for
// redelivery; malformed or unsupported events are acknowledged and dropped.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, data []byte) error {
	if !eventType.IsValid() {
		c.logg.Info(ctx, "skipping unknown event")
		return nil
	}

	decoded, err := c.decoders.Decode(eventType, data)
	if err != nil {
		if errors.Is(err, registry.ErrNoDecoder) {
			c.logg.Info(c.logg.WithField(ctx, "reason", err.Error()), "skipping event without decoder")
			return nil
		}
		c.logg.Error(ctx, "dropping undecodable event", err)
		return nil
	}
	eventID := decoded.EventID
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return fmt.Errorf("%w: %v", errRetry, err)
	}
	if !first {
		c.logg.Info(ctx, "event already processed")
		return nil
	}

	if err := c.handle(ctx, eventType, decoded.Payload); err != nil {
		c.logg.Error(ctx, "notification handling failed", err)
		if relErr := c.idempotency.Forget(ctx, eventID); relErr != nil {
			c.logg.Error(ctx, "failed to release idempotency claim", relErr)
		}
		return fmt.Errorf("%w: %v", errRetry, err)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload interface{}) error {
	switch p := payload.(type) {
	case payloads.PayoutEvent:
		return c.notifyVendor(ctx, p.VendorID, payoutMessage(eventType, p))
	case payloads.OrderItemDeliveredEvent:
		return c.notifyVendor(ctx, p.VendorID, message{
			kind:  enums.NotificationTypeBalance,
			title: "Earnings credited",
			body:  fmt.Sprintf("%s was added to your available balance for a delivered item.", p.VendorEarning.StringFixed(2)),
			link:  "/vendor/me",
		})
	case payloads.VendorBalanceDebitedEvent:
		return c.notifyVendor(ctx, p.VendorID, message{
			kind:  enums.NotificationTypeBalance,
			title: "Balance adjusted",
			body:  fmt.Sprintf("%s was debited from your balance. Reason: %s", p.Amount.StringFixed(2), p.Reason),
			link:  "/vendor/me",
			email: true,
		})
	case payloads.PayoutStaleEvent:
		return c.alertOps(ctx, p)
	default:
		return fmt.Errorf("unhandled payload %T", payload)
	}
}

type message struct {
	kind  enums.NotificationType
	title string
	body  string
	link  string
	email bool
}

func payoutMessage(eventType enums.OutboxEventType, p payloads.PayoutEvent) message {
	amount := p.Amount.StringFixed(2)
	msg := message{
		kind:  enums.NotificationTypePayoutUpdate,
		link:  fmt.Sprintf("/vendor/payouts/%s", p.PayoutID),
		email: true,
	}
	switch eventType {
	case enums.EventPayoutRequested:
		msg.title = "Payout requested"
		msg.body = fmt.Sprintf("Your payout request for %s was received and is awaiting review.", amount)
		msg.email = false
	case enums.EventPayoutApproved:
		msg.title = "Payout approved"
		msg.body = fmt.Sprintf("Your payout of %s was approved and will be sent shortly.", amount)
	case enums.EventPayoutRejected:
		msg.title = "Payout rejected"
		msg.body = fmt.Sprintf("Your payout of %s was rejected and returned to your available balance.", amount)
		if p.Reason != nil && *p.Reason != "" {
			msg.body += " Reason: " + *p.Reason
		}
	case enums.EventPayoutPaid:
		msg.title = "Payout sent"
		msg.body = fmt.Sprintf("Your payout of %s has been paid.", amount)
		if p.TransactionRef != nil && *p.TransactionRef != "" {
			msg.body += " Reference: " + *p.TransactionRef
		}
	case enums.EventPayoutCancelled:
		msg.title = "Payout cancelled"
		msg.body = fmt.Sprintf("Your payout request for %s was cancelled and returned to your available balance.", amount)
		msg.email = false
	}
	return msg
}

func (c *Consumer) notifyVendor(ctx context.Context, vendorID uuid.UUID, msg message) error {
	if vendorID == uuid.Nil {
		return fmt.Errorf("vendor id missing")
	}
	link := msg.link
	notification := &models.Notification{
		VendorID: vendorID,
		Type:     msg.kind,
		Title:    msg.title,
		Message:  strings.TrimSpace(msg.body),
		Link:     &link,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(ctx, "vendor notified")

	if !msg.email || c.mailer == nil {
		return nil
	}
	contact, err := c.repo.VendorContact(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(ctx, "vendor contact missing, email skipped")
			return nil
		}
		return err
	}
	c.sendBestEffort(ctx, Email{
		To:        contact.ContactEmail,
		ToName:    contact.BusinessName,
		Subject:   msg.title,
		PlainText: notification.Message,
		HTML:      "<p>" + html.EscapeString(notification.Message) + "</p>",
	})
	return nil
}

func (c *Consumer) alertOps(ctx context.Context, p payloads.PayoutStaleEvent) error {
	if c.mailer == nil || c.opsEmail == "" {
		c.logg.Warn(c.logg.WithField(ctx, "payout_id", p.PayoutID.String()), "stale payout alert has no ops recipient")
		return nil
	}
	body := fmt.Sprintf("Payout %s for vendor %s (%s) has waited %d hours for review.",
		p.PayoutID, p.VendorID, p.Amount.StringFixed(2), p.AgeHours)
	c.sendBestEffort(ctx, Email{
		To:        c.opsEmail,
		Subject:   "Payout awaiting review",
		PlainText: body,
		HTML:      "<p>" + html.EscapeString(body) + "</p>",
	})
	return nil
}

// sendBestEffort relies on the mailer's own retry. Exhausted retries are
// logged rather than redelivered so the in-app notification is not duplicated.
func (c *Consumer) sendBestEffort(ctx context.Context, email Email) {
	if err := c.mailer.Send(ctx, email); err != nil {
		c.logg.Error(ctx, "email delivery failed", err)
	}
}
