// Package billing wraps the Stripe SDK: checkout session creation for the
// snapshot and ongoing products, and webhook event verification.
package billing

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"ekkoscope/internal/errors"
	"ekkoscope/internal/models"
)

// Stripe event types the webhook handler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Client is a configured Stripe client. A nil Client is valid and reports
// disabled, so billing endpoints degrade to AppErrors when Stripe is not set up.
type Client struct {
	api           *client.API
	webhookSecret string
	priceSnapshot string
	priceOngoing  string
}

// NewClient builds a Stripe client. Returns nil when no secret key is
// configured.
func NewClient(secretKey, webhookSecret, priceSnapshot, priceOngoing string) *Client {
	if secretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
		priceSnapshot: priceSnapshot,
		priceOngoing:  priceOngoing,
	}
}

// Enabled reports whether Stripe is configured.
func (c *Client) Enabled() bool { return c != nil && c.api != nil }

// PriceFor returns the configured price ID for a purchase kind.
func (c *Client) PriceFor(kind models.PurchaseKind) (string, error) {
	var price string
	switch kind {
	case models.PurchaseKindSnapshot:
		price = c.priceSnapshot
	case models.PurchaseKindOngoing:
		price = c.priceOngoing
	default:
		return "", errors.WithMessage(errors.ErrInvalidInput, fmt.Sprintf("unknown purchase kind %q", kind))
	}
	if price == "" {
		return "", errors.WithMessage(errors.ErrBillingNotConfigured, fmt.Sprintf("no Stripe price configured for the %s product", kind))
	}
	return price, nil
}

// CreateCheckoutSession starts a Stripe Checkout session: one-time payment
// for snapshot audits, a subscription for the ongoing plan. Business and user
// IDs travel in the session metadata and come back on the webhook.
func (c *Client) CreateCheckoutSession(userID, businessID uint, kind models.PurchaseKind, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	if !c.Enabled() {
		return nil, errors.ErrBillingNotConfigured
	}

	price, err := c.PriceFor(kind)
	if err != nil {
		return nil, err
	}

	mode := stripe.CheckoutSessionModePayment
	if kind == models.PurchaseKindOngoing {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.AddMetadata("business_id", strconv.FormatUint(uint64(businessID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))
	params.AddMetadata("kind", string(kind))
	params.AddMetadata("product", "ekkoscope_"+string(kind))

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	return session, nil
}

// VerifyEvent checks the Stripe-Signature header against the raw payload and
// returns the decoded event.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if !c.Enabled() || c.webhookSecret == "" {
		return stripe.Event{}, errors.ErrBillingNotConfigured
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, errors.Wrap(errors.ErrInvalidWebhook, err)
	}
	return event, nil
}

// CheckoutCompletion is the decoded payload of a checkout.session.completed
// event.
type CheckoutCompletion struct {
	SessionID       string
	PaymentIntentID string
	SubscriptionID  string
	UserID          uint
	BusinessID      uint
	Kind            models.PurchaseKind
}

// DecodeCheckoutCompletion extracts the purchase identifiers from a
// checkout.session.completed event.
func DecodeCheckoutCompletion(event stripe.Event) (*CheckoutCompletion, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidWebhook, err)
	}

	completion := &CheckoutCompletion{
		SessionID: session.ID,
		Kind:      models.PurchaseKind(session.Metadata["kind"]),
	}
	if session.PaymentIntent != nil {
		completion.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.Subscription != nil {
		completion.SubscriptionID = session.Subscription.ID
	}
	if completion.Kind == "" {
		completion.Kind = models.PurchaseKindSnapshot
	}

	userID, err := parseIDMetadata(session.Metadata, "user_id")
	if err != nil {
		return nil, err
	}
	businessID, err := parseIDMetadata(session.Metadata, "business_id")
	if err != nil {
		return nil, err
	}
	completion.UserID = userID
	completion.BusinessID = businessID
	return completion, nil
}

// DecodeSubscriptionID extracts the subscription ID from a
// customer.subscription.deleted event.
func DecodeSubscriptionID(event stripe.Event) (string, error) {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return "", errors.Wrap(errors.ErrInvalidWebhook, err)
	}
	if subscription.ID == "" {
		return "", errors.WithMessage(errors.ErrInvalidWebhook, "subscription event without an ID")
	}
	return subscription.ID, nil
}

func parseIDMetadata(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, errors.WithMessage(errors.ErrInvalidWebhook, fmt.Sprintf("checkout session metadata missing %s", key))
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.WithMessage(errors.ErrInvalidWebhook, fmt.Sprintf("checkout session metadata %s is not numeric", key))
	}
	return uint(id), nil
}
