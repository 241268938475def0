package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"leadslot-backend/internal/application/wallet"
	"leadslot-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	DB            *gorm.DB
	Ledger        *wallet.Ledger
	WebhookSecret string
}

var errSkip = errors.New("payment intent is not a wallet top-up")

// HandleWebhook POST /api/v1/stripe/webhook. Raw body, signature verification, then a
// purchase credit. Replays of the same intent are acknowledged without a second credit.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, sig, wh.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type != "payment_intent.succeeded" || event.Data == nil {
		return c.Status(200).SendString("ok")
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Msg("Stripe webhook payment intent parse failed")
		return c.Status(200).SendString("ok")
	}

	err = wh.creditTopUp(c.UserContext(), &pi, event.ID, event.Data.Raw)
	switch {
	case err == nil, errors.Is(err, errSkip):
		return c.Status(200).SendString("ok")
	case domain.IsBusinessError(err):
		// Retrying will not change the outcome.
		log.Warn().Err(err).Str("payment_intent", pi.ID).Msg("Stripe top-up rejected")
		return c.Status(200).SendString("ok")
	default:
		log.Error().Err(err).Str("payment_intent", pi.ID).Msg("Stripe top-up failed")
		return c.Status(500).SendString("Webhook Error: processing failed")
	}
}

func (wh *WebhookHandler) creditTopUp(ctx context.Context, pi *stripe.PaymentIntent, eventID string, raw []byte) error {
	agentID, err := uuid.Parse(pi.Metadata["agent_id"])
	if err != nil {
		return errSkip
	}
	credits, err := strconv.Atoi(pi.Metadata["credits"])
	if err != nil || credits <= 0 {
		return errSkip
	}

	return wh.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Payment{}).Where("stripe_payment_intent_id = ?", pi.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			AgentID:               agentID,
			Credits:               credits,
			AmountPaidCents:       int(pi.AmountReceived),
			Currency:              string(pi.Currency),
			Status:                string(pi.Status),
			RawPaymentIntent:      datatypes.JSON(raw),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		balance, err := wh.Ledger.Credit(ctx, tx, wallet.Entry{
			AgentID: agentID,
			Amount:  credits,
			Type:    domain.TxPurchase,
			Reason:  "stripe top-up " + pi.ID,
		})
		if err != nil {
			return err
		}
		log.Info().Str("agent_id", agentID.String()).Int("credits", credits).Int("balance", balance).Str("payment_intent", pi.ID).Msg("wallet topped up")
		return nil
	})
}
