package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"comet-be/internal/apperr"
	"comet-be/internal/checkout"
	"comet-be/internal/logger"
	"comet-be/internal/order"
	"comet-be/internal/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const webhookProvider = "payos"

type WebhookHandler struct {
	gateway payment.Gateway
	events  payment.EventStore
	orders  order.Repository
	recon   checkout.ReconRepository
}

func NewWebhookHandler(
	gateway payment.Gateway,
	events payment.EventStore,
	orders order.Repository,
	recon checkout.ReconRepository,
) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, events: events, orders: orders, recon: recon}
}

// HandlePayOS processes POST /api/webhooks/payos. Replays are detected by
// the unique event record and acknowledged without reprocessing; a settled
// order is never flipped back.
func (h *WebhookHandler) HandlePayOS(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromCtx(ctx).With(zap.String("handler", "webhook"))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperr.Validation("unreadable webhook payload"))
		return
	}

	data, err := h.gateway.VerifyWebhook(payload)
	if err != nil {
		log.Warn("webhook rejected", zap.Error(err))
		respondError(c, apperr.Validation("invalid webhook signature"))
		return
	}

	eventID := data.Reference
	if eventID == "" {
		eventID = data.PaymentLinkID
	}
	if eventID == "" {
		// no stable id from the provider; derive one from the order
		eventID = "order-" + strconv.FormatInt(data.OrderCode, 10)
	}
	log = log.With(zap.String("event_id", eventID), zap.Int64("order_code", data.OrderCode))

	isDup, err := h.events.SaveWebhookEvent(ctx, webhookProvider, eventID, data.OrderCode, payload, true)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindPersistence, "record webhook event", err))
		return
	}
	if isDup {
		log.Info("duplicate webhook acknowledged")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if data.Succeeded() {
		err = h.orders.MarkPaid(ctx, data.OrderCode)
	} else {
		err = h.orders.MarkFailed(ctx, data.OrderCode)
	}
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			// the order insert may have failed after the link was issued;
			// the reconciliation record holds the trail
			log.Warn("webhook for unknown order")
			h.markFailed(ctx, eventID, "order not found", log)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.markFailed(ctx, eventID, err.Error(), log)
		respondError(c, apperr.Wrap(apperr.KindPersistence, "settle order", err))
		return
	}

	if err := h.recon.Resolve(ctx, data.OrderCode); err != nil {
		log.Error("failed resolving reconciliation records", zap.Error(err))
	}

	if err := h.events.MarkWebhookProcessed(ctx, webhookProvider, eventID); err != nil {
		log.Error("failed marking webhook processed", zap.Error(err))
	}

	log.Info("webhook processed", zap.Bool("succeeded", data.Succeeded()))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) markFailed(ctx context.Context, eventID, reason string, log *zap.Logger) {
	if err := h.events.MarkWebhookFailed(ctx, webhookProvider, eventID, reason); err != nil {
		log.Error("failed marking webhook event failed", zap.Error(err))
	}
}
