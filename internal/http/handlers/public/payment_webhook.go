package public

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aurelia-shop/internal/http/response"
	"github.com/aurelia-shop/internal/service"

	"github.com/gin-gonic/gin"
)

const webhookLogValueLimit = 256

// StripeWebhook Stripe webhook 回调。签名校验失败返回 HTTP 400，让 Stripe 重试。
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("stripe_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	log.Infow("stripe_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"stripe_signature", truncateWebhookLogValue(strings.TrimSpace(c.GetHeader("Stripe-Signature"))),
	)

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	payment, eventType, err := h.PaymentService.HandleStripeWebhook(service.WebhookCallbackInput{
		Headers: headers,
		Body:    body,
		Context: c.Request.Context(),
	})
	if err != nil {
		log.Warnw("stripe_webhook_handle_failed",
			"event_type", eventType,
			"error", err,
		)
		if errors.Is(err, service.ErrPaymentSignatureInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
			return
		}
		respondPaymentCallbackError(c, err)
		return
	}

	if payment == nil {
		log.Infow("stripe_webhook_accepted_no_payment", "event_type", eventType)
		response.Success(c, gin.H{
			"accepted":   true,
			"event_type": eventType,
			"updated":    false,
		})
		return
	}

	log.Infow("stripe_webhook_processed",
		"event_type", eventType,
		"payment_id", payment.ID,
		"status", payment.Status,
	)
	response.Success(c, gin.H{
		"accepted":   true,
		"event_type": eventType,
		"updated":    true,
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
}

func truncateWebhookLogValue(raw string) string {
	if len(raw) <= webhookLogValueLimit {
		return raw
	}
	return raw[:webhookLogValueLimit] + "..."
}
