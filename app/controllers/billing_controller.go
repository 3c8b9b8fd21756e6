package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
)

// HandleStripeWebhook feeds the raw notification to the fulfiller. The body
// must reach signature verification byte for byte, so it is copied before
// fasthttp reuses the buffer.
func (h *Handlers) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	res, err := h.Webhooks.Handle(ctx, rawBody, signature)
	if err != nil {
		log.Warnf("[Webhook] event %q %s: %v", res.EventID, res.State, err)
		return c.Status(res.Status).JSON(models.ErrorResponse{
			Error:  classify(err).code,
			Detail: res.Message,
		})
	}

	log.Infof("[Webhook] event %q %s", res.EventID, res.State)
	return c.Status(res.Status).JSON(models.StatusResponse{Status: "success", Message: res.Message})
}
