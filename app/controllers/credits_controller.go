package controllers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/usercontext"
)

func (h *Handlers) HandleGetCredits(c *fiber.Ctx) error {
	subject := usercontext.GetSubject(c)

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	account, err := h.Store.Get(ctx, subject)
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.CreditsResponse{Credits: account.Credits})
}

func (h *Handlers) HandlePurchaseCredits(c *fiber.Ctx) error {
	var req models.PurchaseRequest
	if err := parseBody(c, &req); err != nil {
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	checkout, err := h.Checkout.CreateCheckout(ctx, billing.PurchaseIntent{
		Subject: usercontext.GetSubject(c),
		Amount:  req.Amount,
		Credits: req.Credits,
	})
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.CheckoutResponse{Status: "success", CheckoutURL: checkout.URL})
}

// HandleGenerateParameters charges the caller and returns the generated patch
// unchanged. A failed generation is refunded when the gate is configured to.
func (h *Handlers) HandleGenerateParameters(c *fiber.Ctx) error {
	var req models.GenerateRequest
	if err := parseBody(c, &req); err != nil {
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	params, err := credits.Charge(ctx, h.Gate, usercontext.GetSubject(c), func(ctx context.Context, _ string) (json.RawMessage, error) {
		return h.Generator.Generate(ctx, req.Input)
	})
	if err != nil {
		return HandleError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(params)
}
