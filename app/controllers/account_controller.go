package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/identity"
)

// HandleSignup registers the user with the identity provider and opens an
// empty credit account for the new subject.
func (h *Handlers) HandleSignup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	subject, err := h.Identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return HandleError(c, err)
	}

	err = h.Store.Create(ctx, credits.Account{Subject: subject, Email: req.Email, Credits: 0})
	if err != nil && !errors.Is(err, credits.ErrAccountExists) {
		// The identity already exists, so signing up again will not fix this.
		log.Errorf("[Account] subject %s (%s) signed up but has no credit account, repair with `summonerctl credits create %s --email %s`: %v",
			subject, req.Email, subject, req.Email, err)
		return HandleError(c, apierror.Upstream(apierror.Store, err))
	}
	if errors.Is(err, credits.ErrAccountExists) {
		log.Warnf("[Account] credit account for subject %s already existed, keeping its balance", subject)
	}

	return c.Status(fiber.StatusOK).JSON(models.StatusResponse{
		Status:  "success",
		Message: "User signed up and added to database",
	})
}

func (h *Handlers) HandleConfirmSignup(c *fiber.Ctx) error {
	var req models.ConfirmSignupRequest
	if err := parseBody(c, &req); err != nil {
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	if err := h.Identity.ConfirmSignUp(ctx, req.Email, req.ConfirmationCode); err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.StatusResponse{Status: "success", Message: "User confirmed"})
}

// HandleLogin accepts a hosted UI authorization code or an email/password pair.
func (h *Handlers) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	var (
		tokens *identity.Tokens
		err    error
	)
	switch {
	case req.HasCode():
		tokens, err = h.Identity.ExchangeCode(ctx, req.Code, req.RedirectURI)
	case req.HasPassword():
		tokens, err = h.Identity.PasswordLogin(ctx, req.Email, req.Password)
	default:
		return HandleError(c, apierror.BadRequest("Invalid login request"))
	}
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *Handlers) HandleRefresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		if _, ok := apierror.AsBadRequest(err); ok {
			err = apierror.BadRequest("Missing refresh token")
		}
		return HandleError(c, err)
	}

	ctx, cancel := h.upstreamContext(c.UserContext())
	defer cancel()

	tokens, err := h.Identity.Refresh(ctx, req.RefreshToken)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error:  "invalid_credentials",
			Detail: "Invalid or expired refresh token",
		})
	}
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(tokens)
}
