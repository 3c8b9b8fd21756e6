package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/auth"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/generator"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/identity"
)

type apiError struct {
	status int
	code   string
	detail string
}

func classify(err error) apiError {
	if br, ok := apierror.AsBadRequest(err); ok {
		return apiError{fiber.StatusBadRequest, "bad_request", br.Message}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return apiError{fiber.StatusUnauthorized, "invalid_token", "Invalid token"}
	case errors.Is(err, auth.ErrValidationUnavailable):
		return apiError{fiber.StatusInternalServerError, "validation_unavailable", "Token validation failed"}
	case errors.Is(err, identity.ErrInvalidCredentials):
		return apiError{fiber.StatusUnauthorized, "invalid_credentials", "Invalid credentials"}
	case errors.Is(err, credits.ErrAccountNotFound):
		return apiError{fiber.StatusNotFound, "account_not_found", "User not found"}
	case errors.Is(err, credits.ErrInsufficientBalance):
		return apiError{fiber.StatusPaymentRequired, "insufficient_balance", "Insufficient credits"}
	case errors.Is(err, billing.ErrBadSignature):
		return apiError{fiber.StatusBadRequest, "bad_signature", "Invalid signature"}
	case errors.Is(err, billing.ErrMalformedNotification):
		return apiError{fiber.StatusBadRequest, "malformed_notification", "Malformed notification"}
	case errors.Is(err, generator.ErrEmptyInput):
		return apiError{fiber.StatusBadRequest, "bad_request", "input is required"}
	}

	if ue, ok := apierror.AsUpstream(err); ok {
		if ue.Rejected {
			return apiError{ue.Status(), string(ue.Service) + "_rejected", ue.Message}
		}
		detail := fmt.Sprintf("%s request failed", strings.ReplaceAll(string(ue.Service), "_", " "))
		if errors.Is(err, context.DeadlineExceeded) {
			detail += ": deadline exceeded"
		}
		return apiError{ue.Status(), string(ue.Service) + "_error", detail}
	}

	return apiError{fiber.StatusInternalServerError, "internal_error", "Internal server error"}
}

// HandleError renders err as {"error": code, "detail": message}.
func HandleError(c *fiber.Ctx, err error) error {
	e := classify(err)
	if e.status >= fiber.StatusInternalServerError {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(e.status).JSON(models.ErrorResponse{Error: e.code, Detail: e.detail})
}

// parseBody decodes the JSON body into v and checks its validate tags. The
// Content-Type header is not required; the plugin does not always send one.
func parseBody(c *fiber.Ctx, v interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return apierror.BadRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apierror.BadRequest("Invalid JSON body")
	}
	if err := models.Validate(v); err != nil {
		return apierror.BadRequest(err.Error())
	}
	return nil
}

// GetClientIP returns the peer address of the connection. Forwarding headers
// are caller controlled and are not consulted.
func GetClientIP(c *fiber.Ctx) string {
	ipAddr := c.IP()
	// ::ffff:192.168.1.1 is an IPv4 address in IPv6 form
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
