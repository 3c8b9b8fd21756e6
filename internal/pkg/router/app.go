package router

import (
	"errors"
	"strings"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/docs"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

const bodyLimit = 1 << 20 // 1 MiB

// NewApplication builds the fiber app shared by the HTTP server and the
// serverless entrypoint.
func NewApplication(svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "summoner",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	// recovery, request ids and logging
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// SWAGGER / OPENAPI
	if env.GetBool("DOCS_ENABLED", true) {
		app.Use(swagger.New(swagger.Config{
			BasePath:    "/",
			FilePath:    "openapi.yml",
			FileContent: docs.OpenAPI,
			Path:        "docs",
			Title:       "Summoner API",
		}))
	}

	// ROUTER
	InstallRouter(app, svc)

	return app
}

// errorHandler renders errors that escape the handlers (unknown routes, body
// limit, recovered panics) in the same shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		detail = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Errorf("[Router] %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:  strings.ReplaceAll(strings.ToLower(utils.StatusMessage(code)), " ", "_"),
		Detail: detail,
	})
}
